// Package store implements the remote document store over Postgres. It
// plays the role of the cloud collection backend: writes land here while
// online, and readers receive full snapshots through Subscribe.
package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"edwid/api/internal/blog"
)

const defaultPollInterval = 2 * time.Second

type PostgresStore struct {
	db           *sql.DB
	pollInterval time.Duration
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, pollInterval: defaultPollInterval}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) AddPost(ctx context.Context, post blog.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, description, category, author, publish_date, status, views, image, is_deleted, deleted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, post.ID, post.Title, post.Description, post.Category, post.Author, post.PublishDate,
		post.Status, post.Views, post.Image, post.IsDeleted, post.DeletedAt, post.CreatedAt)
	if err != nil {
		return mapError(fmt.Errorf("insert post: %w", err))
	}
	return nil
}

// updatableColumns maps record field names to their columns. Partial
// updates only touch whitelisted fields.
var updatableColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"category":    "category",
	"author":      "author",
	"publishDate": "publish_date",
	"status":      "status",
	"views":       "views",
	"image":       "image",
	"isDeleted":   "is_deleted",
	"deletedAt":   "deleted_at",
}

// UpdatePost writes only the given fields. Unknown field names are ignored.
func (s *PostgresStore) UpdatePost(ctx context.Context, id string, fields map[string]any) error {
	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)

	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := updatableColumns[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil
	}

	for _, name := range names {
		args = append(args, fields[name])
		assignments = append(assignments, fmt.Sprintf("%s=$%d", updatableColumns[name], len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE posts SET %s WHERE id=$%d", strings.Join(assignments, ", "), len(args))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(fmt.Errorf("update post: %w", err))
	}
	return nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, id); err != nil {
		return mapError(fmt.Errorf("delete post: %w", err))
	}
	return nil
}

// ListPosts returns the raw records, newest first. Callers sanitize them at
// the boundary; the store makes no shape guarantees beyond column names.
func (s *PostgresStore) ListPosts(ctx context.Context) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, author, publish_date, status, views, image, is_deleted, deleted_at, created_at
		FROM posts
		ORDER BY created_at DESC NULLS LAST, id
	`)
	if err != nil {
		return nil, mapError(fmt.Errorf("list posts: %w", err))
	}
	defer rows.Close()

	records := []map[string]any{}
	for rows.Next() {
		var (
			id, title, description, category, author, publishDate, status, image string
			views                                                                int
			isDeleted                                                            bool
			deletedAt, createdAt                                                 sql.NullTime
		)
		if err := rows.Scan(&id, &title, &description, &category, &author, &publishDate, &status, &views, &image, &isDeleted, &deletedAt, &createdAt); err != nil {
			return nil, mapError(fmt.Errorf("scan post: %w", err))
		}
		record := map[string]any{
			"id":          id,
			"title":       title,
			"description": description,
			"category":    category,
			"author":      author,
			"publishDate": publishDate,
			"status":      status,
			"views":       views,
			"image":       image,
			"isDeleted":   isDeleted,
		}
		if deletedAt.Valid {
			record["deletedAt"] = deletedAt.Time
		}
		if createdAt.Valid {
			record["createdAt"] = createdAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) AddComment(ctx context.Context, comment blog.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, author, body, date, status, blog_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, comment.ID, comment.Author, comment.Text, comment.Date, comment.Status, comment.BlogID)
	if err != nil {
		return mapError(fmt.Errorf("insert comment: %w", err))
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, id); err != nil {
		return mapError(fmt.Errorf("delete comment: %w", err))
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context) ([]blog.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author, body, date, status, blog_id
		FROM comments
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, mapError(fmt.Errorf("list comments: %w", err))
	}
	defer rows.Close()

	comments := []blog.Comment{}
	for rows.Next() {
		var c blog.Comment
		if err := rows.Scan(&c.ID, &c.Author, &c.Text, &c.Date, &c.Status, &c.BlogID); err != nil {
			return nil, mapError(fmt.Errorf("scan comment: %w", err))
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Subscribe polls the collections and pushes a full snapshot whenever either
// changes, starting with an immediate one. The returned stop function ends
// the loop; cancelling ctx does too.
func (s *PostgresStore) Subscribe(ctx context.Context, handlers blog.SnapshotHandlers) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	if err := s.pushSnapshots(subCtx, handlers, new(string), new(string)); err != nil {
		cancel()
		return nil, err
	}

	go func() {
		var postDigest, commentDigest string
		// Seed digests from the initial push so the loop only reports changes.
		_ = s.digestPosts(subCtx, &postDigest)
		_ = s.digestComments(subCtx, &commentDigest)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				if err := s.pushSnapshots(subCtx, handlers, &postDigest, &commentDigest); err != nil {
					if subCtx.Err() != nil {
						return
					}
					handlers.OnError(err)
				}
			}
		}
	}()

	return cancel, nil
}

// pushSnapshots delivers post and comment snapshots when their digest moved.
// An empty digest forces a push.
func (s *PostgresStore) pushSnapshots(ctx context.Context, handlers blog.SnapshotHandlers, postDigest, commentDigest *string) error {
	records, err := s.ListPosts(ctx)
	if err != nil {
		return err
	}
	if digest := digestOf(records); digest != *postDigest {
		*postDigest = digest
		if handlers.OnPosts != nil {
			handlers.OnPosts(records)
		}
	}

	comments, err := s.ListComments(ctx)
	if err != nil {
		return err
	}
	if digest := digestOf(comments); digest != *commentDigest {
		*commentDigest = digest
		if handlers.OnComments != nil {
			handlers.OnComments(comments)
		}
	}
	return nil
}

func (s *PostgresStore) digestPosts(ctx context.Context, out *string) error {
	records, err := s.ListPosts(ctx)
	if err != nil {
		return err
	}
	*out = digestOf(records)
	return nil
}

func (s *PostgresStore) digestComments(ctx context.Context, out *string) error {
	comments, err := s.ListComments(ctx)
	if err != nil {
		return err
	}
	*out = digestOf(comments)
	return nil
}

func digestOf(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// mapError translates driver failures into the remote store's error
// vocabulary so the mode controller can react to them.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			return &blog.RemoteError{Code: blog.RemotePermissionDenied, Message: pgErr.Message}
		case pgErr.Code == "53100" || pgErr.Code == "53200" || pgErr.Code == "54000":
			return &blog.RemoteError{Code: blog.RemoteQuotaExceeded, Message: pgErr.Message}
		case strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "53300" || pgErr.Code == "57P01":
			return &blog.RemoteError{Code: blog.RemoteUnavailable, Message: pgErr.Message}
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return &blog.RemoteError{Code: blog.RemoteUnavailable, Message: err.Error()}
	}
	return err
}
