package blog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"edwid/api/internal/imaging"
	"edwid/api/internal/util"
)

// Compression budget for stored cover images, below the upload cap so a
// maximal upload still shrinks. Quality floor matches the source dashboard.
const (
	imageCompressBudget = 500_000
	imageMinQuality     = 10
)

var requiredFieldMessages = map[string]string{
	"title":       "Title is required!",
	"description": "Description is required!",
	"author":      "Author is required!",
	"category":    "Category is required!",
	"publishDate": "Publish date is required!",
}

func trimInput(in PostInput) PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Author = strings.TrimSpace(in.Author)
	in.PublishDate = strings.TrimSpace(in.PublishDate)
	in.Status = strings.TrimSpace(in.Status)
	in.Image = strings.TrimSpace(in.Image)
	return in
}

func validatePostInput(in PostInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Description, validation.Required),
		validation.Field(&in.Author, validation.Required),
		validation.Field(&in.Category, validation.Required),
		validation.Field(&in.PublishDate, validation.Required),
		validation.Field(&in.Status, validation.In("", StatusDraft, StatusPublish)),
	)
	if err == nil {
		return nil
	}
	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for name := range verrs {
			if msg, ok := requiredFieldMessages[name]; ok {
				fields[name] = msg
			} else {
				fields[name] = verrs[name].Error()
			}
		}
	}
	return validationError(fields)
}

// CreatePost validates, persists, and announces a new post. The write goes
// to the remote store while online and to the local cache while offline;
// nothing is applied locally until the backing store accepted it.
func (s *Service) CreatePost(ctx context.Context, in PostInput) (Post, error) {
	in = trimInput(in)
	if err := validatePostInput(in); err != nil {
		s.notifs.Append("error", "Validation Error", "Please fill in all required fields!", "❌")
		return Post{}, err
	}

	id := util.NewID("b")
	image, err := s.processImage(ctx, id, in.Image)
	if err != nil {
		return Post{}, err
	}

	now := time.Now()
	post := Post{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Author:      in.Author,
		PublishDate: in.PublishDate,
		Status:      defaultStatus(in.Status),
		Views:       0,
		Image:       image,
		IsDeleted:   false,
		CreatedAt:   &now,
	}

	if s.IsOffline() {
		s.mu.Lock()
		s.posts = append([]Post{post}, s.posts...)
		s.recomputeBadgesLocked()
		snapshot := clonePosts(s.posts)
		s.mu.Unlock()
		if err := s.persistPosts(ctx, snapshot); err != nil {
			log.Printf("blog: cache posts after create: %v", err)
		}
	} else {
		if err := s.remote.AddPost(ctx, post); err != nil {
			return Post{}, s.reportRemoteError(err)
		}
		s.mu.Lock()
		s.posts = append([]Post{post}, s.posts...)
		s.recomputeBadgesLocked()
		s.mu.Unlock()
	}

	if index := s.searchIndex(); index != nil {
		index.IndexPost(post)
	}
	s.notifs.Append("success", "Blog Created", fmt.Sprintf("%q has been created.", post.Title), "📝")
	return post, nil
}

// UpdatePost persists only the fields whose submitted value differs from the
// current snapshot. A submission with no effective change writes nothing.
func (s *Service) UpdatePost(ctx context.Context, id string, in PostInput) (Post, error) {
	in = trimInput(in)
	if err := validatePostInput(in); err != nil {
		s.notifs.Append("error", "Validation Error", "Please fill in all required fields!", "❌")
		return Post{}, err
	}

	existing, ok := s.GetPost(id)
	if !ok {
		return Post{}, notFoundError(id)
	}
	if existing.IsMock() {
		return Post{}, immutableRecordError(id)
	}

	image := existing.Image
	if in.Image != existing.Image {
		processed, err := s.processImage(ctx, id, in.Image)
		if err != nil {
			return Post{}, err
		}
		image = processed
	}

	changed := map[string]any{}
	if in.Title != existing.Title {
		changed["title"] = in.Title
	}
	if in.Description != existing.Description {
		changed["description"] = in.Description
	}
	if in.Category != existing.Category {
		changed["category"] = in.Category
	}
	if in.Author != existing.Author {
		changed["author"] = in.Author
	}
	if in.PublishDate != existing.PublishDate {
		changed["publishDate"] = in.PublishDate
	}
	if status := defaultStatus(in.Status); status != existing.Status {
		changed["status"] = status
	}
	if image != existing.Image {
		changed["image"] = image
	}
	if len(changed) == 0 {
		return existing, nil
	}

	if !s.IsOffline() {
		if err := s.remote.UpdatePost(ctx, id, changed); err != nil {
			return Post{}, s.reportRemoteError(err)
		}
	}
	updated, _ := s.applyPostMutation(id, func(p *Post) {
		p.Title = in.Title
		p.Description = in.Description
		p.Category = in.Category
		p.Author = in.Author
		p.PublishDate = in.PublishDate
		p.Status = defaultStatus(in.Status)
		p.Image = image
	})
	s.persistPostsIfOffline(ctx)

	if index := s.searchIndex(); index != nil {
		index.IndexPost(updated)
	}
	s.notifs.Append("success", "Blog Updated", fmt.Sprintf("%q has been updated.", updated.Title), "✏️")
	return updated, nil
}

// SoftDeletePost moves a post to the trash. Deleting a record that is
// already in the trash, or one that no longer exists, is a no-op.
func (s *Service) SoftDeletePost(ctx context.Context, id string) error {
	existing, ok := s.GetPost(id)
	if !ok {
		return nil
	}
	if existing.IsMock() {
		return immutableRecordError(id)
	}
	if existing.IsDeleted {
		return nil
	}

	now := time.Now()
	if !s.IsOffline() {
		if err := s.remote.UpdatePost(ctx, id, map[string]any{"isDeleted": true, "deletedAt": now}); err != nil {
			return s.reportRemoteError(err)
		}
	}
	s.applyPostMutation(id, func(p *Post) {
		p.IsDeleted = true
		p.DeletedAt = &now
	})
	s.persistPostsIfOffline(ctx)

	if index := s.searchIndex(); index != nil {
		index.DeletePost(id)
	}
	s.notifs.Append("info", "Blog Deleted", fmt.Sprintf("%q has been moved to trash.", existing.Title), "🗑️")
	return nil
}

// RestorePost brings a trashed post back.
func (s *Service) RestorePost(ctx context.Context, id string) error {
	existing, ok := s.GetPost(id)
	if !ok {
		return nil
	}

	if !s.IsOffline() {
		if err := s.remote.UpdatePost(ctx, id, map[string]any{"isDeleted": false, "deletedAt": nil}); err != nil {
			return s.reportRemoteError(err)
		}
	}
	restored, _ := s.applyPostMutation(id, func(p *Post) {
		p.IsDeleted = false
		p.DeletedAt = nil
	})
	s.persistPostsIfOffline(ctx)

	if index := s.searchIndex(); index != nil {
		index.IndexPost(restored)
	}
	s.notifs.Append("success", "Blog Restored", fmt.Sprintf("%q has been restored.", existing.Title), "♻️")
	return nil
}

// PurgePost permanently removes a record. It is irreversible and therefore
// demands the caller has collected an explicit confirmation.
func (s *Service) PurgePost(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return domainError(http.StatusBadRequest, "CONFIRMATION_REQUIRED", "Permanent deletion requires confirmation", nil)
	}
	existing, ok := s.GetPost(id)
	if !ok {
		return nil
	}

	if !s.IsOffline() {
		if err := s.remote.DeletePost(ctx, id); err != nil {
			return s.reportRemoteError(err)
		}
	}
	s.mu.Lock()
	kept := s.posts[:0:0]
	for _, p := range s.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	s.recomputeBadgesLocked()
	s.mu.Unlock()
	s.persistPostsIfOffline(ctx)

	if index := s.searchIndex(); index != nil {
		index.DeletePost(id)
	}
	s.notifs.Append("info", "Blog Permanently Deleted", fmt.Sprintf("%q has been permanently deleted.", existing.Title), "💀")
	return nil
}

// IncrementView bumps the advisory view counter. The read-then-write is not
// atomic across sessions; concurrent readers may lose an update, which is
// accepted for a counter that is informational only.
func (s *Service) IncrementView(ctx context.Context, id string) (int, error) {
	existing, ok := s.GetPost(id)
	if !ok {
		return 0, nil
	}
	next := existing.Views + 1

	if !s.IsOffline() {
		if err := s.remote.UpdatePost(ctx, id, map[string]any{"views": next}); err != nil {
			log.Printf("blog: update views for %s: %v", id, err)
			return existing.Views, nil
		}
	}
	s.applyPostMutation(id, func(p *Post) {
		p.Views = next
	})
	s.persistPostsIfOffline(ctx)
	return next, nil
}

// GetPost returns a copy of the post with the given id.
func (s *Service) GetPost(id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}

// Posts returns a copy of the whole collection, trash included.
func (s *Service) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePosts(s.posts)
}

// ActivePosts returns the non-deleted posts.
func (s *Service) ActivePosts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		if !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out
}

// TrashedPosts returns the soft-deleted posts.
func (s *Service) TrashedPosts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Post{}
	for _, p := range s.posts {
		if p.IsDeleted {
			out = append(out, p)
		}
	}
	return out
}

// processImage validates a pending data-URI upload, compresses it, and
// stores it in the asset store when one is configured while online. The
// stored value falls back to a compressed data URI otherwise. Already-stored
// URLs pass through untouched.
func (s *Service) processImage(ctx context.Context, id, image string) (string, error) {
	if image == "" || !strings.HasPrefix(image, "data:") {
		return image, nil
	}

	mime, data, err := imaging.DecodeDataURI(image)
	if err != nil {
		s.notifs.Append("error", "Image Error", "Error reading image file!", "❌")
		return "", imageError("Error reading image file!")
	}
	if mime != "image/jpeg" && mime != "image/jpg" && mime != "image/png" {
		s.notifs.Append("error", "Image Error", "Only JPG and PNG images are allowed!", "❌")
		return "", imageError("Only JPG and PNG images are allowed!")
	}
	if len(data) > s.imageMaxBytes {
		s.notifs.Append("error", "Image Error", "Image size must be less than 1MB!", "❌")
		return "", imageError("Image size must be less than 1MB!")
	}

	compressed, err := imaging.Compress(data, imageCompressBudget, imageMinQuality)
	if err != nil {
		s.notifs.Append("error", "Image Error", "Error reading image file!", "❌")
		return "", imageError("Error reading image file!")
	}

	if s.assets != nil && !s.IsOffline() {
		url, err := s.assets.PutImage(ctx, id, compressed, "image/jpeg")
		if err == nil {
			return url, nil
		}
		log.Printf("blog: store image for %s: %v", id, err)
	}
	return imaging.EncodeDataURI("image/jpeg", compressed), nil
}

func (s *Service) reportRemoteError(err error) error {
	code := ""
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		code = remoteErr.Code
	}
	message := friendlyRemoteMessage(code)
	s.notifs.Append("error", "Network Error", message, "🌐")
	return domainError(http.StatusBadGateway, "REMOTE_ERROR", message, map[string]any{"code": code})
}

// applyPostMutation mutates the in-memory copy of one post and recomputes
// badges. Returns the updated post.
func (s *Service) applyPostMutation(id string, fn func(*Post)) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			fn(&s.posts[i])
			s.recomputeBadgesLocked()
			return s.posts[i], true
		}
	}
	return Post{}, false
}

func (s *Service) persistPostsIfOffline(ctx context.Context) {
	s.mu.Lock()
	offline := s.mode == Offline
	snapshot := clonePosts(s.posts)
	s.mu.Unlock()
	if !offline {
		return
	}
	if err := s.persistPosts(ctx, snapshot); err != nil {
		log.Printf("blog: cache posts: %v", err)
	}
}

func defaultStatus(status string) string {
	if status == "" {
		return StatusPublish
	}
	return status
}

func clonePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	copy(out, posts)
	return out
}
