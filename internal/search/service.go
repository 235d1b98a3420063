package search

import (
	"log"
	"sort"
	"strings"

	"edwid/api/internal/blog"
)

// Service is the facade that tries Meilisearch first and falls back to an
// in-memory scan of the live post collection. It satisfies the dashboard
// core's SearchIndex contract.
type Service struct {
	meili  *Meili
	source func() []blog.Post
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured; source supplies the posts scanned by the fallback.
func NewService(meili *Meili, source func() []blog.Post) *Service {
	return &Service{meili: meili, source: source}
}

// IndexPost mirrors a post into Meilisearch, fire-and-forget. Soft-deleted
// posts are removed from the index instead so trash never matches.
func (s *Service) IndexPost(post blog.Post) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if post.IsDeleted {
			if err := s.meili.DeletePost(post.ID); err != nil {
				log.Printf("search: deindex post %s: %v", post.ID, err)
			}
			return
		}
		if err := s.meili.IndexPost(toResult(post)); err != nil {
			log.Printf("search: index post %s: %v", post.ID, err)
		}
	}()
}

// DeletePost removes a post from the search index, fire-and-forget.
func (s *Service) DeletePost(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePost(id); err != nil {
			log.Printf("search: delete post %s: %v", id, err)
		}
	}()
}

// Search tries Meilisearch if healthy, otherwise scans the live collection.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}

	results := s.scan(q)
	total := len(results)
	results = paginate(results, q.Offset, q.Limit)
	return Response{Results: results, Total: total, Query: q.Text}
}

// scan filters the live posts by case-insensitive substring match on the
// searched fields. Soft-deleted posts never match.
func (s *Service) scan(q Query) []Result {
	if s.source == nil {
		return []Result{}
	}
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	results := []Result{}
	for _, post := range s.source() {
		if post.IsDeleted {
			continue
		}
		if q.Category != "" && q.Category != "All" && post.Category != q.Category {
			continue
		}
		if needle != "" && !matches(post, q.Field, needle) {
			continue
		}
		results = append(results, toResult(post))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PublishDate > results[j].PublishDate
	})
	return results
}

func matches(post blog.Post, field, needle string) bool {
	contains := func(value string) bool {
		return strings.Contains(strings.ToLower(value), needle)
	}
	switch field {
	case "title":
		return contains(post.Title)
	case "author":
		return contains(post.Author)
	case "category":
		return contains(post.Category)
	default:
		return contains(post.Title) || contains(post.Author) || contains(post.Category)
	}
}

func paginate(results []Result, offset, limit int) []Result {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

func toResult(post blog.Post) Result {
	return Result{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Category:    post.Category,
		Author:      post.Author,
		PublishDate: post.PublishDate,
		Status:      post.Status,
		Views:       post.Views,
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
