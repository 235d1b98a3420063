package mockdata

import (
	"testing"
	"time"

	"edwid/api/internal/blog"
)

func TestGenerateShape(t *testing.T) {
	posts := Generate("en")
	if len(posts) != 6 {
		t.Fatalf("expected 6 demo posts, got %d", len(posts))
	}

	for i, p := range posts {
		if p.ID == "" || p.Title == "" || p.Description == "" || p.Author == "" {
			t.Errorf("post %d has empty fields: %+v", i, p)
		}
		if p.IsDeleted || p.DeletedAt != nil {
			t.Errorf("post %d generated as deleted", i)
		}
		if p.Views < 100 || p.Views >= 2000 {
			t.Errorf("post %d views out of range: %d", i, p.Views)
		}
		if _, err := time.Parse("2006-01-02", p.PublishDate); err != nil {
			t.Errorf("post %d publish date unparseable: %q", i, p.PublishDate)
		}
	}

	if posts[len(posts)-1].Status != blog.StatusDraft {
		t.Error("expected the last demo post to be a draft")
	}
	for _, p := range posts[:len(posts)-1] {
		if p.Status != blog.StatusPublish {
			t.Errorf("expected published status, got %q", p.Status)
		}
	}
}

func TestGenerateLocales(t *testing.T) {
	english := Generate("en")
	spanish := Generate("es")
	if english[0].Title == spanish[0].Title {
		t.Error("locales share titles")
	}

	fallback := Generate("pt")
	if fallback[0].Title != english[0].Title {
		t.Error("unknown locale did not fall back to English")
	}
}

func TestGenerateCategories(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Generate("de") {
		seen[p.Category] = true
	}
	for _, want := range []string{"Technology", "Lifestyle", "Education", "Health", "Finance"} {
		if !seen[want] {
			t.Errorf("category %s missing from demo data", want)
		}
	}
}
