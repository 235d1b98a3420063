package blog

import (
	"strconv"
	"time"
)

// Sanitize normalizes a raw record from the remote store into a Post. Every
// field is coerced to its declared type and defaulted when absent or
// malformed; it never fails. All records entering the system from the store
// pass through here before anything downstream sees them.
func Sanitize(raw map[string]any) Post {
	post := Post{
		ID:          asString(raw["id"], ""),
		Title:       asString(raw["title"], ""),
		Description: asString(raw["description"], ""),
		Category:    asString(raw["category"], ""),
		Author:      asString(raw["author"], ""),
		PublishDate: asString(raw["publishDate"], ""),
		Status:      asString(raw["status"], StatusPublish),
		Views:       asInt(raw["views"]),
		Image:       asString(raw["image"], ""),
		IsDeleted:   asBool(raw["isDeleted"]),
		DeletedAt:   asTime(raw["deletedAt"]),
		CreatedAt:   asTime(raw["createdAt"]),
	}
	if post.Views < 0 {
		post.Views = 0
	}
	if post.Status == "" {
		post.Status = StatusPublish
	}
	// Uphold the invariant regardless of what the store handed us.
	if !post.IsDeleted {
		post.DeletedAt = nil
	} else if post.DeletedAt == nil {
		now := time.Now()
		post.DeletedAt = &now
	}
	return post
}

func asString(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	case nil:
		return fallback
	default:
		return fallback
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		parsed, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
