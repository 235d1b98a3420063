package blog

import "time"

// MockPrefix marks generated demo posts. Records carrying it are immutable
// from the dashboard and must never survive a return to online mode.
const MockPrefix = "mock_blog_"

// Post statuses accepted by the dashboard.
const (
	StatusDraft   = "Draft"
	StatusPublish = "Publish"
)

type Post struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Author      string     `json:"author"`
	PublishDate string     `json:"publishDate"`
	Status      string     `json:"status"`
	Views       int        `json:"views"`
	Image       string     `json:"image"`
	IsDeleted   bool       `json:"isDeleted"`
	DeletedAt   *time.Time `json:"deletedAt"`
	CreatedAt   *time.Time `json:"createdAt"`
}

// IsMock reports whether the post is a generated demo record.
func (p Post) IsMock() bool {
	return len(p.ID) >= len(MockPrefix) && p.ID[:len(MockPrefix)] == MockPrefix
}

type Comment struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
	// BlogID is empty when the comment applies to all posts.
	BlogID string `json:"blogId,omitempty"`
}

type Reply struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	Timestamp time.Time `json:"timestamp"`
}

// Badges are the unread/pending counters shown in the sidebar. They are
// derived from the current collections, never persisted.
type Badges struct {
	Blogs    int `json:"blogs"`
	Comments int `json:"comments"`
	Trash    int `json:"trash"`
}

// Mode is the process-wide operating state. It is owned by the Service and
// mutated only through the two transition operations.
type Mode int

const (
	Online Mode = iota
	Offline
)

func (m Mode) String() string {
	if m == Offline {
		return "offline"
	}
	return "online"
}

// Identity is the acting user as seen by the core. Offline mode synthesizes
// a demo identity that is never persisted anywhere.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Anonymous bool   `json:"anonymous"`
}

// PostInput carries the editable fields of a post submission. Image is
// either a data URI (pending upload) or an already-stored URL.
type PostInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Author      string `json:"author"`
	PublishDate string `json:"publishDate"`
	Status      string `json:"status"`
	Image       string `json:"image"`
}

// Local cache keys shared with the browser build of the dashboard.
const (
	CacheKeyBlogs     = "edwid_blogs"
	CacheKeyComments  = "edwid_comments"
	CacheKeyReplies   = "edwid_replies"
	CacheKeyPopulated = "blogsPopulated"
)
