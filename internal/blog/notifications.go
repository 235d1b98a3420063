package blog

import (
	"sync"
	"time"
)

// maxNotifications caps the log; older entries fall off the end.
const maxNotifications = 20

// NotificationLog is the append-only, capped list of user-facing events.
// Newest entries come first. It is ephemeral UI state and never persisted.
type NotificationLog struct {
	mu      sync.Mutex
	entries []Notification
	unread  bool
	lastID  int64
}

func NewNotificationLog() *NotificationLog {
	return &NotificationLog{}
}

func (l *NotificationLog) Append(kind, title, message, icon string) Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	id := now.UnixMilli()
	// Timestamp-derived ids collide when two events land in the same
	// millisecond; keep them strictly increasing.
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	entry := Notification{
		ID:        id,
		Type:      kind,
		Title:     title,
		Message:   message,
		Icon:      icon,
		Timestamp: now,
	}
	l.entries = append([]Notification{entry}, l.entries...)
	if len(l.entries) > maxNotifications {
		l.entries = l.entries[:maxNotifications]
	}
	l.unread = true
	return entry
}

func (l *NotificationLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.unread = false
}

// Acknowledge dismisses the unread indicator without touching the entries.
func (l *NotificationLog) Acknowledge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unread = false
}

func (l *NotificationLog) Unread() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unread
}

func (l *NotificationLog) List() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.entries))
	copy(out, l.entries)
	return out
}
