package blog

import (
	"context"
	"log"
	"strings"
	"time"

	"edwid/api/internal/util"
)

// Author labels for comments and replies match the source dashboard.
const (
	commentAuthor = "Current User"
	replyAuthor   = "Admin"
)

// AddComment appends a top-level comment. Blank text is a silent no-op; the
// interaction surface is expected to have validated it already.
func (s *Service) AddComment(ctx context.Context, text, blogID string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, nil
	}

	comment := Comment{
		ID:     util.TimeID("c_"),
		Author: commentAuthor,
		Text:   text,
		Date:   time.Now(),
		Status: "Published",
		BlogID: blogID,
	}

	if s.IsOffline() {
		s.mu.Lock()
		s.comments = append([]Comment{comment}, s.comments...)
		s.badges.Comments++
		snapshot := cloneComments(s.comments)
		s.mu.Unlock()
		if err := s.persistComments(ctx, snapshot); err != nil {
			log.Printf("blog: cache comments: %v", err)
		}
	} else {
		if err := s.remote.AddComment(ctx, comment); err != nil {
			return Comment{}, s.reportRemoteError(err)
		}
		s.mu.Lock()
		s.comments = append([]Comment{comment}, s.comments...)
		s.badges.Comments++
		s.mu.Unlock()
	}
	return comment, nil
}

// DeleteComment removes a comment by id and decrements the comment badge,
// floored at zero.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	if !s.IsOffline() {
		if err := s.remote.DeleteComment(ctx, id); err != nil {
			return s.reportRemoteError(err)
		}
	}

	s.mu.Lock()
	kept := s.comments[:0:0]
	for _, c := range s.comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	if s.badges.Comments > 0 {
		s.badges.Comments--
	}
	snapshot := cloneComments(s.comments)
	offline := s.mode == Offline
	s.mu.Unlock()

	if offline {
		if err := s.persistComments(ctx, snapshot); err != nil {
			log.Printf("blog: cache comments: %v", err)
		}
	}
	return nil
}

// AddReply appends to the reply thread of a comment. Reply threads live in
// the local cache in both modes and never reach the remote store.
func (s *Service) AddReply(ctx context.Context, commentID, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, nil
	}

	reply := Reply{
		ID:     util.TimeID("reply_"),
		Author: replyAuthor,
		Text:   text,
		Date:   time.Now(),
	}

	s.mu.Lock()
	s.replies[commentID] = append(s.replies[commentID], reply)
	snapshot := cloneReplies(s.replies)
	s.mu.Unlock()

	if err := s.persistReplies(ctx, snapshot); err != nil {
		log.Printf("blog: cache replies: %v", err)
	}
	return reply, nil
}

// Comments returns a copy of the comment collection.
func (s *Service) Comments() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneComments(s.comments)
}

// CommentsByCategory filters comments to those on non-deleted posts of the
// given category. An empty category returns everything.
func (s *Service) CommentsByCategory(category string) []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category == "" || category == "All" {
		return cloneComments(s.comments)
	}
	ids := map[string]bool{}
	for _, p := range s.posts {
		if !p.IsDeleted && p.Category == category {
			ids[p.ID] = true
		}
	}
	out := []Comment{}
	for _, c := range s.comments {
		if ids[c.BlogID] {
			out = append(out, c)
		}
	}
	return out
}

// Replies returns the append-ordered reply thread for a comment.
func (s *Service) Replies(commentID string) []Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.replies[commentID]
	out := make([]Reply, len(thread))
	copy(out, thread)
	return out
}

func cloneComments(comments []Comment) []Comment {
	out := make([]Comment, len(comments))
	copy(out, comments)
	return out
}

func cloneReplies(replies map[string][]Reply) map[string][]Reply {
	out := make(map[string][]Reply, len(replies))
	for id, thread := range replies {
		copied := make([]Reply, len(thread))
		copy(copied, thread)
		out[id] = copied
	}
	return out
}
