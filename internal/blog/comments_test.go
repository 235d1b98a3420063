package blog

import (
	"context"
	"strings"
	"testing"
)

func TestAddCommentBlankIsNoOp(t *testing.T) {
	remote := &fakeRemote{
		addCommentFn: func(context.Context, Comment) error {
			t.Fatal("blank comment reached the remote store")
			return nil
		},
	}
	svc := newTestService(remote, nil)

	comment, err := svc.AddComment(context.Background(), "   ", "b_1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if comment.ID != "" {
		t.Errorf("blank comment created: %+v", comment)
	}
	if len(svc.Comments()) != 0 {
		t.Error("blank comment applied")
	}
}

func TestAddCommentOnline(t *testing.T) {
	var stored Comment
	remote := &fakeRemote{
		addCommentFn: func(_ context.Context, comment Comment) error {
			stored = comment
			return nil
		},
	}
	svc := newTestService(remote, nil)

	comment, err := svc.AddComment(context.Background(), "Nice write-up", "b_1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.HasPrefix(comment.ID, "c_") {
		t.Errorf("unexpected comment id: %q", comment.ID)
	}
	if stored.ID != comment.ID {
		t.Error("comment not written to the remote store")
	}
	if comment.Author != "Current User" || comment.Status != "Published" {
		t.Errorf("unexpected comment defaults: %+v", comment)
	}
	if badges := svc.Badges(); badges.Comments != 1 {
		t.Errorf("comment badge not incremented: %+v", badges)
	}
}

func TestAddCommentOfflinePersistsToCache(t *testing.T) {
	remote := &fakeRemote{
		addCommentFn: func(context.Context, Comment) error {
			t.Fatal("remote write while offline")
			return nil
		},
	}
	cache := newFakeCache()
	svc := newTestService(remote, cache)
	svc.HandleOffline(context.Background())

	comment, err := svc.AddComment(context.Background(), "Offline thought", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	raw, ok := cache.get(CacheKeyComments)
	if !ok || !strings.Contains(raw, comment.ID) {
		t.Error("offline comment not persisted to cache")
	}
}

func TestDeleteCommentFloorsBadge(t *testing.T) {
	svc := newTestService(nil, nil)
	comment, err := svc.AddComment(context.Background(), "Delete me", "b_1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.DeleteComment(context.Background(), comment.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(svc.Comments()) != 0 {
		t.Error("comment still present")
	}
	if badges := svc.Badges(); badges.Comments != 0 {
		t.Errorf("badge not decremented: %+v", badges)
	}

	// Deleting an unknown id must not drive the badge negative.
	if err := svc.DeleteComment(context.Background(), "c_unknown"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	if badges := svc.Badges(); badges.Comments != 0 {
		t.Errorf("badge went negative: %+v", badges)
	}
}

func TestAddReplyPersistsInBothModes(t *testing.T) {
	cache := newFakeCache()
	svc := newTestService(nil, cache)

	reply, err := svc.AddReply(context.Background(), "c_1", "Thanks!")
	if err != nil {
		t.Fatalf("reply online: %v", err)
	}
	if !strings.HasPrefix(reply.ID, "reply_") || reply.Author != "Admin" {
		t.Errorf("unexpected reply: %+v", reply)
	}
	raw, ok := cache.get(CacheKeyReplies)
	if !ok || !strings.Contains(raw, reply.ID) {
		t.Error("online reply not persisted to cache")
	}

	svc.HandleOffline(context.Background())
	second, err := svc.AddReply(context.Background(), "c_1", "Still here")
	if err != nil {
		t.Fatalf("reply offline: %v", err)
	}
	thread := svc.Replies("c_1")
	if len(thread) != 2 || thread[0].ID != reply.ID || thread[1].ID != second.ID {
		t.Errorf("unexpected thread order: %+v", thread)
	}

	if blank, _ := svc.AddReply(context.Background(), "c_1", " "); blank.ID != "" {
		t.Error("blank reply created")
	}
}

func TestCommentsByCategory(t *testing.T) {
	svc := newTestService(nil, nil)
	svc.mu.Lock()
	svc.posts = []Post{
		{ID: "b_tech", Category: "Technology"},
		{ID: "b_health", Category: "Health"},
		{ID: "b_gone", Category: "Technology", IsDeleted: true},
	}
	svc.comments = []Comment{
		{ID: "c_1", BlogID: "b_tech"},
		{ID: "c_2", BlogID: "b_health"},
		{ID: "c_3", BlogID: "b_gone"},
	}
	svc.mu.Unlock()

	tech := svc.CommentsByCategory("Technology")
	if len(tech) != 1 || tech[0].ID != "c_1" {
		t.Errorf("unexpected technology comments: %+v", tech)
	}
	if all := svc.CommentsByCategory("All"); len(all) != 3 {
		t.Errorf("All filter returned %d comments", len(all))
	}
	if all := svc.CommentsByCategory(""); len(all) != 3 {
		t.Errorf("empty filter returned %d comments", len(all))
	}
	if none := svc.CommentsByCategory("Finance"); len(none) != 0 {
		t.Errorf("unexpected finance comments: %+v", none)
	}
}
