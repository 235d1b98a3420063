package blog

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRemote struct {
	subscribeFn     func(context.Context, SnapshotHandlers) (func(), error)
	addPostFn       func(context.Context, Post) error
	updatePostFn    func(context.Context, string, map[string]any) error
	deletePostFn    func(context.Context, string) error
	listPostsFn     func(context.Context) ([]map[string]any, error)
	addCommentFn    func(context.Context, Comment) error
	deleteCommentFn func(context.Context, string) error
	listCommentsFn  func(context.Context) ([]Comment, error)
}

func (f *fakeRemote) Subscribe(ctx context.Context, handlers SnapshotHandlers) (func(), error) {
	if f.subscribeFn != nil {
		return f.subscribeFn(ctx, handlers)
	}
	return func() {}, nil
}
func (f *fakeRemote) AddPost(ctx context.Context, post Post) error {
	if f.addPostFn != nil {
		return f.addPostFn(ctx, post)
	}
	return nil
}
func (f *fakeRemote) UpdatePost(ctx context.Context, id string, fields map[string]any) error {
	if f.updatePostFn != nil {
		return f.updatePostFn(ctx, id, fields)
	}
	return nil
}
func (f *fakeRemote) DeletePost(ctx context.Context, id string) error {
	if f.deletePostFn != nil {
		return f.deletePostFn(ctx, id)
	}
	return nil
}
func (f *fakeRemote) ListPosts(ctx context.Context) ([]map[string]any, error) {
	if f.listPostsFn != nil {
		return f.listPostsFn(ctx)
	}
	return nil, nil
}
func (f *fakeRemote) AddComment(ctx context.Context, comment Comment) error {
	if f.addCommentFn != nil {
		return f.addCommentFn(ctx, comment)
	}
	return nil
}
func (f *fakeRemote) DeleteComment(ctx context.Context, id string) error {
	if f.deleteCommentFn != nil {
		return f.deleteCommentFn(ctx, id)
	}
	return nil
}
func (f *fakeRemote) ListComments(ctx context.Context) ([]Comment, error) {
	if f.listCommentsFn != nil {
		return f.listCommentsFn(ctx)
	}
	return nil, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	return value, ok, nil
}
func (f *fakeCache) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}
func (f *fakeCache) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}
func (f *fakeCache) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	return value, ok
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (f *fakeIndex) IndexPost(post Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, post.ID)
}

func (f *fakeIndex) DeletePost(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

func (f *fakeIndex) hasIndexed(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, got := range f.indexed {
		if got == id {
			return true
		}
	}
	return false
}

func (f *fakeIndex) hasDeleted(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, got := range f.deleted {
		if got == id {
			return true
		}
	}
	return false
}

func demoGenerator(locale string) []Post {
	return []Post{
		{ID: "1", Title: "Demo One", Category: "Technology", Author: "A", PublishDate: "2025-01-10", Status: StatusPublish, Views: 10},
		{ID: "2", Title: "Demo Two", Category: "Health", Author: "B", PublishDate: "2025-02-10", Status: StatusDraft, Views: 20},
	}
}

func newTestService(remote *fakeRemote, cache *fakeCache) *Service {
	if remote == nil {
		remote = &fakeRemote{}
	}
	if cache == nil {
		cache = newFakeCache()
	}
	return New(Deps{
		Remote:   remote,
		Cache:    cache,
		Generate: demoGenerator,
	})
}

func TestOfflineSeedsDemoData(t *testing.T) {
	cache := newFakeCache()
	svc := newTestService(nil, cache)

	svc.HandleOffline(context.Background())

	if svc.Mode() != Offline {
		t.Fatalf("expected offline mode, got %v", svc.Mode())
	}
	posts := svc.Posts()
	if len(posts) != 2 {
		t.Fatalf("expected 2 demo posts, got %d", len(posts))
	}
	for _, p := range posts {
		if !strings.HasPrefix(p.ID, MockPrefix) {
			t.Errorf("demo post id %q missing prefix", p.ID)
		}
	}
	if flag, ok := cache.get(CacheKeyPopulated); !ok || flag != "true" {
		t.Errorf("populated flag = %q, %v", flag, ok)
	}
	if _, ok := cache.get(CacheKeyBlogs); !ok {
		t.Error("demo posts not cached")
	}

	identity := svc.Identity()
	if identity == nil || identity.ID != "offline-demo" || !identity.Anonymous {
		t.Errorf("unexpected demo identity: %+v", identity)
	}

	notifs := svc.Notifications()
	if len(notifs) != 1 || notifs[0].Title != "Network Connection Lost" || notifs[0].Icon != "🌐" {
		t.Errorf("unexpected notifications: %+v", notifs)
	}

	// A second offline signal is a no-op.
	svc.HandleOffline(context.Background())
	if got := len(svc.Notifications()); got != 1 {
		t.Errorf("repeated offline signal appended notifications: %d", got)
	}
}

func TestOfflineReusesCachedDemoData(t *testing.T) {
	cache := newFakeCache()
	cached := []Post{{ID: MockPrefix + "1", Title: "Cached Demo", Status: StatusPublish}}
	raw, _ := json.Marshal(cached)
	cache.data[CacheKeyBlogs] = string(raw)
	cache.data[CacheKeyPopulated] = "true"

	svc := New(Deps{
		Remote: &fakeRemote{},
		Cache:  cache,
		Generate: func(locale string) []Post {
			t.Fatal("generator called despite cached demo data")
			return nil
		},
	})
	svc.HandleOffline(context.Background())

	posts := svc.Posts()
	if len(posts) != 1 || posts[0].Title != "Cached Demo" {
		t.Fatalf("expected cached demo post, got %+v", posts)
	}
}

func TestOnlineDiscardsDemoDataAndSweepsRemote(t *testing.T) {
	deleted := make(chan string, 4)
	remote := &fakeRemote{
		listPostsFn: func(context.Context) ([]map[string]any, error) {
			return []map[string]any{
				{"id": MockPrefix + "9", "title": "Leaked demo"},
				{"id": "b_real", "title": "Real"},
			}, nil
		},
		deletePostFn: func(_ context.Context, id string) error {
			deleted <- id
			return nil
		},
	}
	cache := newFakeCache()
	svc := newTestService(remote, cache)

	svc.HandleOffline(context.Background())
	svc.HandleOnline(context.Background())

	if svc.Mode() != Online {
		t.Fatalf("expected online mode, got %v", svc.Mode())
	}
	if len(svc.Posts()) != 0 {
		t.Error("demo posts survived the return to online mode")
	}
	if _, ok := cache.get(CacheKeyBlogs); ok {
		t.Error("cached demo posts not removed")
	}
	if _, ok := cache.get(CacheKeyPopulated); ok {
		t.Error("populated flag not removed")
	}

	select {
	case id := <-deleted:
		if id != MockPrefix+"9" {
			t.Errorf("swept wrong record: %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mock sweep never ran")
	}
	select {
	case id := <-deleted:
		t.Errorf("swept non-demo record: %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeFailureFlipsOffline(t *testing.T) {
	remote := &fakeRemote{
		subscribeFn: func(context.Context, SnapshotHandlers) (func(), error) {
			return nil, &RemoteError{Code: RemotePermissionDenied, Message: "denied"}
		},
	}
	svc := newTestService(remote, nil)

	_ = svc.Start(context.Background())

	if svc.Mode() != Offline {
		t.Fatalf("expected offline mode after permission failure, got %v", svc.Mode())
	}
	if len(svc.Posts()) == 0 {
		t.Error("demo data not loaded after failover")
	}
}

func TestSnapshotSanitizesAndFiltersMockRecords(t *testing.T) {
	var handlers SnapshotHandlers
	remote := &fakeRemote{
		subscribeFn: func(_ context.Context, h SnapshotHandlers) (func(), error) {
			handlers = h
			return func() {}, nil
		},
	}
	svc := newTestService(remote, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Close()

	handlers.OnPosts([]map[string]any{
		{"id": "b_1", "title": "Real", "views": float64(7), "isDeleted": false},
		{"id": MockPrefix + "1", "title": "Leaked demo"},
		{"id": "b_2", "views": "not-a-number", "status": nil, "isDeleted": true},
	})

	posts := svc.Posts()
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts after filtering, got %d", len(posts))
	}
	if posts[0].ID != "b_1" || posts[0].Views != 7 {
		t.Errorf("unexpected first post: %+v", posts[0])
	}
	if posts[1].Views != 0 || posts[1].Status != StatusPublish {
		t.Errorf("malformed record not defaulted: %+v", posts[1])
	}
	if posts[1].DeletedAt == nil {
		t.Error("deleted record missing deletion timestamp")
	}

	badges := svc.Badges()
	if badges.Blogs != 1 || badges.Trash != 1 {
		t.Errorf("unexpected badges: %+v", badges)
	}
}

func TestSnapshotIgnoredWhileOffline(t *testing.T) {
	var handlers SnapshotHandlers
	remote := &fakeRemote{
		subscribeFn: func(_ context.Context, h SnapshotHandlers) (func(), error) {
			handlers = h
			return func() {}, nil
		},
	}
	svc := newTestService(remote, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	svc.HandleOffline(context.Background())

	before := svc.Posts()
	handlers.OnPosts([]map[string]any{{"id": "b_1", "title": "Late snapshot"}})
	after := svc.Posts()
	if len(after) != len(before) {
		t.Error("snapshot applied while offline")
	}
}

func TestSetIdentityIgnoredWhileOffline(t *testing.T) {
	svc := newTestService(nil, nil)
	svc.HandleOffline(context.Background())

	svc.SetIdentity(&Identity{ID: "u_real", Email: "real@example.com"})

	identity := svc.Identity()
	if identity == nil || identity.ID != "offline-demo" {
		t.Errorf("identity changed while offline: %+v", identity)
	}

	svc.HandleOnline(context.Background())
	svc.SetIdentity(&Identity{ID: "u_real", Email: "real@example.com"})
	identity = svc.Identity()
	if identity == nil || identity.ID != "u_real" {
		t.Errorf("identity not updated while online: %+v", identity)
	}
}

func TestRemoteFailureNotificationForOtherCodes(t *testing.T) {
	svc := newTestService(nil, nil)
	svc.handleRemoteFailure(&RemoteError{Code: RemoteQuotaExceeded, Message: "full"})

	if svc.Mode() != Online {
		t.Fatalf("quota failure must not flip mode, got %v", svc.Mode())
	}
	notifs := svc.Notifications()
	if len(notifs) != 1 || !strings.Contains(notifs[0].Message, "quota") {
		t.Errorf("unexpected notifications: %+v", notifs)
	}
}

func TestSetIndexRoutesLifecycleEvents(t *testing.T) {
	svc := newTestService(nil, nil)
	index := &fakeIndex{}
	svc.SetIndex(index)

	post, err := svc.CreatePost(context.Background(), PostInput{
		Title:       "Indexed",
		Description: "Body",
		Category:    "Technology",
		Author:      "A",
		PublishDate: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !index.hasIndexed(post.ID) {
		t.Error("created post not indexed")
	}

	if err := svc.SoftDeletePost(context.Background(), post.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !index.hasDeleted(post.ID) {
		t.Error("trashed post not deindexed")
	}

	// Swapping the index while operations run must stay race-free.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			svc.SetIndex(&fakeIndex{})
		}
	}()
	for i := 0; i < 50; i++ {
		_ = svc.RestorePost(context.Background(), post.ID)
		_ = svc.SoftDeletePost(context.Background(), post.ID)
	}
	<-done
}

func TestAcknowledgeBadge(t *testing.T) {
	svc := newTestService(nil, nil)
	svc.mu.Lock()
	svc.posts = []Post{{ID: "b_1"}, {ID: "b_2", IsDeleted: true}}
	svc.comments = []Comment{{ID: "c_1"}}
	svc.recomputeBadgesLocked()
	svc.mu.Unlock()

	svc.AcknowledgeBadge("blogs")
	if badges := svc.Badges(); badges.Blogs != 0 || badges.Comments != 1 || badges.Trash != 1 {
		t.Errorf("unexpected badges after ack: %+v", badges)
	}
}
