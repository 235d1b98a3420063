package blog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
)

// RemoteStore is the cloud document store collaborator. Post records cross
// this boundary as loosely-typed maps and are sanitized before use.
type RemoteStore interface {
	Subscribe(ctx context.Context, handlers SnapshotHandlers) (stop func(), err error)
	AddPost(ctx context.Context, post Post) error
	UpdatePost(ctx context.Context, id string, fields map[string]any) error
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context) ([]map[string]any, error)
	AddComment(ctx context.Context, comment Comment) error
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context) ([]Comment, error)
}

// SnapshotHandlers receive full-collection snapshots pushed by the remote
// store. Each snapshot is authoritative and replaces local state wholesale.
type SnapshotHandlers struct {
	OnPosts    func(records []map[string]any)
	OnComments func(comments []Comment)
	OnError    func(err error)
}

// LocalCache is the synchronous key-value store used in offline mode and for
// reply storage.
type LocalCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SearchIndex mirrors the post collection into an external search backend.
// Indexing is advisory; failures never affect the lifecycle operations.
type SearchIndex interface {
	IndexPost(post Post)
	DeletePost(id string)
}

// AssetStore persists compressed cover images and returns a serving URL.
type AssetStore interface {
	PutImage(ctx context.Context, id string, data []byte, contentType string) (string, error)
}

// Deps wires the Service to its collaborators. Index and Assets are
// optional; everything else is required.
type Deps struct {
	Remote        RemoteStore
	Cache         LocalCache
	Generate      func(locale string) []Post
	Index         SearchIndex
	Assets        AssetStore
	Locale        string
	ImageMaxBytes int
}

// Service owns the dashboard core: the online/offline mode state machine,
// the post and comment collections, the notification log, and the badge
// counters. All state mutation is serialized behind one mutex.
type Service struct {
	remote        RemoteStore
	cache         LocalCache
	generate      func(locale string) []Post
	index         SearchIndex
	assets        AssetStore
	locale        string
	imageMaxBytes int
	notifs        *NotificationLog

	mu       sync.Mutex
	mode     Mode
	identity *Identity
	posts    []Post
	comments []Comment
	replies  map[string][]Reply
	badges   Badges
	stop     func()
	baseCtx  context.Context
}

func New(deps Deps) *Service {
	locale := deps.Locale
	if locale == "" {
		locale = "en"
	}
	maxBytes := deps.ImageMaxBytes
	if maxBytes <= 0 {
		maxBytes = 1024 * 1024
	}
	return &Service{
		remote:        deps.Remote,
		cache:         deps.Cache,
		generate:      deps.Generate,
		index:         deps.Index,
		assets:        deps.Assets,
		locale:        locale,
		imageMaxBytes: maxBytes,
		notifs:        NewNotificationLog(),
		mode:          Online,
		replies:       map[string][]Reply{},
		baseCtx:       context.Background(),
	}
}

// SetIndex attaches the search index after construction. The index reads the
// live collection back out of the Service, so it cannot exist before it.
func (s *Service) SetIndex(index SearchIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
}

func (s *Service) searchIndex() SearchIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Start loads reply state and opens the remote subscription. The given
// context bounds the subscription and every background sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.loadRepliesLocked(ctx)
	online := s.mode == Online
	s.mu.Unlock()

	if online {
		return s.subscribe(ctx)
	}
	return nil
}

// Close tears down the remote subscription.
func (s *Service) Close() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Service) subscribe(ctx context.Context) error {
	stop, err := s.remote.Subscribe(ctx, SnapshotHandlers{
		OnPosts:    s.applyPostSnapshot,
		OnComments: s.applyCommentSnapshot,
		OnError:    s.handleRemoteFailure,
	})
	if err != nil {
		s.handleRemoteFailure(err)
		return err
	}
	s.mu.Lock()
	if s.mode != Online {
		// Went offline while the subscription was being set up.
		s.mu.Unlock()
		stop()
		return nil
	}
	s.stop = stop
	s.mu.Unlock()
	return nil
}

// applyPostSnapshot replaces the post collection with the pushed snapshot.
// Records are sanitized at the boundary and demo records are filtered out so
// they can never surface while online.
func (s *Service) applyPostSnapshot(records []map[string]any) {
	posts := make([]Post, 0, len(records))
	for _, raw := range records {
		post := Sanitize(raw)
		if post.IsMock() {
			continue
		}
		posts = append(posts, post)
	}

	s.mu.Lock()
	if s.mode != Online {
		s.mu.Unlock()
		return
	}
	s.posts = posts
	s.recomputeBadgesLocked()
	index := s.index
	s.mu.Unlock()

	if index != nil {
		for _, post := range posts {
			index.IndexPost(post)
		}
	}
}

func (s *Service) applyCommentSnapshot(comments []Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Online {
		return
	}
	s.comments = comments
	s.recomputeBadgesLocked()
}

// handleRemoteFailure reacts to subscription errors. Permission and
// availability failures flip the dashboard into offline demo mode; anything
// else only surfaces as a notification.
func (s *Service) handleRemoteFailure(err error) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		if remoteErr.Code == RemotePermissionDenied || remoteErr.Code == RemoteUnavailable {
			s.HandleOffline(s.baseCtx)
			return
		}
		s.notifs.Append("error", "Network Error", friendlyRemoteMessage(remoteErr.Code), "🌐")
		return
	}
	log.Printf("blog: remote subscription error: %v", err)
}

// HandleOffline is the Online -> Offline transition, triggered by the
// external network-loss signal or by a remote permission/availability
// failure. Repeated signals while already offline are no-ops.
func (s *Service) HandleOffline(ctx context.Context) {
	s.mu.Lock()
	if s.mode == Offline {
		s.mu.Unlock()
		return
	}
	s.mode = Offline
	stop := s.stop
	s.stop = nil
	s.posts = nil
	s.identity = &Identity{ID: "offline-demo", Email: "demo@offline.local", Anonymous: true}
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.notifs.Append("info", "Network Connection Lost", "Network connection lost. Showing demo data for offline use.", "🌐")
	s.loadOfflineData(ctx)
}

// HandleOnline is the Offline -> Online transition, triggered by the
// external network-restored signal. The demo dataset is discarded entirely,
// never merged, and any demo record that leaked into the remote store is
// swept asynchronously.
func (s *Service) HandleOnline(ctx context.Context) {
	s.mu.Lock()
	if s.mode == Online {
		s.mu.Unlock()
		return
	}
	s.mode = Online
	s.posts = nil
	s.comments = nil
	s.recomputeBadgesLocked()
	s.mu.Unlock()

	if err := s.cache.Remove(ctx, CacheKeyBlogs); err != nil {
		log.Printf("blog: clear cached demo posts: %v", err)
	}
	if err := s.cache.Remove(ctx, CacheKeyPopulated); err != nil {
		log.Printf("blog: clear populated flag: %v", err)
	}

	s.notifs.Append("success", "Connection Restored", "Network connection restored. Loading your real data...", "✅")

	if err := s.subscribe(ctx); err != nil {
		return
	}
	go s.cleanupMockData(s.baseCtx)
}

// cleanupMockData deletes any demo-prefixed record from the remote store.
// Defensive: demo records are never written remotely on purpose.
func (s *Service) cleanupMockData(ctx context.Context) {
	if s.IsOffline() {
		return
	}
	records, err := s.remote.ListPosts(ctx)
	if err != nil {
		log.Printf("blog: mock cleanup list: %v", err)
		return
	}
	for _, raw := range records {
		id := asString(raw["id"], "")
		if !strings.HasPrefix(id, MockPrefix) {
			continue
		}
		if err := s.remote.DeletePost(ctx, id); err != nil {
			log.Printf("blog: mock cleanup delete %s: %v", id, err)
		}
	}
}

// loadOfflineData populates the collections for offline mode: cached demo
// data when a previous offline session left some behind, a freshly generated
// dataset otherwise.
func (s *Service) loadOfflineData(ctx context.Context) {
	var comments []Comment
	if raw, ok, err := s.cache.Get(ctx, CacheKeyComments); err == nil && ok {
		if err := json.Unmarshal([]byte(raw), &comments); err != nil {
			comments = nil
		}
	}

	posts := s.cachedDemoPosts(ctx)
	if posts == nil {
		posts = s.seedDemoPosts(ctx)
	}

	s.mu.Lock()
	if s.mode != Offline {
		s.mu.Unlock()
		return
	}
	s.posts = posts
	s.comments = comments
	s.loadRepliesLocked(ctx)
	s.recomputeBadgesLocked()
	s.mu.Unlock()
}

// cachedDemoPosts returns the previously generated dataset, or nil when the
// populated flag is unset or the cache entry is unusable.
func (s *Service) cachedDemoPosts(ctx context.Context) []Post {
	if _, ok, err := s.cache.Get(ctx, CacheKeyPopulated); err != nil || !ok {
		return nil
	}
	raw, ok, err := s.cache.Get(ctx, CacheKeyBlogs)
	if err != nil || !ok {
		return nil
	}
	var posts []Post
	if err := json.Unmarshal([]byte(raw), &posts); err != nil || len(posts) == 0 {
		return nil
	}
	return posts
}

// seedDemoPosts generates a fresh demo dataset, prefixes the ids, stores it
// in the cache, and sets the populated flag so re-entering offline mode does
// not regenerate.
func (s *Service) seedDemoPosts(ctx context.Context) []Post {
	generated := s.generate(s.locale)
	posts := make([]Post, 0, len(generated))
	for _, post := range generated {
		post.ID = MockPrefix + post.ID
		post.IsDeleted = false
		post.DeletedAt = nil
		posts = append(posts, post)
	}
	if err := s.persistPosts(ctx, posts); err != nil {
		log.Printf("blog: cache demo posts: %v", err)
		return posts
	}
	if err := s.cache.Set(ctx, CacheKeyPopulated, "true"); err != nil {
		log.Printf("blog: set populated flag: %v", err)
	}
	return posts
}

// SetIdentity follows the auth collaborator's session signal. While offline
// the synthesized demo identity stays in place, matching the source system.
func (s *Service) SetIdentity(identity *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Offline {
		return
	}
	s.identity = identity
}

func (s *Service) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	clone := *s.identity
	return &clone
}

func (s *Service) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Service) IsOffline() bool {
	return s.Mode() == Offline
}

func (s *Service) Badges() Badges {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badges
}

// AcknowledgeBadge resets a single counter to zero. The counter snaps back
// on the next collection change.
func (s *Service) AcknowledgeBadge(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "blogs":
		s.badges.Blogs = 0
	case "comments":
		s.badges.Comments = 0
	case "trash":
		s.badges.Trash = 0
	}
}

func (s *Service) Notifications() []Notification {
	return s.notifs.List()
}

func (s *Service) UnreadNotifications() bool {
	return s.notifs.Unread()
}

func (s *Service) AcknowledgeNotifications() {
	s.notifs.Acknowledge()
}

func (s *Service) ClearNotifications() {
	s.notifs.Clear()
}

func (s *Service) recomputeBadgesLocked() {
	s.badges = deriveBadges(s.posts, s.comments)
}

func (s *Service) loadRepliesLocked(ctx context.Context) {
	raw, ok, err := s.cache.Get(ctx, CacheKeyReplies)
	if err != nil || !ok {
		return
	}
	replies := map[string][]Reply{}
	if err := json.Unmarshal([]byte(raw), &replies); err != nil {
		return
	}
	s.replies = replies
}

func (s *Service) persistPosts(ctx context.Context, posts []Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, CacheKeyBlogs, string(data))
}

func (s *Service) persistComments(ctx context.Context, comments []Comment) error {
	data, err := json.Marshal(comments)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, CacheKeyComments, string(data))
}

func (s *Service) persistReplies(ctx context.Context, replies map[string][]Reply) error {
	data, err := json.Marshal(replies)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, CacheKeyReplies, string(data))
}
