package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edwid/api/internal/auth"
	"edwid/api/internal/blog"
	"edwid/api/internal/store"
)

type stubRemote struct{}

func (stubRemote) Subscribe(context.Context, blog.SnapshotHandlers) (func(), error) {
	return func() {}, nil
}
func (stubRemote) AddPost(context.Context, blog.Post) error                 { return nil }
func (stubRemote) UpdatePost(context.Context, string, map[string]any) error { return nil }
func (stubRemote) DeletePost(context.Context, string) error                 { return nil }
func (stubRemote) ListPosts(context.Context) ([]map[string]any, error)      { return nil, nil }
func (stubRemote) AddComment(context.Context, blog.Comment) error           { return nil }
func (stubRemote) DeleteComment(context.Context, string) error              { return nil }
func (stubRemote) ListComments(context.Context) ([]blog.Comment, error)     { return nil, nil }

type stubCache struct{ data map[string]string }

func (c *stubCache) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := c.data[key]
	return value, ok, nil
}
func (c *stubCache) Set(_ context.Context, key, value string) error {
	c.data[key] = value
	return nil
}
func (c *stubCache) Remove(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type stubUsers struct{ users map[string]store.User }

func (s *stubUsers) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, store.ErrUserNotFound
}
func (s *stubUsers) GetUserByID(_ context.Context, id string) (store.User, error) {
	u, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrUserNotFound
	}
	return u, nil
}
func (s *stubUsers) CreateUser(_ context.Context, user store.User) error {
	s.users[user.ID] = user
	return nil
}

func newTestServer(t *testing.T) (*HTTPServer, string) {
	t.Helper()

	blogService := blog.New(blog.Deps{
		Remote: stubRemote{},
		Cache:  &stubCache{data: map[string]string{}},
		Generate: func(string) []blog.Post {
			return []blog.Post{{ID: "1", Title: "Demo", Status: blog.StatusPublish}}
		},
	})
	authService := auth.NewService(&stubUsers{users: map[string]store.User{}}, "test-secret", time.Hour)

	server := NewHTTPServer(Deps{
		Blog:       blogService,
		Auth:       authService,
		CORSOrigin: "*",
	})

	result, err := authService.SignUp(context.Background(), auth.SignUpRequest{
		Email:    "writer@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return server, result.Token
}

func doRequest(server *HTTPServer, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthNeedsNoAuth(t *testing.T) {
	server, _ := newTestServer(t)
	resp := doRequest(server, http.MethodGet, "/api/health", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("health status = %d", resp.Code)
	}
	if origin := resp.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS origin = %q", origin)
	}
	if resp.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(server, http.MethodGet, "/api/posts", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.Code)
	}

	resp = doRequest(server, http.MethodGet, "/api/posts", "garbage-token", "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", resp.Code)
	}
}

func TestProviderSignInOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(server, http.MethodPost, "/api/auth/provider", "", `{
		"provider": "google",
		"subject": "sub-123",
		"email": "federated@example.com",
		"displayName": "Fed"
	}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("provider sign-in status = %d body=%s", resp.Code, resp.Body.String())
	}
	var body struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" || body.Email != "federated@example.com" {
		t.Fatalf("unexpected sign-in payload: %+v", body)
	}

	posts := doRequest(server, http.MethodGet, "/api/posts", body.Token, "")
	if posts.Code != http.StatusOK {
		t.Errorf("federated token rejected: %d", posts.Code)
	}

	bad := doRequest(server, http.MethodPost, "/api/auth/provider", "", `{"provider": "google"}`)
	if bad.Code != http.StatusUnauthorized {
		t.Errorf("incomplete assertion status = %d", bad.Code)
	}
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	server, token := newTestServer(t)

	create := doRequest(server, http.MethodPost, "/api/posts", token, `{
		"title": "HTTP Post",
		"description": "Body",
		"category": "Technology",
		"author": "Jane",
		"publishDate": "2025-03-01"
	}`)
	if create.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", create.Code, create.Body.String())
	}
	var created struct {
		Post blog.Post `json:"post"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	list := doRequest(server, http.MethodGet, "/api/posts", token, "")
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), created.Post.ID) {
		t.Errorf("list status=%d body=%s", list.Code, list.Body.String())
	}

	del := doRequest(server, http.MethodDelete, "/api/posts/"+created.Post.ID, token, "")
	if del.Code != http.StatusOK {
		t.Fatalf("delete status = %d", del.Code)
	}

	trash := doRequest(server, http.MethodGet, "/api/trash", token, "")
	if !strings.Contains(trash.Body.String(), created.Post.ID) {
		t.Errorf("trash missing post: %s", trash.Body.String())
	}

	purgeNoConfirm := doRequest(server, http.MethodDelete, "/api/posts/"+created.Post.ID+"/purge", token, "")
	if purgeNoConfirm.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed purge status = %d", purgeNoConfirm.Code)
	}
	purge := doRequest(server, http.MethodDelete, "/api/posts/"+created.Post.ID+"/purge?confirm=true", token, "")
	if purge.Code != http.StatusOK {
		t.Errorf("purge status = %d", purge.Code)
	}
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(server, http.MethodPost, "/api/posts", token, `{"title": "only a title"}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s", resp.Code, resp.Body.String())
	}
	var body struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", body.Code)
	}
	if body.Details["description"] != "Description is required!" {
		t.Errorf("details = %+v", body.Details)
	}
}

func TestModeSignalsOverHTTP(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(server, http.MethodPost, "/api/mode/offline", token, "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "offline") {
		t.Fatalf("offline: status=%d body=%s", resp.Code, resp.Body.String())
	}

	posts := doRequest(server, http.MethodGet, "/api/posts", token, "")
	if !strings.Contains(posts.Body.String(), blog.MockPrefix) {
		t.Errorf("demo data not served while offline: %s", posts.Body.String())
	}

	resp = doRequest(server, http.MethodPost, "/api/mode/online", token, "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "online") {
		t.Fatalf("online: status=%d body=%s", resp.Code, resp.Body.String())
	}

	notifs := doRequest(server, http.MethodGet, "/api/notifications", token, "")
	if !strings.Contains(notifs.Body.String(), "Connection Restored") {
		t.Errorf("notifications missing transitions: %s", notifs.Body.String())
	}
}

func TestBadgesOverHTTP(t *testing.T) {
	server, token := newTestServer(t)

	comment := doRequest(server, http.MethodPost, "/api/comments", token, `{"text": "First!", "blogId": "b_1"}`)
	if comment.Code != http.StatusCreated {
		t.Fatalf("comment status = %d", comment.Code)
	}

	badges := doRequest(server, http.MethodGet, "/api/badges", token, "")
	if !strings.Contains(badges.Body.String(), `"comments":1`) {
		t.Errorf("badges = %s", badges.Body.String())
	}

	ack := doRequest(server, http.MethodPost, "/api/badges/comments/ack", token, "")
	if ack.Code != http.StatusOK {
		t.Fatalf("ack status = %d", ack.Code)
	}
	badges = doRequest(server, http.MethodGet, "/api/badges", token, "")
	if !strings.Contains(badges.Body.String(), `"comments":0`) {
		t.Errorf("badges after ack = %s", badges.Body.String())
	}
}
