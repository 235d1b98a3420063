// Package app exposes the dashboard core over HTTP.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"edwid/api/internal/auth"
	"edwid/api/internal/blog"
	"edwid/api/internal/export"
	"edwid/api/internal/search"
)

type HTTPServer struct {
	blog       *blog.Service
	auth       *auth.Service
	search     *search.Service
	export     *export.Service
	corsOrigin string
	ping       func(ctx context.Context) error
}

// Deps wires the HTTP server. Search, export and ping are optional.
type Deps struct {
	Blog       *blog.Service
	Auth       *auth.Service
	Search     *search.Service
	Export     *export.Service
	CORSOrigin string
	Ping       func(ctx context.Context) error
}

func NewHTTPServer(deps Deps) *HTTPServer {
	return &HTTPServer{
		blog:       deps.Blog,
		auth:       deps.Auth,
		search:     deps.Search,
		export:     deps.Export,
		corsOrigin: deps.CORSOrigin,
		ping:       deps.Ping,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mode": s.blog.Mode().String()})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if s.ping != nil {
			if err := s.ping(ctx); err != nil {
				status = "not_ready"
				statusCode = http.StatusServiceUnavailable
				checks["database"] = map[string]any{"status": "error", "error": err.Error()}
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/anonymous" {
		s.handleAuthAnonymous(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/provider" {
		s.handleAuthProvider(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signout" {
		s.auth.SignOut()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		session, err := s.auth.SessionFromToken(token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"email":         session.Email,
			"anonymous":     session.Anonymous,
		})
		return
	}

	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "posts":
		s.handlePosts(w, r, parts[2:])
	case "trash":
		if r.Method == http.MethodGet && len(parts) == 2 {
			writeJSON(w, http.StatusOK, map[string]any{"posts": s.blog.TrashedPosts()})
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	case "comments":
		s.handleComments(w, r, parts[2:])
	case "notifications":
		s.handleNotifications(w, r, parts[2:])
	case "badges":
		s.handleBadges(w, r, parts[2:])
	case "mode":
		s.handleMode(w, r, parts[2:])
	case "dashboard":
		s.handleDashboard(w, r, parts[2:])
	case "search":
		s.handleSearch(w, r, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handlePosts(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		filter := strings.TrimSpace(r.URL.Query().Get("filter"))
		var posts []blog.Post
		switch filter {
		case "", "active":
			posts = s.blog.ActivePosts()
		case "trash":
			posts = s.blog.TrashedPosts()
		case "all":
			posts = s.blog.Posts()
		default:
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "filter must be active, trash or all", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body blog.PostInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.blog.CreatePost(r.Context(), body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"post": post})

	case len(rest) == 1 && r.Method == http.MethodGet:
		post, ok := s.blog.GetPost(rest[0])
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"post": post})

	case len(rest) == 1 && r.Method == http.MethodPut:
		var body blog.PostInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.blog.UpdatePost(r.Context(), rest[0], body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"post": post})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.blog.SoftDeletePost(r.Context(), rest[0]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "restore" && r.Method == http.MethodPost:
		if err := s.blog.RestorePost(r.Context(), rest[0]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "purge" && r.Method == http.MethodDelete:
		confirmed := r.URL.Query().Get("confirm") == "true"
		if err := s.blog.PurgePost(r.Context(), rest[0], confirmed); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "views" && r.Method == http.MethodPost:
		views, err := s.blog.IncrementView(r.Context(), rest[0])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"views": views})

	case len(rest) == 2 && rest[1] == "export" && r.Method == http.MethodGet:
		s.handleExport(w, r, rest[0])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	if s.export == nil {
		writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export service not configured", nil)
		return
	}
	post, ok := s.blog.GetPost(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
		return
	}
	replies := map[string][]blog.Reply{}
	comments := s.blog.Comments()
	for _, comment := range comments {
		replies[comment.ID] = s.blog.Replies(comment.ID)
	}
	result, err := s.export.ExportPost(post, comments, replies)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export dependencies missing", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", "Export failed", nil)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		var comments []blog.Comment
		if category == "" {
			comments = s.blog.Comments()
		} else {
			comments = s.blog.CommentsByCategory(category)
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			Text   string `json:"text"`
			BlogID string `json:"blogId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.blog.AddComment(r.Context(), body.Text, body.BlogID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		if comment.ID == "" {
			// Blank input is dropped silently.
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.blog.DeleteComment(r.Context(), rest[0]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "replies" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"replies": s.blog.Replies(rest[0])})

	case len(rest) == 2 && rest[1] == "replies" && r.Method == http.MethodPost:
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reply, err := s.blog.AddReply(r.Context(), rest[0], body.Text)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		if reply.ID == "" {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"reply": reply})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"notifications": s.blog.Notifications(),
			"unread":        s.blog.UnreadNotifications(),
		})
	case len(rest) == 0 && r.Method == http.MethodDelete:
		s.blog.ClearNotifications()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(rest) == 1 && rest[0] == "ack" && r.Method == http.MethodPost:
		s.blog.AcknowledgeNotifications()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleBadges(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"badges": s.blog.Badges()})
	case len(rest) == 2 && rest[1] == "ack" && r.Method == http.MethodPost:
		s.blog.AcknowledgeBadge(rest[0])
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMode(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"mode": s.blog.Mode().String()})
	case len(rest) == 1 && rest[0] == "offline" && r.Method == http.MethodPost:
		s.blog.HandleOffline(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"mode": s.blog.Mode().String()})
	case len(rest) == 1 && rest[0] == "online" && r.Method == http.MethodPost:
		s.blog.HandleOnline(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"mode": s.blog.Mode().String()})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 0 || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	year := time.Now().Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "year must be an integer", nil)
			return
		}
		year = parsed
	}
	writeJSON(w, http.StatusOK, s.blog.Dashboard(year))
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 0 || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search service not configured", nil)
		return
	}
	q := search.Query{
		Text:     strings.TrimSpace(r.URL.Query().Get("q")),
		Field:    strings.TrimSpace(r.URL.Query().Get("field")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Limit:    20,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		q.Offset = parsed
	}
	writeJSON(w, http.StatusOK, s.search.Search(q))
}

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.auth.SignUp(r.Context(), auth.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "SIGNUP_FAILED", err.Error(), nil)
		return
	}
	writeSignIn(w, result)
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.auth.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
		return
	}
	writeSignIn(w, result)
}

func (s *HTTPServer) handleAuthProvider(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Provider    string `json:"provider"`
		Subject     string `json:"subject"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.auth.SignInWithProvider(r.Context(), auth.ProviderAssertion{
		Provider:    body.Provider,
		Subject:     body.Subject,
		Email:       body.Email,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
		return
	}
	writeSignIn(w, result)
}

func (s *HTTPServer) handleAuthAnonymous(w http.ResponseWriter, r *http.Request) {
	result, err := s.auth.SignInAnonymously(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SIGNIN_FAILED", "Anonymous sign-in failed", nil)
		return
	}
	writeSignIn(w, result)
}

func writeSignIn(w http.ResponseWriter, result *auth.SignInResult) {
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     result.Token,
		"userId":    result.Session.UserID,
		"email":     result.Session.Email,
		"anonymous": result.Session.Anonymous,
	})
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return nil, false
	}
	session, err := s.auth.SessionFromToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return nil, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(h http.Header, origin string) {
	if origin == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *blog.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var remoteErr *blog.RemoteError
	if errors.As(err, &remoteErr) {
		return http.StatusBadGateway, "REMOTE_ERROR", "Remote store error", map[string]any{"code": remoteErr.Code}
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
