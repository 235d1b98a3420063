// Package auth provides email/password and anonymous sign-in with
// HMAC-signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"edwid/api/internal/store"
	"edwid/api/internal/util"
)

// Session is the authenticated identity attached to a token.
type Session struct {
	UserID    string
	Email     string
	Anonymous bool
}

// UserStore defines the storage interface for auth.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

type Service struct {
	store       UserStore
	tokenSecret []byte
	accessTTL   time.Duration

	mu          sync.Mutex
	subscribers []func(*Session)
}

func NewService(store UserStore, tokenSecret string, accessTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &Service{
		store:       store,
		tokenSecret: []byte(tokenSecret),
		accessTTL:   accessTTL,
	}
}

// OnSessionChange registers a callback invoked on every sign-in and
// sign-out. Sign-out delivers a nil session.
func (s *Service) OnSessionChange(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Service) notify(session *Session) {
	s.mu.Lock()
	subscribers := append([]func(*Session){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(session)
	}
}

type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
}

type SignInResult struct {
	Session Session
	Token   string
}

// SignUp creates a user account and signs it in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignInResult, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("u"),
		Email:        email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.openSession(user)
}

// SignIn authenticates a user by email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid email or password")
	}
	return s.openSession(user)
}

// ProviderAssertion carries the identity claims of a federated sign-in.
// The assertion must already be verified against the identity provider by
// the caller; this service only resolves it to a local account.
type ProviderAssertion struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
}

// SignInWithProvider signs in a federated identity, creating a local
// account on first use. Accounts are keyed by verified email, so a
// federated sign-in can resolve to an existing password account, but a
// subject mismatch on a linked federated account is rejected.
func (s *Service) SignInWithProvider(ctx context.Context, assertion ProviderAssertion) (*SignInResult, error) {
	provider := strings.TrimSpace(strings.ToLower(assertion.Provider))
	email := strings.TrimSpace(strings.ToLower(assertion.Email))
	if provider == "" || assertion.Subject == "" || email == "" {
		return nil, errors.New("provider, subject and email are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		user = store.User{
			ID:              util.NewID("u"),
			Email:           email,
			DisplayName:     assertion.DisplayName,
			Provider:        provider,
			ProviderSubject: assertion.Subject,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create federated user: %w", err)
		}
		return s.openSession(user)
	}
	if err != nil {
		return nil, fmt.Errorf("look up federated user: %w", err)
	}
	if user.ProviderSubject != "" && (user.Provider != provider || user.ProviderSubject != assertion.Subject) {
		return nil, errors.New("identity does not match the linked provider account")
	}
	return s.openSession(user)
}

// SignInAnonymously creates a throwaway guest account and signs it in.
func (s *Service) SignInAnonymously(ctx context.Context) (*SignInResult, error) {
	id := util.NewID("u")
	user := store.User{
		ID:          id,
		Email:       id + "@anonymous.local",
		IsAnonymous: true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}
	return s.openSession(user)
}

// SignOut ends the current session. Tokens are stateless, so this only
// broadcasts the nil session to subscribers.
func (s *Service) SignOut() {
	s.notify(nil)
}

// SessionFromToken validates a token and returns the session it carries.
func (s *Service) SessionFromToken(token string) (*Session, error) {
	claims, err := ParseToken(s.tokenSecret, token)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: claims.Sub, Email: claims.Email, Anonymous: claims.Anonymous}, nil
}

func (s *Service) openSession(user store.User) (*SignInResult, error) {
	session := Session{UserID: user.ID, Email: user.Email, Anonymous: user.IsAnonymous}
	token, err := IssueToken(s.tokenSecret, Claims{
		Sub:       user.ID,
		Email:     user.Email,
		Anonymous: user.IsAnonymous,
		Exp:       time.Now().Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.notify(&session)
	return &SignInResult{Session: session, Token: token}, nil
}
