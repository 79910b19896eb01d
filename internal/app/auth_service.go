package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"llmontreal/internal/api"
	"llmontreal/internal/model"
	"llmontreal/internal/pkg/logger"
	"llmontreal/internal/store"
)

type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*model.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*model.AuthResult, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

// AuthService keeps the signed-in user and token in the store and exposes
// the token to the API transport.
type AuthService struct {
	backend AuthBackend
	store   store.Store
	current *Observable[*model.User]
}

func NewAuthService(ctx context.Context, backend AuthBackend, st store.Store) *AuthService {
	s := &AuthService{
		backend: backend,
		store:   st,
		current: NewObservable[*model.User](nil),
	}
	raw, ok, err := st.Get(ctx, store.KeyCurrentUser)
	if err != nil {
		logger.Warnf("read stored user failed: %v", err)
		return s
	}
	if ok && raw != "" {
		var user model.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			logger.Warnf("stored user is corrupt, ignoring: %v", err)
			return s
		}
		s.current.Set(&user)
	}
	return s
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	// passwords go out as typed; only an all-blank one is refused
	password := input.Password
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}

	result, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return nil, authError(err)
	}
	if err := s.persist(ctx, result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := input.Password
	if username == "" || email == "" || strings.TrimSpace(password) == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}

	result, err := s.backend.Register(ctx, username, email, password)
	if err != nil {
		return nil, authError(err)
	}
	if err := s.persist(ctx, result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, store.KeyCurrentUser, store.KeyAuthToken); err != nil {
		return fmt.Errorf("clear credentials failed: %w", err)
	}
	s.current.Set(nil)
	return nil
}

func (s *AuthService) CurrentUser() *model.User {
	return s.current.Get()
}

func (s *AuthService) IsAuthenticated() bool {
	return s.current.Get() != nil
}

// Token returns the stored bearer token, or "" when there is none.
func (s *AuthService) Token(ctx context.Context) (string, error) {
	token, _, err := s.store.Get(ctx, store.KeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("read auth token failed: %w", err)
	}
	return token, nil
}

func (s *AuthService) Subscribe(fn func(*model.User)) (unsubscribe func()) {
	return s.current.Subscribe(fn)
}

func (s *AuthService) persist(ctx context.Context, result *model.AuthResult) error {
	payload, err := json.Marshal(result.User)
	if err != nil {
		return fmt.Errorf("marshal user failed: %w", err)
	}
	if err := s.store.Set(ctx, store.KeyCurrentUser, string(payload)); err != nil {
		return fmt.Errorf("store user failed: %w", err)
	}
	if result.Token != "" {
		err = s.store.Set(ctx, store.KeyAuthToken, result.Token)
	} else {
		// do not keep a token that belongs to a previous user
		err = s.store.Delete(ctx, store.KeyAuthToken)
	}
	if err != nil {
		return fmt.Errorf("store token failed: %w", err)
	}

	user := result.User
	s.current.Set(&user)
	return nil
}

func authError(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return ErrInvalidCredential
	}
	logger.Warnf("auth request failed: %v", err)
	if msg := api.ServerMessage(err); msg != "" {
		return fmt.Errorf("%w: %s", ErrUnexpected, msg)
	}
	return ErrUnexpected
}
