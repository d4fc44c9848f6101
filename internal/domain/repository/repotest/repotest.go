// Package repotest provee una implementación en memoria de
// repository.DataAccess para tests de servicios. Respeta los mismos
// contratos que el store real: claims condicionales de un solo uso,
// lockout en una operación atómica y upserts idempotentes.
package repotest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbenitez01/citadel/internal/domain/repository"
)

// Store es un DataAccess en memoria para un tenant.
type Store struct {
	mu sync.Mutex

	users         map[string]*repository.User // por ID
	sessions      map[string]*repository.Session
	tokens        map[string]*repository.EmailToken // por hash
	identities    map[string]*repository.OAuthIdentity
	subscriptions map[string]*repository.Subscription // por external ID
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		users:         make(map[string]*repository.User),
		sessions:      make(map[string]*repository.Session),
		tokens:        make(map[string]*repository.EmailToken),
		identities:    make(map[string]*repository.OAuthIdentity),
		subscriptions: make(map[string]*repository.Subscription),
	}
}

func (s *Store) Users() repository.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Sessions() repository.SessionRepository           { return (*sessionRepo)(s) }
func (s *Store) EmailTokens() repository.EmailTokenRepository     { return (*tokenRepo)(s) }
func (s *Store) Identities() repository.IdentityRepository        { return (*identityRepo)(s) }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return (*subRepo)(s) }

// SeedUser inserta un usuario directo al store y lo retorna.
func (s *Store) SeedUser(email, passwordHash string) *repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &repository.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return cloneUser(u)
}

// SetLockout fija directamente el estado de lockout de un usuario
// (para simular una ventana ya vencida).
func (s *Store) SetLockout(userID string, attempts int, until *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.FailedAttempts = attempts
		u.LockedUntil = until
	}
}

// AgeSession retrocede el created_at de una sesión (para simular expiración).
func (s *Store) AgeSession(sessionID string, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.CreatedAt = sess.CreatedAt.Add(-by)
	}
}

// ExpireToken retrocede el expires_at de un token (por hash).
func (s *Store) ExpireToken(tokenHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokens[tokenHash]; ok {
		tok.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}
}

// SessionCount retorna el número de sesiones vivas.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ---- users ----

type userRepo Store

func (r *userRepo) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == in.Email {
			return nil, repository.ErrConflict
		}
	}
	u := &repository.User{
		ID:            uuid.NewString(),
		Email:         in.Email,
		PasswordHash:  in.PasswordHash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		EmailVerified: in.EmailVerified,
		CreatedAt:     time.Now().UTC(),
	}
	r.users[u.ID] = u
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(_ context.Context, userID string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) RecordFailedAttempt(_ context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return 0, nil, repository.ErrNotFound
	}
	u.FailedAttempts++
	if u.FailedAttempts >= threshold {
		until := time.Now().UTC().Add(lockFor)
		u.LockedUntil = &until
	}
	var locked *time.Time
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		locked = &t
	}
	return u.FailedAttempts, locked, nil
}

func (r *userRepo) ClearLockout(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedAttempts = 0
	u.LockedUntil = nil
	return nil
}

func (r *userRepo) SetEmailVerified(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (r *userRepo) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = newHash
	return nil
}

// ---- sessions ----

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := &repository.Session{
		ID:         in.ID,
		UserID:     in.UserID,
		SecretHash: in.SecretHash,
		CreatedAt:  time.Now().UTC(),
	}
	r.sessions[sess.ID] = sess
	out := *sess
	return &out, nil
}

func (r *sessionRepo) Get(_ context.Context, sessionID string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[sessionID]; ok {
		out := *sess
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (r *sessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, sess := range r.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---- email tokens ----

type tokenRepo Store

func (r *tokenRepo) Create(_ context.Context, in repository.CreateEmailTokenInput) (*repository.EmailToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	tok := &repository.EmailToken{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Kind:      in.Kind,
		TokenHash: in.TokenHash,
		ExpiresAt: now.Add(in.TTL),
		CreatedAt: now,
	}
	r.tokens[tok.TokenHash] = tok
	out := *tok
	return &out, nil
}

// claim reproduce el UPDATE condicional del store real: used_at IS NULL y
// no vencido. Bajo el mutex, un solo caller puede ganar.
func (r *tokenRepo) claim(tokenHash string, kind repository.EmailTokenKind) (*repository.EmailToken, error) {
	tok, ok := r.tokens[tokenHash]
	if !ok || tok.Kind != kind {
		return nil, repository.ErrNotFound
	}
	if tok.UsedAt != nil {
		return nil, repository.ErrTokenUsed
	}
	if time.Now().UTC().After(tok.ExpiresAt) {
		return nil, repository.ErrTokenExpired
	}
	now := time.Now().UTC()
	tok.UsedAt = &now
	return tok, nil
}

func (r *tokenRepo) ConsumePasswordReset(_ context.Context, tokenHash, newPasswordHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := r.claim(tokenHash, repository.EmailTokenPasswordReset)
	if err != nil {
		return "", err
	}
	u, ok := r.users[tok.UserID]
	if !ok {
		return "", repository.ErrNotFound
	}
	u.PasswordHash = newPasswordHash
	return u.ID, nil
}

func (r *tokenRepo) ConsumeVerification(_ context.Context, tokenHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := r.claim(tokenHash, repository.EmailTokenVerification)
	if err != nil {
		return "", err
	}
	u, ok := r.users[tok.UserID]
	if !ok {
		return "", repository.ErrNotFound
	}
	u.EmailVerified = true
	return u.ID, nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for hash, tok := range r.tokens {
		if tok.UsedAt != nil || now.After(tok.ExpiresAt) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n, nil
}

// ---- identities ----

type identityRepo Store

func identityKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

func (r *identityRepo) GetByProvider(_ context.Context, provider, providerUserID string) (*repository.OAuthIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.identities[identityKey(provider, providerUserID)]; ok {
		out := *id
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (r *identityRepo) Resolve(_ context.Context, in repository.ResolveIdentityInput) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(in.Provider, in.ProviderUserID)
	if id, ok := r.identities[key]; ok {
		return id.UserID, false, nil
	}

	email := strings.ToLower(in.Email)
	for _, u := range r.users {
		if u.Email == email {
			r.identities[key] = &repository.OAuthIdentity{
				ID:             uuid.NewString(),
				Provider:       in.Provider,
				ProviderUserID: in.ProviderUserID,
				UserID:         u.ID,
				CreatedAt:      time.Now().UTC(),
			}
			return u.ID, false, nil
		}
	}

	u := &repository.User{
		ID:            uuid.NewString(),
		Email:         email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		EmailVerified: in.EmailVerified,
		CreatedAt:     time.Now().UTC(),
	}
	r.users[u.ID] = u
	r.identities[key] = &repository.OAuthIdentity{
		ID:             uuid.NewString(),
		Provider:       in.Provider,
		ProviderUserID: in.ProviderUserID,
		UserID:         u.ID,
		CreatedAt:      time.Now().UTC(),
	}
	return u.ID, true, nil
}

// ---- subscriptions ----

type subRepo Store

func (r *subRepo) Upsert(_ context.Context, in repository.UpsertSubscriptionInput) (*repository.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in.ExternalID == "" {
		return nil, fmt.Errorf("%w: external id vacío", repository.ErrInvalidInput)
	}
	sub, ok := r.subscriptions[in.ExternalID]
	if !ok {
		sub = &repository.Subscription{ID: uuid.NewString(), ExternalID: in.ExternalID}
		r.subscriptions[in.ExternalID] = sub
	}
	if in.UserID != "" {
		sub.UserID = in.UserID
	}
	sub.Status = in.Status
	sub.PlanID = in.PlanID
	sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	sub.UpdatedAt = time.Now().UTC()
	out := *sub
	return &out, nil
}

func (r *subRepo) GetByUserID(_ context.Context, userID string) (*repository.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscriptions {
		if sub.UserID == userID {
			out := *sub
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *subRepo) GetByExternalID(_ context.Context, externalID string) (*repository.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subscriptions[externalID]; ok {
		out := *sub
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func cloneUser(u *repository.User) *repository.User {
	out := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		out.LockedUntil = &t
	}
	return &out
}
