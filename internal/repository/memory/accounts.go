package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/repository"
)

// AccountRepository is a mutex-guarded in-process account store with
// secondary indexes on email, username and verification token.
type AccountRepository struct {
	mu         sync.RWMutex
	byID       map[string]domain.Account
	byEmail    map[string]string
	byUsername map[string]string
	byToken    map[string]string
	now        func() time.Time
}

// NewAccountRepository constructs an empty in-memory repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:       make(map[string]domain.Account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		byToken:    make(map[string]string),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Create stores the account unless its email is already present.
func (r *AccountRepository) Create(_ context.Context, account domain.Account) (*domain.Account, error) {
	email := normalizeEmail(account.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, repository.ErrConflict
	}

	account.Email = email
	account = cloneAccount(account)
	r.byID[account.ID] = account
	r.byEmail[email] = account.ID
	if _, taken := r.byUsername[account.Username]; !taken {
		r.byUsername[account.Username] = account.ID
	}
	if account.VerificationToken != nil {
		r.byToken[*account.VerificationToken] = account.ID
	}

	created := cloneAccount(account)
	return &created, nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byEmail[normalizeEmail(email)])
}

// GetByUsername retrieves the first account registered with the username.
func (r *AccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byUsername[username])
}

// GetByVerificationToken retrieves the unverified account holding the token.
func (r *AccountRepository) GetByVerificationToken(_ context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byToken[token])
}

// MarkVerified consumes the token under the write lock so at most one caller wins.
func (r *AccountRepository) MarkVerified(_ context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byToken[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	account, ok := r.byID[id]
	if !ok || account.IsVerified {
		return nil, repository.ErrNotFound
	}

	verifiedAt := r.now()
	account.IsVerified = true
	account.VerificationToken = nil
	account.VerifiedAt = &verifiedAt
	r.byID[id] = account
	delete(r.byToken, token)

	updated := cloneAccount(account)
	return &updated, nil
}

func (r *AccountRepository) lookup(id string) (*domain.Account, error) {
	if id == "" {
		return nil, repository.ErrNotFound
	}
	account, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := cloneAccount(account)
	return &found, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneAccount(src domain.Account) domain.Account {
	dst := src
	if src.VerificationToken != nil {
		token := *src.VerificationToken
		dst.VerificationToken = &token
	}
	if src.VerifiedAt != nil {
		at := *src.VerifiedAt
		dst.VerifiedAt = &at
	}
	return dst
}
