package port

import (
	"context"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
//
// Lookups return repository.ErrNotFound when no account matches. Create returns
// repository.ErrConflict when the (case-insensitive) email is already taken.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	// MarkVerified consumes the verification token in a single conditional write.
	// It returns repository.ErrNotFound if the token is unknown or already consumed.
	MarkVerified(ctx context.Context, token string) (*domain.Account, error)
}
