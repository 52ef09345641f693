package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/repository"
)

func newAccount(id, email, username, token string) domain.Account {
	account := domain.Account{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
	}
	if token != "" {
		account.VerificationToken = &token
	}
	return account
}

func TestAccountRepository_CreateRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, newAccount("1", "A@x.com", "a", "t1")); err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}

	_, err := repo.Create(ctx, newAccount("2", "a@X.COM", "b", "t2"))
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	found, err := repo.GetByEmail(ctx, "A@X.COM")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if found.ID != "1" || found.Email != "a@x.com" {
		t.Fatalf("unexpected account: %+v", found)
	}
}

func TestAccountRepository_ConcurrentCreateSingleWinner(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newAccount(fmt.Sprintf("id-%d", i), "race@x.com", fmt.Sprintf("user-%d", i), fmt.Sprintf("tok-%d", i)))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, repository.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Fatalf("expected exactly one successful create, got %d", successes.Load())
	}
	if conflicts.Load() != 31 {
		t.Fatalf("expected 31 conflicts, got %d", conflicts.Load())
	}
}

func TestAccountRepository_MarkVerifiedIsOneShot(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, newAccount("1", "a@x.com", "a", "tok")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	account, err := repo.MarkVerified(ctx, "tok")
	if err != nil {
		t.Fatalf("MarkVerified returned error: %v", err)
	}
	if !account.IsVerified || account.VerificationToken != nil || account.VerifiedAt == nil {
		t.Fatalf("unexpected account after verification: %+v", account)
	}

	if _, err := repo.MarkVerified(ctx, "tok"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second consume, got %v", err)
	}
	if _, err := repo.GetByVerificationToken(ctx, "tok"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected consumed token to be unresolvable, got %v", err)
	}
}

func TestAccountRepository_ConcurrentMarkVerifiedSingleWinner(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, newAccount("1", "a@x.com", "a", "tok")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.MarkVerified(ctx, "tok"); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Fatalf("expected exactly one successful verification, got %d", successes.Load())
	}
}

func TestAccountRepository_ReturnedAccountsAreCopies(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newAccount("1", "a@x.com", "a", "tok"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	*created.VerificationToken = "mutated"

	found, err := repo.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if found.VerificationToken == nil || *found.VerificationToken != "tok" {
		t.Fatalf("stored token was mutated through returned pointer")
	}
}
