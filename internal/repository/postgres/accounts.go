package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/repository"
)

const (
	accountsTable       = "iam.accounts"
	uniqueViolationCode = "23505"
)

var accountColumns = []string{
	"id",
	"email",
	"username",
	"password_hash",
	"is_verified",
	"verification_token",
	"created_at",
	"verified_at",
}

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
		now:     r.now,
	}
}

// Create inserts a new account row. The unique index on lower(email) rejects duplicates.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (*domain.Account, error) {
	var tokenValue any
	if account.VerificationToken != nil && *account.VerificationToken != "" {
		tokenValue = *account.VerificationToken
	}

	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.Username,
			account.PasswordHash,
			account.IsVerified,
			tokenValue,
			account.CreatedAt,
			account.VerifiedAt,
		).
		Suffix("RETURNING " + strings.Join(accountColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert account sql: %w", err)
	}

	created, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return created, nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "id")
}

// GetByEmail retrieves an account by its normalized email. The predicate matches
// the lower(email) unique index.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Expr("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))), "email")
}

// GetByUsername retrieves the earliest account registered with the username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username}, "username", "created_at ASC")
}

// GetByVerificationToken retrieves the unverified account holding the token.
func (r *AccountRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"verification_token": token}, "verification token")
}

// MarkVerified flips the account to verified and clears its token, but only
// while the token still matches an unverified row.
func (r *AccountRepository) MarkVerified(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}

	stmt, args, err := r.builder.Update(accountsTable).
		Set("is_verified", true).
		Set("verification_token", nil).
		Set("verified_at", r.now()).
		Where(squirrel.Eq{"verification_token": token}).
		Where(squirrel.Eq{"is_verified": false}).
		Suffix("RETURNING " + strings.Join(accountColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build mark verified sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("mark account verified: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) getOne(ctx context.Context, where squirrel.Sqlizer, label string, orderBy ...string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(where).
		OrderBy(orderBy...).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by %s sql: %w", label, err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account by %s: %w", label, err)
	}

	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account    domain.Account
		token      *string
		verifiedAt *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.IsVerified,
		&token,
		&account.CreatedAt,
		&verifiedAt,
	); err != nil {
		return nil, err
	}

	if token != nil && *token != "" {
		account.VerificationToken = token
	}
	account.VerifiedAt = verifiedAt

	return &account, nil
}
