package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
	"github.com/konohovalex/MachineNotesServer/internal/core/port"
	"github.com/konohovalex/MachineNotesServer/internal/repository"
)

const uniqueViolationCode = "23505"

var accountColumns = []string{
	"user_id",
	"user_name",
	"password_hash",
	"password_hash_salt",
	"password_hash_algorithm",
	"created_at",
	"access_token",
	"refresh_token",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Insert stores a new account row and returns the persisted record.
func (r *AccountRepository) Insert(ctx context.Context, account domain.Account) (*domain.Account, error) {
	query := r.builder.Insert("account").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.UserName,
			account.PasswordHash,
			account.PasswordHashSalt,
			account.PasswordHashAlgorithm,
			account.CreatedAt,
			account.AccessToken,
			account.RefreshToken,
		).
		Suffix("RETURNING " + columnList())

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	inserted, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return inserted, nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"user_id": id}, "select account by id")
}

// GetByUserName retrieves a registered account by its unique user name.
func (r *AccountRepository) GetByUserName(ctx context.Context, userName string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"user_name": userName}, "select account by user name")
}

// GetByAccessToken retrieves the account currently holding the supplied access token.
func (r *AccountRepository) GetByAccessToken(ctx context.Context, accessToken string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"access_token": accessToken}, "select account by access token")
}

func (r *AccountRepository) getBy(ctx context.Context, pred squirrel.Eq, op string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("account").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s sql: %w", op, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// UpdateTokenPair replaces the live access/refresh pair of the account.
func (r *AccountRepository) UpdateTokenPair(ctx context.Context, id string, pair domain.TokenPair) (*domain.Account, error) {
	stmt, args, err := r.builder.Update("account").
		Set("access_token", pair.AccessToken).
		Set("refresh_token", pair.RefreshToken).
		Where(squirrel.Eq{"user_id": id}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update token pair sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update token pair: %w", err)
	}

	return account, nil
}

// Delete removes the account row. Zero affected rows signals the account was
// already absent and is not an error.
func (r *AccountRepository) Delete(ctx context.Context, id string) (int64, error) {
	stmt, args, err := r.builder.Delete("account").
		Where(squirrel.Eq{"user_id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete account: %w", err)
	}

	return ct.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.UserName,
		&account.PasswordHash,
		&account.PasswordHashSalt,
		&account.PasswordHashAlgorithm,
		&account.CreatedAt,
		&account.AccessToken,
		&account.RefreshToken,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func columnList() string {
	list := accountColumns[0]
	for _, col := range accountColumns[1:] {
		list += ", " + col
	}
	return list
}

var _ port.AccountRepository = (*AccountRepository)(nil)
