package port

import (
	"context"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
)

// AccountRepository persists account records together with their live token
// pair. Missing rows surface as repository.ErrNotFound, uniqueness
// violations as repository.ErrDuplicate.
type AccountRepository interface {
	Insert(ctx context.Context, account domain.Account) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUserName(ctx context.Context, userName string) (*domain.Account, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*domain.Account, error)
	UpdateTokenPair(ctx context.Context, id string, pair domain.TokenPair) (*domain.Account, error)
	// Delete removes the account and reports how many rows were affected.
	// Deleting an absent account is not an error.
	Delete(ctx context.Context, id string) (int64, error)
}

// TxManager executes fn against an AccountRepository bound to a single
// database transaction, committing on nil and rolling back on error.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repo AccountRepository) error) error
}
