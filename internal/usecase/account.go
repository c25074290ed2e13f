package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
	"github.com/konohovalex/MachineNotesServer/internal/core/port"
	"github.com/konohovalex/MachineNotesServer/internal/infra/logger"
	"github.com/konohovalex/MachineNotesServer/internal/infra/security"
	"github.com/konohovalex/MachineNotesServer/internal/repository"
)

var (
	// ErrInvalidCredentials indicates an unknown user name or a wrong password.
	// Callers never learn which of the two it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword indicates the password failed the strength policy.
	ErrWeakPassword = errors.New("password does not meet strength requirements")
	// ErrTokenInvalid indicates a malformed, tampered, or expired token.
	ErrTokenInvalid = errors.New("invalid auth token")
	// ErrTokenMismatch indicates the presented refresh token does not match the stored one.
	ErrTokenMismatch = errors.New("refresh token does not match stored value")
	// ErrUserNameTaken indicates the requested user name is already registered.
	ErrUserNameTaken = errors.New("user name already taken")
	// ErrAccountNotFound indicates no account holds the presented token.
	ErrAccountNotFound = errors.New("account not found")
)

// AccountService orchestrates the identity lifecycle: guest provisioning,
// registration, sign-in, token refresh, and account deletion.
type AccountService struct {
	txm    port.TxManager
	issuer *security.TokenIssuer
	policy *security.PasswordPolicy
	log    *zap.Logger
	now    func() time.Time
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(
	txm port.TxManager,
	issuer *security.TokenIssuer,
	policy *security.PasswordPolicy,
) *AccountService {
	return &AccountService{
		txm:    txm,
		issuer: issuer,
		policy: policy,
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithLogger attaches a structured logger.
func (s *AccountService) WithLogger(log *zap.Logger) *AccountService {
	if log != nil {
		s.log = log
	}
	return s
}

// SignUp registers a new account. Absent credentials are not an error: they
// request provisioning of a transient guest identity instead.
func (s *AccountService) SignUp(ctx context.Context, creds *domain.Credentials, presentedToken string) (*domain.Profile, error) {
	if creds == nil {
		return s.ProvisionGuest(ctx)
	}
	return s.register(ctx, *creds, presentedToken)
}

// SignIn authenticates an existing account by credentials. Absent
// credentials request guest provisioning, mirroring SignUp.
func (s *AccountService) SignIn(ctx context.Context, creds *domain.Credentials, presentedToken string) (*domain.Profile, error) {
	if creds == nil {
		return s.ProvisionGuest(ctx)
	}

	var profile *domain.Profile
	err := s.txm.WithinTx(ctx, func(repo port.AccountRepository) error {
		account, err := repo.GetByUserName(ctx, creds.UserName)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("lookup account: %w", err)
		}

		if account.PasswordHash == nil {
			return ErrInvalidCredentials
		}

		ok, err := security.VerifyPassword(creds.Password, *account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return ErrInvalidCredentials
		}

		access, refresh, err := s.issuer.IssuePair(account.ID)
		if err != nil {
			return fmt.Errorf("issue token pair: %w", err)
		}

		updated, err := repo.UpdateTokenPair(ctx, account.ID, domain.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
		})
		if err != nil {
			return fmt.Errorf("persist token pair: %w", err)
		}

		if err := s.cleanupGuest(ctx, repo, presentedToken, updated.ID); err != nil {
			return err
		}

		profile = newProfile(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account signed in", zap.String("user_id", profile.UserID))
	return profile, nil
}

// ProvisionGuest creates a transient identity with no credentials and a
// fresh token pair, so first-contact callers immediately hold a session.
func (s *AccountService) ProvisionGuest(ctx context.Context) (*domain.Profile, error) {
	var profile *domain.Profile
	err := s.txm.WithinTx(ctx, func(repo port.AccountRepository) error {
		inserted, err := s.insertGuest(ctx, repo)
		if err != nil {
			return err
		}
		profile = newProfile(inserted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("guest account provisioned", zap.String("user_id", profile.UserID))
	return profile, nil
}

// register upgrades the caller from a guest to a registered account. A brand
// new identity is created first; the guest account resolved from the
// presented token is deleted afterwards, all within one transaction, so a
// failed upgrade never destroys the caller's only identity and a successful
// one never leaves a zombie guest behind.
func (s *AccountService) register(ctx context.Context, creds domain.Credentials, presentedToken string) (*domain.Profile, error) {
	if issue := s.policy.Check(creds.Password); issue != security.IssueNone {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, issue)
	}

	record, err := security.HashPassword(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	access, refresh, err := s.issuer.IssuePair(id)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	userName := creds.UserName
	account := domain.Account{
		ID:                    id,
		UserName:              &userName,
		PasswordHash:          &record.Hash,
		PasswordHashSalt:      &record.Salt,
		PasswordHashAlgorithm: &record.Algorithm,
		CreatedAt:             s.now(),
		AccessToken:           access,
		RefreshToken:          refresh,
	}

	var profile *domain.Profile
	err = s.txm.WithinTx(ctx, func(repo port.AccountRepository) error {
		inserted, err := repo.Insert(ctx, account)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUserNameTaken
			}
			return fmt.Errorf("insert account: %w", err)
		}

		if err := s.cleanupGuest(ctx, repo, presentedToken, inserted.ID); err != nil {
			return err
		}

		profile = newProfile(inserted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account registered",
		zap.String("user_id", profile.UserID),
		zap.Stringp("user_name", profile.UserName),
	)
	return profile, nil
}

// Refresh rotates the access token of the account holding the presented
// access token. The caller must present the refresh token currently stored
// for the account; a stale value is rejected without issuing anything. The
// refresh token itself is not rotated and is returned unchanged.
func (s *AccountService) Refresh(ctx context.Context, presentedAccessToken, oldRefreshToken string) (*domain.TokenPair, error) {
	var pair *domain.TokenPair
	err := s.txm.WithinTx(ctx, func(repo port.AccountRepository) error {
		account, err := repo.GetByAccessToken(ctx, presentedAccessToken)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("lookup account by token: %w", err)
		}

		if account.RefreshToken != oldRefreshToken {
			return ErrTokenMismatch
		}

		rotated, err := s.issuer.RotateAccess(oldRefreshToken, account.ID)
		if err != nil {
			return ErrTokenInvalid
		}

		updated, err := repo.UpdateTokenPair(ctx, account.ID, domain.TokenPair{
			AccessToken:  rotated,
			RefreshToken: account.RefreshToken,
		})
		if err != nil {
			return fmt.Errorf("persist rotated token: %w", err)
		}

		pair = &domain.TokenPair{
			AccessToken:  updated.AccessToken,
			RefreshToken: updated.RefreshToken,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Delete removes the caller's account and immediately provisions a fresh
// guest identity, so the caller always leaves the operation holding a valid
// session.
func (s *AccountService) Delete(ctx context.Context, presentedToken string) (*domain.Profile, error) {
	var profile *domain.Profile
	err := s.txm.WithinTx(ctx, func(repo port.AccountRepository) error {
		account, err := repo.GetByAccessToken(ctx, presentedToken)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup account by token: %w", err)
		}

		if account != nil {
			deleted, err := repo.Delete(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("delete account: %w", err)
			}
			s.log.Info("account deleted",
				zap.String("user_id", account.ID),
				zap.String("user", account.DisplayName()),
				zap.Int64("rows", deleted),
			)
		}

		inserted, err := s.insertGuest(ctx, repo)
		if err != nil {
			return err
		}
		profile = newProfile(inserted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *AccountService) insertGuest(ctx context.Context, repo port.AccountRepository) (*domain.Account, error) {
	id := uuid.NewString()
	access, refresh, err := s.issuer.IssuePair(id)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	inserted, err := repo.Insert(ctx, domain.Account{
		ID:           id,
		CreatedAt:    s.now(),
		AccessToken:  access,
		RefreshToken: refresh,
	})
	if err != nil {
		return nil, fmt.Errorf("insert guest account: %w", err)
	}

	return inserted, nil
}

// cleanupGuest removes the transient guest account identified by the token
// the caller presented, once a registered identity replaces it. Only guest
// accounts are ever deleted here.
func (s *AccountService) cleanupGuest(ctx context.Context, repo port.AccountRepository, presentedToken, newOwnerID string) error {
	if presentedToken == "" {
		return nil
	}

	if _, err := s.issuer.Verify(presentedToken); err != nil {
		s.log.Debug("skipping guest cleanup for unverifiable token",
			zap.String("token", logger.MaskToken(presentedToken)),
		)
		return nil
	}

	guest, err := repo.GetByAccessToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup guest account: %w", err)
	}

	if guest.ID == newOwnerID || !guest.IsGuest() {
		return nil
	}

	if _, err := repo.Delete(ctx, guest.ID); err != nil {
		return fmt.Errorf("delete guest account: %w", err)
	}

	s.log.Info("guest account cleaned up", zap.String("user_id", guest.ID))
	return nil
}

func newProfile(account *domain.Account) *domain.Profile {
	return &domain.Profile{
		UserID:   account.ID,
		UserName: account.UserName,
		Token: domain.TokenPair{
			AccessToken:  account.AccessToken,
			RefreshToken: account.RefreshToken,
		},
	}
}
