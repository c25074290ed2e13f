package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
	"github.com/konohovalex/MachineNotesServer/internal/core/port"
	"github.com/konohovalex/MachineNotesServer/internal/infra/security"
	"github.com/konohovalex/MachineNotesServer/internal/repository"
)

type stubAccountStore struct {
	accounts map[string]*domain.Account
}

func newStubAccountStore() *stubAccountStore {
	return &stubAccountStore{accounts: make(map[string]*domain.Account)}
}

func (s *stubAccountStore) Insert(_ context.Context, account domain.Account) (*domain.Account, error) {
	if account.UserName != nil {
		for _, existing := range s.accounts {
			if existing.UserName != nil && *existing.UserName == *account.UserName {
				return nil, repository.ErrDuplicate
			}
		}
	}

	stored := account
	s.accounts[account.ID] = &stored

	copied := stored
	return &copied, nil
}

func (s *stubAccountStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *stubAccountStore) GetByUserName(_ context.Context, userName string) (*domain.Account, error) {
	for _, account := range s.accounts {
		if account.UserName != nil && *account.UserName == userName {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubAccountStore) GetByAccessToken(_ context.Context, accessToken string) (*domain.Account, error) {
	for _, account := range s.accounts {
		if account.AccessToken == accessToken {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubAccountStore) UpdateTokenPair(_ context.Context, id string, pair domain.TokenPair) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	account.AccessToken = pair.AccessToken
	account.RefreshToken = pair.RefreshToken

	copied := *account
	return &copied, nil
}

func (s *stubAccountStore) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := s.accounts[id]; !ok {
		return 0, nil
	}
	delete(s.accounts, id)
	return 1, nil
}

type stubTxManager struct {
	store *stubAccountStore
}

func (m *stubTxManager) WithinTx(_ context.Context, fn func(repo port.AccountRepository) error) error {
	return fn(m.store)
}

var _ port.AccountRepository = (*stubAccountStore)(nil)
var _ port.TxManager = (*stubTxManager)(nil)

type accountFixture struct {
	service *AccountService
	store   *stubAccountStore
	issuer  *security.TokenIssuer
	now     *time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	now := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	issuer, err := security.NewTokenIssuer("unit-test-secret",
		security.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	store := newStubAccountStore()
	service := NewAccountService(&stubTxManager{store: store}, issuer, security.NewPasswordPolicy())
	service.now = func() time.Time { return now }

	return &accountFixture{
		service: service,
		store:   store,
		issuer:  issuer,
		now:     &now,
	}
}

func (f *accountFixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func (f *accountFixture) provisionGuest(t *testing.T) *domain.Profile {
	t.Helper()

	profile, err := f.service.ProvisionGuest(context.Background())
	if err != nil {
		t.Fatalf("ProvisionGuest returned error: %v", err)
	}
	return profile
}

func TestSignUpWithoutCredentialsProvisionsGuest(t *testing.T) {
	f := newAccountFixture(t)

	profile, err := f.service.SignUp(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if profile.UserName != nil {
		t.Fatalf("guest profile must have nil user name, got %q", *profile.UserName)
	}

	claims, err := f.issuer.Verify(profile.Token.AccessToken)
	if err != nil {
		t.Fatalf("guest access token failed verification: %v", err)
	}
	if claims.Subject != profile.UserID {
		t.Fatalf("token subject %s does not match profile id %s", claims.Subject, profile.UserID)
	}

	stored, err := f.store.GetByID(context.Background(), profile.UserID)
	if err != nil {
		t.Fatalf("guest account was not persisted: %v", err)
	}
	if !stored.IsGuest() {
		t.Fatal("persisted account must be a guest")
	}
}

func TestSignUpRegistersAccountAndCleansUpGuest(t *testing.T) {
	f := newAccountFixture(t)
	guest := f.provisionGuest(t)

	creds := &domain.Credentials{UserName: "alice", Password: "S3cure!pass"}
	profile, err := f.service.SignUp(context.Background(), creds, guest.Token.AccessToken)
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if profile.UserName == nil || *profile.UserName != "alice" {
		t.Fatal("registered profile must carry the user name")
	}
	if profile.UserID == guest.UserID {
		t.Fatal("registration must mint a new identity, not reuse the guest id")
	}

	if _, err := f.store.GetByID(context.Background(), guest.UserID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("guest account must be deleted after upgrade")
	}

	stored, err := f.store.GetByID(context.Background(), profile.UserID)
	if err != nil {
		t.Fatalf("registered account was not persisted: %v", err)
	}
	if stored.PasswordHash == nil {
		t.Fatal("registered account must store a password hash")
	}

	ok, err := security.VerifyPassword("S3cure!pass", *stored.PasswordHash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("stored hash must verify against the original password")
	}
	if stored.PasswordHashAlgorithm == nil || *stored.PasswordHashAlgorithm != security.HashAlgorithmArgon2idV19 {
		t.Fatal("stored account must record the hash algorithm label")
	}
}

func TestSignUpWithoutPresentedTokenSkipsCleanup(t *testing.T) {
	f := newAccountFixture(t)

	creds := &domain.Credentials{UserName: "bob", Password: "passw0rd"}
	profile, err := f.service.SignUp(context.Background(), creds, "")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if _, err := f.store.GetByID(context.Background(), profile.UserID); err != nil {
		t.Fatalf("registered account was not persisted: %v", err)
	}
}

func TestSignUpNeverDeletesRegisteredAccountDuringCleanup(t *testing.T) {
	f := newAccountFixture(t)

	first, err := f.service.SignUp(context.Background(), &domain.Credentials{UserName: "carol", Password: "pw"}, "")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	// Re-registering while presenting a registered account's token must not
	// destroy that account.
	_, err = f.service.SignUp(context.Background(), &domain.Credentials{UserName: "dave", Password: "pw"}, first.Token.AccessToken)
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if _, err := f.store.GetByID(context.Background(), first.UserID); err != nil {
		t.Fatal("registered account must survive another caller's sign-up")
	}
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	f := newAccountFixture(t)
	f.service.policy.Enabled = true

	creds := &domain.Credentials{UserName: "eve", Password: "short"}
	_, err := f.service.SignUp(context.Background(), creds, "")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := f.store.GetByUserName(context.Background(), "eve"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("no account may be created for a rejected password")
	}
}

func TestSignUpDuplicateUserName(t *testing.T) {
	f := newAccountFixture(t)

	creds := &domain.Credentials{UserName: "frank", Password: "pw"}
	if _, err := f.service.SignUp(context.Background(), creds, ""); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	_, err := f.service.SignUp(context.Background(), creds, "")
	if !errors.Is(err, ErrUserNameTaken) {
		t.Fatalf("expected ErrUserNameTaken, got %v", err)
	}
}

func TestSignInIssuesFreshPair(t *testing.T) {
	f := newAccountFixture(t)

	creds := &domain.Credentials{UserName: "grace", Password: "pw12345"}
	registered, err := f.service.SignUp(context.Background(), creds, "")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	f.advance(time.Minute)

	profile, err := f.service.SignIn(context.Background(), creds, "")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if profile.UserID != registered.UserID {
		t.Fatal("sign-in must resolve the registered account")
	}
	if profile.Token.AccessToken == registered.Token.AccessToken {
		t.Fatal("sign-in must issue a fresh access token")
	}

	stored, err := f.store.GetByID(context.Background(), profile.UserID)
	if err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
	if stored.AccessToken != profile.Token.AccessToken || stored.RefreshToken != profile.Token.RefreshToken {
		t.Fatal("issued pair must be persisted on the account row")
	}
}

func TestSignInCleansUpPresentedGuest(t *testing.T) {
	f := newAccountFixture(t)

	creds := &domain.Credentials{UserName: "heidi", Password: "pw12345"}
	if _, err := f.service.SignUp(context.Background(), creds, ""); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	guest := f.provisionGuest(t)
	f.advance(time.Minute)

	if _, err := f.service.SignIn(context.Background(), creds, guest.Token.AccessToken); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if _, err := f.store.GetByID(context.Background(), guest.UserID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("guest account must be deleted after signing in to a registered one")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	f := newAccountFixture(t)

	creds := &domain.Credentials{UserName: "ivan", Password: "right-password"}
	if _, err := f.service.SignUp(context.Background(), creds, ""); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	_, err := f.service.SignIn(context.Background(), &domain.Credentials{UserName: "ivan", Password: "wrong-password"}, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnknownUserName(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.service.SignIn(context.Background(), &domain.Credentials{UserName: "nobody", Password: "pw"}, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInWithoutCredentialsProvisionsGuest(t *testing.T) {
	f := newAccountFixture(t)

	profile, err := f.service.SignIn(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if profile.UserName != nil {
		t.Fatal("credential-less sign-in must provision a guest")
	}
}

func TestRefreshRotatesAccessTokenOnly(t *testing.T) {
	f := newAccountFixture(t)
	guest := f.provisionGuest(t)

	f.advance(time.Minute)

	pair, err := f.service.Refresh(context.Background(), guest.Token.AccessToken, guest.Token.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if pair.AccessToken == guest.Token.AccessToken {
		t.Fatal("refresh must issue a new access token")
	}
	if pair.RefreshToken != guest.Token.RefreshToken {
		t.Fatal("refresh must not rotate the refresh token")
	}

	stored, err := f.store.GetByID(context.Background(), guest.UserID)
	if err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
	if stored.AccessToken != pair.AccessToken {
		t.Fatal("rotated access token must be persisted")
	}

	claims, err := f.issuer.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("rotated access token failed verification: %v", err)
	}
	if claims.Subject != guest.UserID {
		t.Fatal("rotated token must keep the account subject")
	}
}

func TestRefreshRejectsMismatchedRefreshToken(t *testing.T) {
	f := newAccountFixture(t)
	guest := f.provisionGuest(t)

	// Same subject, different issue instant, so the strings differ.
	f.advance(time.Second)
	other, err := f.issuer.IssueRefresh(guest.UserID)
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}

	_, err = f.service.Refresh(context.Background(), guest.Token.AccessToken, other)
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}

	stored, err := f.store.GetByID(context.Background(), guest.UserID)
	if err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
	if stored.AccessToken != guest.Token.AccessToken {
		t.Fatal("rejected refresh must not mutate the stored pair")
	}
}

func TestRefreshRejectsExpiredRefreshToken(t *testing.T) {
	f := newAccountFixture(t)
	guest := f.provisionGuest(t)

	f.advance(31 * 24 * time.Hour)

	_, err := f.service.Refresh(context.Background(), guest.Token.AccessToken, guest.Token.RefreshToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired refresh token, got %v", err)
	}
}

func TestRefreshUnknownAccessToken(t *testing.T) {
	f := newAccountFixture(t)

	stray, err := f.issuer.IssueAccess("ghost")
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}

	_, err = f.service.Refresh(context.Background(), stray, "whatever")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestDeleteReprovisionsGuest(t *testing.T) {
	f := newAccountFixture(t)

	creds := &domain.Credentials{UserName: "judy", Password: "pw12345"}
	registered, err := f.service.SignUp(context.Background(), creds, "")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	profile, err := f.service.Delete(context.Background(), registered.Token.AccessToken)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if profile.UserName != nil {
		t.Fatal("deletion must hand back a guest identity")
	}
	if profile.UserID == registered.UserID {
		t.Fatal("replacement guest must carry a new identity")
	}

	if _, err := f.store.GetByID(context.Background(), registered.UserID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("deleted account must be gone")
	}
	if _, err := f.store.GetByID(context.Background(), profile.UserID); err != nil {
		t.Fatalf("replacement guest was not persisted: %v", err)
	}
}

func TestDeleteUnknownTokenStillProvisionsGuest(t *testing.T) {
	f := newAccountFixture(t)

	stray, err := f.issuer.IssueAccess("ghost")
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}

	profile, err := f.service.Delete(context.Background(), stray)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if profile.UserName != nil {
		t.Fatal("deletion must hand back a guest identity")
	}
}
