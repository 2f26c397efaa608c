package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-api/internal/auth"
	"github.com/spec-kit/blog-api/internal/clock"
	"github.com/spec-kit/blog-api/internal/config"
	"github.com/spec-kit/blog-api/internal/domain"
	"github.com/spec-kit/blog-api/internal/events"
	"github.com/spec-kit/blog-api/internal/lock"
	"github.com/spec-kit/blog-api/internal/repository"
)

var (
	keysOnce sync.Once
	testKeys *auth.KeyPair
	keysErr  error
)

func sharedKeys(t *testing.T) *auth.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		testKeys, keysErr = auth.GenerateKeyPair(2048)
	})
	require.NoError(t, keysErr)
	return testKeys
}

type fakeAccounts struct {
	mu        sync.Mutex
	byEmail   map[string]domain.Account
	saveCalls int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: make(map[string]domain.Account)}
}

func (f *fakeAccounts) Create(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[account.Email]; ok {
		return repository.ErrDuplicate
	}
	account.ID = uuid.NewString()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.byEmail[account.Email] = *account
	return nil
}

func (f *fakeAccounts) SaveTokens(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byEmail[account.Email]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.AccessToken = account.AccessToken
	stored.AccessTokenExpiresAt = account.AccessTokenExpiresAt
	stored.RefreshToken = account.RefreshToken
	stored.RefreshTokenExpiresAt = account.RefreshTokenExpiresAt
	f.byEmail[account.Email] = stored
	f.saveCalls++
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.byEmail {
		if account.ID == id {
			cp := account
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &account, nil
}

func (f *fakeAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeAccounts) stored(email string) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byEmail[email]
}

func (f *fakeAccounts) saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (r *recordingDispatcher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type authFixture struct {
	svc        *AuthService
	accounts   *fakeAccounts
	tokens     *auth.TokenCodec
	blacklist  *auth.Blacklist
	clock      *clock.Mock
	dispatcher *recordingDispatcher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	tokens := auth.NewTokenCodec(sharedKeys(t), auth.DefaultIssuer, clk)
	blacklist := auth.NewBlacklist(nil)
	accounts := newFakeAccounts()
	dispatcher := &recordingDispatcher{}

	cfg := config.AuthConfig{
		AccessTokenTTLSeconds:  3600,
		RefreshTokenTTLSeconds: 86400,
		BcryptCost:             4,
	}
	svc := NewAuthService(cfg, AuthDependencies{
		Accounts:   accounts,
		Tokens:     tokens,
		Blacklist:  blacklist,
		Locker:     lock.NewKeyedMutex(),
		Dispatcher: dispatcher,
	})
	return &authFixture{
		svc:        svc,
		accounts:   accounts,
		tokens:     tokens,
		blacklist:  blacklist,
		clock:      clk,
		dispatcher: dispatcher,
	}
}

func (f *authFixture) register(t *testing.T, email, password string) *domain.Account {
	t.Helper()
	account, err := f.svc.Register(context.Background(), "author", email, password)
	require.NoError(t, err)
	return account
}
