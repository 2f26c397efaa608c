package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/auth"
	"github.com/spec-kit/blog-api/internal/config"
	"github.com/spec-kit/blog-api/internal/domain"
	"github.com/spec-kit/blog-api/internal/events"
	"github.com/spec-kit/blog-api/internal/lock"
	"github.com/spec-kit/blog-api/internal/observability"
	"github.com/spec-kit/blog-api/internal/repository"
	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

const (
	minPasswordLength = 6
	// bcrypt rejects inputs longer than this many bytes.
	maxPasswordBytes  = 72
)

// AuthService issues, refreshes and revokes account sessions.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenCodec
	blacklist  *auth.Blacklist
	hasher     *auth.PasswordHasher
	locker     lock.Locker
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	accessTTL  int64
	refreshTTL int64
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Tokens     *auth.TokenCodec
	Blacklist  *auth.Blacklist
	Hasher     *auth.PasswordHasher
	Locker     lock.Locker
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewPasswordHasher(cfg.BcryptCost)
	}
	return &AuthService{
		accounts:   deps.Accounts,
		tokens:     deps.Tokens,
		blacklist:  deps.Blacklist,
		hasher:     hasher,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		accessTTL:  cfg.AccessTokenTTLSeconds,
		refreshTTL: cfg.RefreshTokenTTLSeconds,
	}
}

// Register creates a new account with a hashed password.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	normalized, emailOK := domain.NormalizeEmail(email)

	details := map[string]any{}
	if username == "" {
		details["username"] = "must not be blank"
	}
	if !emailOK {
		details["email"] = "must be a valid email address"
	}
	switch {
	case len(password) < minPasswordLength:
		details["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordBytes:
		details["password"] = fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidRequestData("invalid registration data", details)
	}

	exists, err := s.accounts.ExistsByEmail(ctx, normalized)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewAccountAlreadyExists(normalized)
	}

	hash, err := s.hasher.Encode(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Username:     username,
		Email:        normalized,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewAccountAlreadyExists(normalized)
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID), zap.String("email", normalized))
	s.publish(ctx, events.New(events.EventAccountRegistered, account.ID, normalized, s.tokens.Now(), nil))
	return account, nil
}

// Login verifies credentials and returns an access/refresh pair. A still
// valid, unrevoked refresh token already held by the account is reused.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	normalized, ok := domain.NormalizeEmail(email)
	if !ok || password == "" {
		s.metrics.LoginOutcome("malformed")
		return nil, apperrors.NewInvalidRequestData("email and password are required", nil)
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.LoginOutcome("unknown_account")
			s.logger.Debug("login for unknown account", zap.String("email", normalized))
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}

	if !s.hasher.Matches(password, account.PasswordHash) {
		s.metrics.LoginOutcome("bad_password")
		s.logger.Debug("login password mismatch", zap.String("email", normalized))
		return nil, apperrors.NewInvalidCredentials()
	}

	var (
		pair   *domain.TokenPair
		reused bool
	)
	err = s.withAccountLock(ctx, normalized, func() error {
		current, err := s.accounts.GetByEmail(ctx, normalized)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewInvalidCredentials()
			}
			return apperrors.MapError(err)
		}
		account = current

		now := s.tokens.Now()
		access, err := s.mint(account.Email, now, s.accessTTL, domain.TokenTypeAccess)
		if err != nil {
			return err
		}
		account.AssignAccessToken(access.Value, access.ExpiresAt)

		if s.reusableRefreshToken(account) {
			reused = true
		} else {
			refresh, err := s.mint(account.Email, now, s.refreshTTL, domain.TokenTypeRefresh)
			if err != nil {
				return err
			}
			account.AssignRefreshToken(refresh.Value, refresh.ExpiresAt)
		}

		if err := s.accounts.SaveTokens(ctx, account); err != nil {
			return apperrors.MapError(err)
		}
		pair = &domain.TokenPair{
			AccessToken:  access.Value,
			RefreshToken: *account.RefreshToken,
			ExpiresIn:    s.accessTTL,
		}
		return nil
	})
	if err != nil {
		s.metrics.LoginOutcome("error")
		return nil, err
	}

	s.metrics.LoginOutcome("success")
	s.logger.Info("account logged in", zap.String("email", normalized), zap.Bool("reused_refresh_token", reused))
	s.publish(ctx, events.New(events.EventAccountLoggedIn, account.ID, normalized, s.tokens.Now(),
		events.LoginPayload{ReusedRefreshToken: reused}))
	return pair, nil
}

// RefreshAccessToken exchanges the account's current refresh token for a new
// access token. The refresh token itself is returned unchanged.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if tokenType, ok := s.tokens.TypeOf(refreshToken); !ok || tokenType != domain.TokenTypeRefresh {
		return nil, apperrors.NewInvalidRefreshToken("refresh token required")
	}
	if !s.tokens.Verify(refreshToken) {
		return nil, apperrors.NewInvalidRefreshToken("refresh token expired or invalid")
	}
	if s.blacklist.IsRevoked(refreshToken) {
		return nil, apperrors.NewInvalidRefreshToken("refresh token revoked")
	}
	subject, ok := s.tokens.SubjectOf(refreshToken)
	if !ok {
		return nil, apperrors.NewInvalidRefreshToken("refresh token has no subject")
	}

	var (
		pair    *domain.TokenPair
		account *domain.Account
	)
	err := s.withAccountLock(ctx, subject, func() error {
		var err error
		account, err = s.accounts.GetByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewAccountNotFound()
			}
			return apperrors.MapError(err)
		}
		if !account.HasRefreshToken() || *account.RefreshToken != refreshToken {
			return apperrors.NewRefreshTokenMismatch()
		}

		access, err := s.mint(account.Email, s.tokens.Now(), s.accessTTL, domain.TokenTypeAccess)
		if err != nil {
			return err
		}
		account.AssignAccessToken(access.Value, access.ExpiresAt)
		if err := s.accounts.SaveTokens(ctx, account); err != nil {
			return apperrors.MapError(err)
		}
		pair = &domain.TokenPair{
			AccessToken:  access.Value,
			RefreshToken: refreshToken,
			ExpiresIn:    s.accessTTL,
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("refresh rejected", zap.String("email", subject), zap.Error(err))
		return nil, err
	}

	s.logger.Info("access token refreshed", zap.String("email", subject))
	s.publish(ctx, events.New(events.EventTokenRefreshed, account.ID, subject, s.tokens.Now(), nil))
	return pair, nil
}

// Logout revokes whatever tokens the account holds and clears them.
// Calling it again is a no-op.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	normalized, ok := domain.NormalizeEmail(email)
	if !ok {
		return apperrors.NewInvalidRequestData("a valid email is required", nil)
	}

	var (
		account *domain.Account
		revoked int
	)
	err := s.withAccountLock(ctx, normalized, func() error {
		var err error
		account, err = s.accounts.GetByEmail(ctx, normalized)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewAccountNotFound()
			}
			return apperrors.MapError(err)
		}

		if account.HasRefreshToken() {
			s.blacklist.RevokeUntil(*account.RefreshToken, derefTime(account.RefreshTokenExpiresAt))
			revoked++
		}
		if account.HasAccessToken() {
			s.blacklist.RevokeUntil(*account.AccessToken, derefTime(account.AccessTokenExpiresAt))
			revoked++
		}
		if revoked == 0 {
			return nil
		}

		account.ClearTokens()
		if err := s.accounts.SaveTokens(ctx, account); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("account logged out", zap.String("email", normalized), zap.Int("revoked_tokens", revoked))
	s.publish(ctx, events.New(events.EventAccountLoggedOut, account.ID, normalized, s.tokens.Now(),
		events.LogoutPayload{RevokedTokens: revoked}))
	return nil
}

// Account looks up an account by id. A malformed id is reported as a miss.
func (s *AuthService) Account(ctx context.Context, id string) (*domain.Account, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// TokenCodec exposes the codec for the authorization gate.
func (s *AuthService) TokenCodec() *auth.TokenCodec {
	return s.tokens
}

// Blacklist exposes the revocation set for the authorization gate.
func (s *AuthService) Blacklist() *auth.Blacklist {
	return s.blacklist
}

func (s *AuthService) reusableRefreshToken(account *domain.Account) bool {
	if !account.HasRefreshToken() {
		return false
	}
	token := *account.RefreshToken
	return s.tokens.Verify(token) && !s.blacklist.IsRevoked(token)
}

func (s *AuthService) mint(subject string, issuedAt time.Time, ttl int64, tokenType domain.TokenType) (domain.IssuedToken, error) {
	token, err := s.tokens.Mint(subject, issuedAt, ttl, tokenType)
	if err != nil {
		s.logger.Error("token minting failed", zap.String("type", string(tokenType)), zap.Error(err))
		return domain.IssuedToken{}, apperrors.NewAuthenticationError(err)
	}
	s.metrics.TokenIssued(string(tokenType))
	return token, nil
}

func (s *AuthService) withAccountLock(ctx context.Context, email string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, "account:"+email)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("lock account: %w", err))
	}
	defer unlock()
	return fn()
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
