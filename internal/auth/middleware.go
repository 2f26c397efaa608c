package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/domain"
	"github.com/spec-kit/blog-api/internal/observability"
	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthorityUser is granted to every authenticated account.
const AuthorityUser = "ROLE_USER"

// AccountFinder loads the account behind a token subject.
type AccountFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	Email       string
	Account     *domain.Account
	TokenID     string
	Authorities []string
	ExpiresAt   time.Time
}

// HasAuthority reports whether the principal was granted authority.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// Gate is the request-time authorization check for protected routes.
type Gate struct {
	tokens    *TokenCodec
	blacklist *Blacklist
	accounts  AccountFinder
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewGate constructs the gate. accounts may be nil, in which case the
// principal carries only the token identity.
func NewGate(tokens *TokenCodec, blacklist *Blacklist, accounts AccountFinder, metrics *observability.Metrics, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, blacklist: blacklist, accounts: accounts, metrics: metrics, logger: logger}
}

// Authenticate checks the blacklist, then signature and expiry, then maps the
// claims to a Principal.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		g.metrics.GateRejected("missing")
		return nil, apperrors.NewUnauthenticated("missing token")
	}
	if g.blacklist.IsRevoked(token) {
		g.metrics.GateRejected("revoked")
		return nil, apperrors.NewUnauthenticated("token revoked")
	}

	claims, err := g.tokens.Parse(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		g.metrics.GateRejected(reason)
		return nil, apperrors.NewUnauthenticated("invalid token")
	}
	if claims.Type != domain.TokenTypeAccess {
		g.metrics.GateRejected("wrong_type")
		return nil, apperrors.NewUnauthenticated("access token required")
	}

	principal := &Principal{
		Email:       claims.Subject,
		TokenID:     claims.ID,
		Authorities: []string{AuthorityUser},
		ExpiresAt:   claims.ExpiresAt.Time,
	}

	if g.accounts != nil {
		account, err := g.accounts.GetByEmail(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				g.metrics.GateRejected("unknown_account")
				return nil, apperrors.NewUnauthenticated("account not found")
			}
			return nil, apperrors.MapError(err)
		}
		principal.Account = account
	}
	return principal, nil
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		g.metrics.GateRejected("missing")
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		g.metrics.GateRejected("malformed")
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	principal, err := g.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
	if err != nil {
		g.logger.Debug("gate rejected request", zap.String("path", c.Path()), zap.Error(err))
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
