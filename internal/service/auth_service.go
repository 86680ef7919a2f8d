package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-access/internal/auth"
	"github.com/spec-kit/marketplace-access/internal/config"
	"github.com/spec-kit/marketplace-access/internal/domain"
	"github.com/spec-kit/marketplace-access/internal/events"
	"github.com/spec-kit/marketplace-access/internal/repository"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// TokenRevoker invalidates issued tokens on logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService coordinates login, logout and the password recovery flow.
type AuthService struct {
	accounts   repository.AccountRepository
	resets     repository.ResetCodeRepository
	tokenMgr   *auth.TokenManager
	revoker    TokenRevoker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	AccountRepo   repository.AccountRepository
	ResetCodeRepo repository.ResetCodeRepository
	Revoker       TokenRevoker
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:   deps.AccountRepo,
		resets:     deps.ResetCodeRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		revoker:    deps.Revoker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new ordinary account and logs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Account, string, time.Time, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errorutil.NewValidation("email already registered", map[string]any{"email": email})
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	account := &domain.Account{
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              domain.RoleOrdinary,
		VerificationState: domain.VerificationUnverified,
		Active:            true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Login authenticates an account. Bad credentials and inactive accounts are
// distinguished so callers can surface the right screen.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, errorutil.NewAuthentication("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errorutil.NewAuthentication("invalid credentials")
	}
	if !account.Active {
		return nil, "", time.Time{}, errorutil.NewAuthorization("account inactive")
	}
	token, exp, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Logout invalidates the presented token. Idempotent: revoking an already
// revoked or expired token is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// RequestPasswordReset issues a recovery code for the email. It never reveals
// whether the address is registered; a fresh code supersedes any live one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	code := &repository.ResetCode{
		Email:     account.Email,
		Code:      uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, code); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventPasswordResetRequested,
		Actor:   events.Actor{AccountID: account.ID, Role: account.Role},
		Payload: events.PasswordResetRequestedPayload{Email: account.Email},
	})
	return nil
}

// ConfirmPasswordReset redeems a recovery code and replaces the credential.
// The code is single-use; redeeming consumes it.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, codeStr, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return errorutil.NewValidation("password confirmation does not match", nil)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	code, err := s.resets.GetActive(ctx, email, codeStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return errorutil.NewInvalidOrExpiredCode()
		}
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return errorutil.NewInvalidOrExpiredCode()
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	return s.resets.MarkUsed(ctx, code.ID)
}

// ChangePassword verifies the current password before updating to a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return errorutil.NewAuthentication("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.accounts.Update(ctx, account)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
