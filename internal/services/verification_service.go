package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/utils"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/smarttransit/seat-reservation-backend/pkg/mailer"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidRefreshToken is returned for any refresh token that cannot be exchanged
var ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

// VerificationOptions tunes code issuing
type VerificationOptions struct {
	CodeLength        int
	Expiry            time.Duration
	MaxAttempts       int
	BcryptCost        int
	UnverifiedUserTTL time.Duration
	ExposeCode        bool // return the code in the response; never enable in production
}

// CleanupResult counts rows removed by CleanupUnverified
type CleanupResult struct {
	Users      int64 `json:"users"`
	Sessions   int64 `json:"sessions"`
	RateLimits int64 `json:"rate_limits"`
}

// ClientInfo identifies where a code request came from
type ClientInfo struct {
	IP        string
	UserAgent string
}

// VerificationService registers passengers by emailing a one-time code and
// issues tokens once the code is confirmed.
type VerificationService struct {
	users     UserStore
	sessions  VerificationSessionStore
	limiter   CodeRateLimiter
	mailer    mailer.Mailer
	tokens    *jwt.Service
	clock     Clock
	opts      VerificationOptions
	emails    *validator.EmailValidator
	validator *validator.StructValidator
	logger    *logrus.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	users UserStore,
	sessions VerificationSessionStore,
	limiter CodeRateLimiter,
	m mailer.Mailer,
	tokens *jwt.Service,
	clock Clock,
	opts VerificationOptions,
	logger *logrus.Logger,
) *VerificationService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &VerificationService{
		users:     users,
		sessions:  sessions,
		limiter:   limiter,
		mailer:    m,
		tokens:    tokens,
		clock:     clock,
		opts:      opts,
		emails:    validator.NewEmailValidator(),
		validator: validator.NewStructValidator(),
		logger:    logger,
	}
}

// Register creates the user if needed and emails a verification code.
// An already verified user gets a fresh code too, which is how passengers sign in again.
func (s *VerificationService) Register(ctx context.Context, req models.RegisterRequest, client ClientInfo) (*models.VerificationStarted, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	email, err := s.emails.Validate(req.Email)
	if err != nil {
		return nil, domain.ValidationError{Field: "email", Msg: err.Error(), Err: err}
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	if err := s.limiter.CheckCodeRateLimit(email, client.IP); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, domain.Internal("load user", err)
	}
	switch {
	case user == nil:
		user, err = s.users.CreateUser(email, firstName, lastName)
		if err != nil {
			return nil, domain.Internal("create user", err)
		}
		s.logger.WithField("user_id", user.ID).Info("User registered")
	case !user.EmailVerified:
		if err := s.users.UpdateUserNames(user.ID, firstName, lastName); err != nil {
			return nil, domain.Internal("update user", err)
		}
		user.FirstName, user.LastName = firstName, lastName
	}

	return s.issueCode(ctx, user.ID, email, user.FullName(), client)
}

// Resend replaces an unverified session with a new one carrying a fresh code
func (s *VerificationService) Resend(ctx context.Context, req models.ResendRequest, client ClientInfo) (*models.VerificationStarted, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	sessionID, _ := uuid.Parse(req.SessionID)

	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, domain.Internal("load verification session", err)
	}
	if session == nil {
		return nil, domain.NewNotFoundError("verification session", sessionID)
	}
	if session.IsVerified() {
		return nil, domain.NewStateError("verification session", "verified", "code already used")
	}

	if err := s.limiter.CheckCodeRateLimit(session.Email, client.IP); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(session.UserID)
	if err != nil {
		return nil, domain.Internal("load user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user", session.UserID)
	}

	return s.issueCode(ctx, user.ID, session.Email, user.FullName(), client)
}

// Verify checks the code of a session and returns tokens for its user
func (s *VerificationService) Verify(ctx context.Context, req models.VerifyRequest) (*models.AuthTokens, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	sessionID, _ := uuid.Parse(req.SessionID)

	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, domain.Internal("load verification session", err)
	}
	if session == nil {
		return nil, domain.NewNotFoundError("verification session", sessionID)
	}

	now := s.clock.Now()
	switch {
	case session.IsVerified():
		return nil, domain.NewStateError("verification session", "verified", "code already used")
	case session.IsExpired(now):
		return nil, domain.NewStateError("verification session", "expired", "verification code has expired")
	case session.AttemptsExhausted():
		return nil, domain.NewStateError("verification session", "locked", "too many failed attempts")
	}

	attempts, err := s.sessions.IncrementAttempts(session.ID)
	if err != nil {
		return nil, domain.Internal("record attempt", err)
	}
	if attempts > session.MaxAttempts {
		return nil, domain.NewStateError("verification session", "locked", "too many failed attempts")
	}

	if bcrypt.CompareHashAndPassword([]byte(session.CodeHash), []byte(req.Code)) != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": session.ID,
			"attempts":   attempts,
		}).Warn("Invalid verification code")
		return nil, domain.NewValidationError("code", "invalid verification code")
	}

	marked, err := s.sessions.MarkVerified(session.ID, now)
	if err != nil {
		return nil, domain.Internal("mark session verified", err)
	}
	if !marked {
		return nil, domain.NewStateError("verification session", "verified", "code already used")
	}

	if err := s.users.MarkEmailVerified(session.UserID); err != nil {
		return nil, domain.Internal("mark email verified", err)
	}
	user, err := s.users.GetUserByID(session.UserID)
	if err != nil {
		return nil, domain.Internal("load user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user", session.UserID)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("Email verified")
	return tokens, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *VerificationService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetUserByID(claims.UserID)
	if err != nil {
		return nil, domain.Internal("load user", err)
	}
	if user == nil || !user.EmailVerified {
		return nil, ErrInvalidRefreshToken
	}

	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, domain.Internal("generate access token", err)
	}

	return &models.AuthTokens{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.AccessTokenExpiry().Seconds()),
		User:        user,
	}, nil
}

// CleanupUnverified removes expired sessions, stale rate limit entries and users
// who never verified within the configured TTL.
func (s *VerificationService) CleanupUnverified(ctx context.Context) (*CleanupResult, error) {
	now := s.clock.Now()
	result := &CleanupResult{}

	var err error
	if result.Sessions, err = s.sessions.DeleteExpired(now); err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	if result.RateLimits, err = s.limiter.CleanupExpiredRateLimits(); err != nil {
		return nil, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}
	if s.opts.UnverifiedUserTTL > 0 {
		if result.Users, err = s.users.DeleteUnverifiedBefore(now.Add(-s.opts.UnverifiedUserTTL)); err != nil {
			return nil, fmt.Errorf("failed to delete unverified users: %w", err)
		}
	}

	return result, nil
}

func (s *VerificationService) issueCode(ctx context.Context, userID uuid.UUID, email, name string, client ClientInfo) (*models.VerificationStarted, error) {
	code, err := generateCode(s.opts.CodeLength)
	if err != nil {
		return nil, domain.Internal("generate code", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.BcryptCost)
	if err != nil {
		return nil, domain.Internal("hash code", err)
	}

	now := s.clock.Now()
	session := &models.VerificationSession{
		ID:          uuid.New(),
		UserID:      userID,
		Email:       email,
		CodeHash:    string(hash),
		Purpose:     models.VerificationPurposeRegistration,
		MaxAttempts: s.opts.MaxAttempts,
		ExpiresAt:   now.Add(s.opts.Expiry),
		IPAddress:   client.IP,
		UserAgent:   client.UserAgent,
		DeviceType:  utils.ParseDevice(client.UserAgent).Type,
		CreatedAt:   now,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, domain.Internal("create verification session", err)
	}
	if err := s.limiter.RecordCodeRequest(email, client.IP); err != nil {
		s.logger.WithError(err).Warn("Failed to record code request")
	}

	msg := mailer.VerificationCodeMessage(email, name, code, int(s.opts.Expiry.Minutes()))
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, domain.Internal("send verification email", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    userID,
		"device":     session.DeviceType,
		"mailer":     s.mailer.GetName(),
	}).Info("Verification code sent")

	started := &models.VerificationStarted{SessionID: session.ID, ExpiresAt: session.ExpiresAt}
	if s.opts.ExposeCode {
		started.DevCode = code
	}
	return started, nil
}

func (s *VerificationService) issueTokens(user *models.User) (*models.AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, domain.Internal("generate access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, domain.Internal("generate refresh token", err)
	}
	return &models.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTokenExpiry().Seconds()),
		User:         user,
	}, nil
}

// generateCode returns a uniformly random numeric code of the given length
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
