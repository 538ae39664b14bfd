package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/internal/database"
	"github.com/presence-app/presence/pkg/models"
)

// Service errors mapped to HTTP statuses by the handlers
var (
	ErrEmailTaken         = errors.New("email already in use")
	ErrPseudoTaken        = errors.New("pseudo already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
)

// Repository is the persistence surface the auth service needs
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPseudo(ctx context.Context, pseudo string) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, tokenHash string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	MarkEmailVerified(ctx context.Context, userID string) error
	PublishQuotesByOwner(ctx context.Context, userID string) (int64, error)
}

// Claims represents JWT claims carried in the auth cookies
type Claims struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair bundles the two tokens issued on register/login/refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterResult is what a successful registration returns. The plain
// verification token is only surfaced here so it can be emailed; the
// store keeps its SHA-256 hash.
type RegisterResult struct {
	User              *models.User
	Tokens            TokenPair
	VerificationToken string
}

// Service implements the auth token lifecycle
type Service struct {
	repo Repository
	cfg  config.AuthConfig
	now  func() time.Time
}

// NewService creates an auth service
func NewService(repo Repository, cfg config.AuthConfig) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Register creates a user and issues a token pair plus a verification token
func (s *Service) Register(ctx context.Context, email, pseudo, password string) (*RegisterResult, error) {
	// Uniqueness pre-checks give field-level errors; the unique indexes
	// stay authoritative under concurrent registrations.
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := s.repo.GetUserByPseudo(ctx, pseudo); err == nil {
		return nil, ErrPseudoTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check pseudo: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, tokenHash, err := newVerificationToken()
	if err != nil {
		return nil, err
	}
	expiry := s.now().Add(s.cfg.VerificationTTL)

	user := &models.User{
		Email:                 email,
		Pseudo:                pseudo,
		PasswordHash:          string(hash),
		EmailVerified:         false,
		VerificationTokenHash: tokenHash,
		VerificationExpiry:    &expiry,
		Role:                  models.UserRoleUser,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		User:              user,
		Tokens:            tokens,
		VerificationToken: verificationToken,
	}, nil
}

// Login checks credentials and issues a fresh token pair
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, TokenPair{}, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &now

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	return user, tokens, nil
}

// Refresh rotates both tokens from a valid refresh token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.verifyToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.repo.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, fmt.Errorf("failed to look up user: %w", err)
	}

	return s.IssueTokens(user)
}

// VerifyEmail consumes a verification token: marks the user verified,
// clears the token fields and flips the user's quotes public. The token
// is single-use; once the hash is cleared the same token is invalid.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	user, err := s.repo.GetUserByVerificationToken(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	if user.VerificationExpiry == nil || user.VerificationExpiry.Before(s.now()) {
		return nil, ErrTokenExpired
	}

	if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark verified: %w", err)
	}

	if _, err := s.repo.PublishQuotesByOwner(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to publish quotes: %w", err)
	}

	user.EmailVerified = true
	user.VerificationTokenHash = ""
	user.VerificationExpiry = nil

	return user, nil
}

// Profile loads a user by id
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return user, nil
}

// IssueTokens signs an access/refresh pair for a user
func (s *Service) IssueTokens(user *models.User) (TokenPair, error) {
	access, err := s.signToken(user, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := s.signToken(user, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken validates an access token and returns its claims
func (s *Service) VerifyAccessToken(token string) (*Claims, error) {
	return s.verifyToken(token, s.cfg.AccessSecret)
}

func (s *Service) signToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *Service) verifyToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashToken returns the hex SHA-256 of a verification token. Only the
// hash is stored so a database leak does not expose usable tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newVerificationToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}
