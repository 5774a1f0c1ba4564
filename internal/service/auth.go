package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quartzbi/quartz/internal/config"
)

// APIKeyPrincipal is the identity attached to a request authenticated with
// an API key. Scopes and limits are snapshotted at validation time.
type APIKeyPrincipal struct {
	KeyID              string
	OwnerID            int64
	Scopes             []string
	RateLimitPerMinute int
	RateLimitPerHour   int
	RateLimitPerDay    int
}

// HasScope reports whether the principal carries the given scope.
func (p *APIKeyPrincipal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// JWTPrincipal is the identity attached to an admin session.
type JWTPrincipal struct {
	AdminID int64
	Email   string
}

type AuthService struct {
	store     *config.Store
	jwtSecret []byte
}

func NewAuthService(store *config.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
	}
}

// Login verifies the admin's credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string, ttl time.Duration) (string, *JWTPrincipal, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueJWT(ctx, admin.ID, admin.Email, ttl)
	if err != nil {
		return "", nil, err
	}

	// Best effort; a failed timestamp update must not fail the login.
	_ = s.store.UpdateAdminLastLogin(ctx, admin.ID)

	return token, &JWTPrincipal{AdminID: admin.ID, Email: admin.Email}, nil
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ValidateAPIKey checks the provided raw API key against stored key hashes.
// Deactivated keys fail with ErrKeyRevoked, expired keys with
// ErrTokenExpired; an unknown secret is indistinguishable from a wrong one.
func (s *AuthService) ValidateAPIKey(ctx context.Context, rawKey string) (*APIKeyPrincipal, error) {
	key, err := s.store.GetAPIKeyByHash(ctx, config.HashAPIKey(rawKey))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !key.IsActive {
		return nil, ErrKeyRevoked
	}

	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	return &APIKeyPrincipal{
		KeyID:              key.ID,
		OwnerID:            key.OwnerID,
		Scopes:             key.Scopes,
		RateLimitPerMinute: key.RateLimitPerMinute,
		RateLimitPerHour:   key.RateLimitPerHour,
		RateLimitPerDay:    key.RateLimitPerDay,
	}, nil
}

// ValidateJWT verifies a bearer token and returns the admin identity.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*JWTPrincipal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &JWTPrincipal{
		AdminID: claims.AdminID,
		Email:   claims.Email,
	}, nil
}

// IssueJWT creates a new signed session token for the given admin.
func (s *AuthService) IssueJWT(ctx context.Context, adminID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "quartz",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type jwtClaims struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}
