package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"pubhook/internal/platform/config"
)

const (
	issuer = "pubhook"

	CapabilityManageOptions = "manage_options"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptySecret        = errors.New("jwt secret must not be empty")
)

type Claims struct {
	Username     string   `json:"usr"`
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

func (c *Claims) Can(capability string) bool {
	for _, granted := range c.Capabilities {
		if granted == capability {
			return true
		}
	}
	return false
}

type TokenService struct {
	config config.JWTConfig
	now    func() time.Time
}

// NewTokenService refuses an empty secret: an HMAC keyed with "" lets anyone
// mint tokens.
func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenService{config: cfg, now: time.Now}, nil
}

func (s *TokenService) GenerateAccessToken(username string, capabilities []string) (string, error) {
	if s.config.Secret == "" {
		return "", ErrEmptySecret
	}
	now := s.now()
	claims := Claims{
		Username:     username,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	if s.config.Secret == "" {
		return nil, ErrEmptySecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// Authenticator checks the configured operator account.
type Authenticator struct {
	admin config.AdminConfig
}

func NewAuthenticator(admin config.AdminConfig) *Authenticator {
	return &Authenticator{admin: admin}
}

// Authenticate returns the capabilities granted to username. An account with
// no password hash configured cannot log in.
func (a *Authenticator) Authenticate(username, password string) ([]string, error) {
	if a.admin.PasswordHash == "" || username != a.admin.Username {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return []string{CapabilityManageOptions}, nil
}
