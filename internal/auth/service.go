package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "shopledger"

// Config groups the auth secrets.
type Config struct {
	Secret           string
	AdminPasskeyHash string
	StaffPasskeyHash string
	TokenTTL         time.Duration
}

// Service exchanges passkeys for signed role tokens and verifies them.
type Service struct {
	secret   []byte
	passkeys []rolePasskey
	ttl      time.Duration
	now      func() time.Time
}

type rolePasskey struct {
	role Role
	hash []byte
}

// NewService constructs a Service. Roles without a configured hash cannot log in.
func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: secret required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	svc := &Service{secret: []byte(cfg.Secret), ttl: ttl, now: time.Now}
	for _, rp := range []rolePasskey{
		{role: RoleAdmin, hash: []byte(cfg.AdminPasskeyHash)},
		{role: RoleStaff, hash: []byte(cfg.StaffPasskeyHash)},
	} {
		if len(rp.hash) == 0 {
			continue
		}
		if _, err := bcrypt.Cost(rp.hash); err != nil {
			return nil, fmt.Errorf("auth: %s passkey hash: %w", rp.role, err)
		}
		svc.passkeys = append(svc.passkeys, rp)
	}
	return svc, nil
}

// Exchange compares passkey against the configured hashes, admin first.
func (s *Service) Exchange(ctx context.Context, passkey string) (Token, error) {
	if passkey == "" {
		return Token{}, ErrInvalidPasskey
	}
	for _, rp := range s.passkeys {
		if err := ctx.Err(); err != nil {
			return Token{}, err
		}
		if bcrypt.CompareHashAndPassword(rp.hash, []byte(passkey)) == nil {
			return s.Issue(rp.role)
		}
	}
	return Token{}, ErrInvalidPasskey
}

// Issue signs a token for role.
func (s *Service) Issue(role Role) (Token, error) {
	if !role.Valid() {
		return Token{}, fmt.Errorf("auth: unknown role %q", role)
	}
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign: %w", err)
	}
	return Token{Token: signed, Role: role, ExpiresAt: expires.UTC()}, nil
}

// Verify parses and checks a token, returning its claims.
func (s *Service) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || !claims.Role.Valid() {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
