package usertoken

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

const (
	defaultIssuer   = "launchday-auth"
	defaultAudience = "launchday-api"
	defaultLeeway   = 30 * time.Second
)

// Config configures user access-token verification.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims is the access-token payload issued by the identity provider.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 user access tokens and extracts the caller.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewVerifier creates a token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if len(secret) < 32 {
		return nil, errors.New("token verifier requires a secret of at least 32 bytes")
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = defaultAudience
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}, nil
}

// VerifyUser validates the token and returns the user it was issued to.
// Unknown roles degrade to a plain user.
func (v *Verifier) VerifyUser(token string) (domain.User, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return domain.User{}, err
	}
	if !parsed.Valid {
		return domain.User{}, errors.New("invalid token")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return domain.User{}, errors.New("token subject missing")
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = subject
	}
	return domain.User{
		ID:          subject,
		DisplayName: name,
		Role:        parseRole(claims.Role),
	}, nil
}

// Issue signs a token for user; used by tooling and tests.
func (v *Verifier) Issue(user domain.User, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Name: user.DisplayName,
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func parseRole(raw string) domain.UserRole {
	switch domain.UserRole(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.RoleOperator:
		return domain.RoleOperator
	case domain.RoleAdmin:
		return domain.RoleAdmin
	default:
		return domain.RoleUser
	}
}
