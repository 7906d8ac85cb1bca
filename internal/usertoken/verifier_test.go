package usertoken

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{Secret: testSecret, Issuer: "issuer-a", Audience: "aud-a"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
	if _, err := NewVerifier(Config{Secret: "short"}); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestVerifyUserRoundTrip(t *testing.T) {
	v := newTestVerifier(t)
	signed, err := v.Issue(domain.User{ID: "user-a", DisplayName: "Ada", Role: domain.RoleOperator}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	user, err := v.VerifyUser(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != "user-a" || user.DisplayName != "Ada" || user.Role != domain.RoleOperator {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestVerifyUserDefaultsNameAndRole(t *testing.T) {
	v := newTestVerifier(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-b",
			Issuer:    "issuer-a",
			Audience:  jwt.ClaimStrings{"aud-a"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	user, err := v.VerifyUser(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.DisplayName != "user-b" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected defaults: %+v", user)
	}
}

func TestVerifyUserRejectsBadTokens(t *testing.T) {
	v := newTestVerifier(t)
	base := jwt.RegisteredClaims{
		Subject:   "user-c",
		Issuer:    "issuer-a",
		Audience:  jwt.ClaimStrings{"aud-a"},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}

	expired := base
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongAud := base
	wrongAud.Audience = jwt.ClaimStrings{"aud-b"}
	futureIat := base
	futureIat.IssuedAt = jwt.NewNumericDate(time.Now().Add(2 * time.Minute))
	noExp := base
	noExp.ExpiresAt = nil
	noSub := base
	noSub.Subject = ""

	cases := map[string]struct {
		claims jwt.RegisteredClaims
		secret string
	}{
		"expired":      {expired, testSecret},
		"audience":     {wrongAud, testSecret},
		"future iat":   {futureIat, testSecret},
		"missing exp":  {noExp, testSecret},
		"missing sub":  {noSub, testSecret},
		"wrong secret": {base, "fedcba9876543210fedcba9876543210"},
	}
	for name, tc := range cases {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: tc.claims}).SignedString([]byte(tc.secret))
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := v.VerifyUser(signed); err == nil {
			t.Fatalf("%s: expected verification to fail", name)
		}
	}

	if _, err := v.VerifyUser("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to fail")
	}
}
