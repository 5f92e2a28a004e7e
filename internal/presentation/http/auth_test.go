package httppresentation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return raw
}

func TestVerify(t *testing.T) {
	v := NewTokenVerifier(testSecret, "accounts")
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	t.Run("subject fallback and default role", func(t *testing.T) {
		raw := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "u7", Issuer: "accounts", ExpiresAt: future,
		})
		claims, err := v.Verify(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.UserID != "u7" || claims.Role != RoleCustomer {
			t.Errorf("got user %q role %q", claims.UserID, claims.Role)
		}
	})

	t.Run("explicit claims", func(t *testing.T) {
		raw := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
			UserID: "boss", Role: RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "accounts"},
		})
		claims, err := v.Verify(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.UserID != "boss" || claims.Role != RoleAdmin {
			t.Errorf("got user %q role %q", claims.UserID, claims.Role)
		}
	})

	rejected := map[string]string{
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
			Subject: "u1", Issuer: "accounts",
		}),
		"wrong algorithm": sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "u1", Issuer: "accounts",
		}),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "u1", Issuer: "elsewhere",
		}),
		"expired": sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "u1", Issuer: "accounts", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}),
		"unsigned": sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
			Subject: "u1", Issuer: "accounts",
		}),
	}
	for name, raw := range rejected {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(raw); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("no subject", func(t *testing.T) {
		raw := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Issuer: "accounts"})
		if _, err := v.Verify(raw); !errors.Is(err, ErrMissingSubject) {
			t.Errorf("err = %v, want ErrMissingSubject", err)
		}
	})
}

func TestVerifyWithoutSecret(t *testing.T) {
	var nilVerifier *TokenVerifier
	for _, v := range []*TokenVerifier{nilVerifier, NewTokenVerifier("", "")} {
		if _, err := v.Verify("anything"); !errors.Is(err, ErrAuthNotConfigured) {
			t.Errorf("err = %v, want ErrAuthNotConfigured", err)
		}
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role   string
		status int
	}{
		{"", http.StatusForbidden},
		{RoleCustomer, http.StatusForbidden},
		{RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/", func(c *gin.Context) {
			if tc.role != "" {
				c.Set(ctxRole, tc.role)
			}
			c.Next()
		}, RequireRole(RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != tc.status {
			t.Errorf("role %q: status = %d, want %d", tc.role, w.Code, tc.status)
		}
	}
}
