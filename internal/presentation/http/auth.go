package httppresentation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"

	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

var (
	ErrAuthNotConfigured = errors.New("auth: no signing secret configured")
	ErrMissingSubject    = errors.New("auth: token carries no user id")
)

// Claims are read from HS256 tokens issued by the account service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrAuthNotConfigured
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrMissingSubject
	}
	if claims.Role == "" {
		claims.Role = RoleCustomer
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid bearer token and exposes user_id and role on the context.
func RequireAuth(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization format, use 'Bearer <token>'"})
			return
		}

		claims, err := v.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Request = c.Request.WithContext(logctx.Enrich(c.Request.Context(),
			observability.F("user_id", claims.UserID),
			observability.F("role", claims.Role),
		))
		c.Next()
	}
}

func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "role missing"})
			return
		}
		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden"})
	}
}

func isAdmin(c *gin.Context) bool { return c.GetString(ctxRole) == RoleAdmin }
