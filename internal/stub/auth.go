package stub

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/prepstack/interview-client/internal/transport"
)

// ContextKeySubject is the Gin context key for the authenticated subject.
const ContextKeySubject = "subject"

// IssueToken mints a short-lived HS256 bearer token for the stub.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// RequireJWT validates a bearer token from the Authorization header.
func RequireJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := verifyBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			AbortFail(c, http.StatusUnauthorized, transport.ErrTokenInvalid, "invalid or missing bearer token")
			return
		}
		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

func verifyBearer(header, secret string) (string, error) {
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" || raw == header {
		return "", jwt.ErrTokenMalformed
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	subject, _ := claims.GetSubject()
	return subject, nil
}
