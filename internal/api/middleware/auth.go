package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const subjectContextKey = "auth_subject"

var (
	errMissingAuthHeader = errors.New("missing or malformed Authorization header")
	errInvalidToken      = errors.New("invalid or expired token")
)

type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
	}
}

// VerifyJWT guards the admin routes. It expects a Bearer token signed with
// the configured HMAC key.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuthHeader.Error()})

			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}

			return a.signingKey, nil
		})
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken.Error()})

			return
		}

		if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok {
			ctx.Set(subjectContextKey, claims.Subject)
		}

		ctx.Next()
	}
}

// Subject returns the authenticated subject set by VerifyJWT, if any.
func Subject(ctx *gin.Context) string {
	return ctx.GetString(subjectContextKey)
}
