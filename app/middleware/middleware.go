package appMiddleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UserRoleKey contextKey = "userRole"
)

const RoleAdmin = "admin"

// Claims is the payload of an operator token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate validates an HS256 bearer token signed with secret and adds
// the user ID and role to the request context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				api.ErrorResponse(w, r, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards operator routes. An empty secret disables the check,
// which is how local development runs.
func RequireAdmin(secret []byte) func(http.Handler) http.Handler {
	if len(secret) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	authenticate := Authenticate(secret)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role, _ := GetUserRoleFromContext(r.Context()); role != RoleAdmin {
				api.ErrorResponse(w, r, http.StatusForbidden, "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func parseBearer(header string, secret []byte) (*Claims, error) {
	if header == "" {
		return nil, errors.New("authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, errors.New("authorization header format must be Bearer {token}")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
