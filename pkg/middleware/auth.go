package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errUnknownRole = errors.New("unknown role")

// Claims are the bearer token claims: sub is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewToken signs an HS256 token for a user. Used by the token command and tests.
func NewToken(secret, issuer, userID string, role entity.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Auth validates the bearer token and puts the caller into the request context.
func Auth(secret, issuer string, logger *zap.Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			var claims Claims
			_, err := parser.ParseWithClaims(parts[1], &claims, func(*jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err == nil {
				err = checkClaims(&claims)
			}
			if err != nil {
				logger.Warn("Rejected bearer token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
					zap.String("ip", r.RemoteAddr),
				)
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// system actors never authenticate over HTTP
func checkClaims(c *Claims) error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing subject", jwt.ErrTokenInvalidClaims)
	}
	switch entity.UserRole(c.Role) {
	case entity.RoleCustomer, entity.RoleProvider, entity.RoleAdmin:
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownRole, c.Role)
}
