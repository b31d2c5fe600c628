// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lumennodes/portal/internal/core"
)

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
	ClaimsKey    contextKey = "session_claims"
)

const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

var roleRank = map[string]int{
	RoleUser:  1,
	RoleStaff: 2,
	RoleAdmin: 3,
}

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	TokenID      string
	UserID       string
	Email        string
	Role         string
	TokenVersion int
	ExpiresAt    time.Time
}

// Authenticator resolves the session token from the Authorization header
// or the session cookie. Any verification failure (expired, malformed,
// bad signature, revoked) is reported as the same 401.
func Authenticator(
	verifier TokenVerifier,
	cookieName string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				core.Unauthorized(w, "authentication required")
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.Unauthorized(w, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return ctx
}

// RequireRole admits callers whose role ranks at or above min.
func RequireRole(min string) func(http.Handler) http.Handler {
	minRank, ok := roleRank[min]
	if !ok {
		panic(fmt.Sprintf("middleware: unknown role %q", min))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r.Context())
			if role == "" {
				core.Unauthorized(w, "authentication required")
				return
			}

			if roleRank[role] < minRank {
				core.Forbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin)(next)
}

func RequireStaff(next http.Handler) http.Handler {
	return RequireRole(RoleStaff)(next)
}

// Authorize is the ownership check for per-resource mutations. Staff and
// admins bypass ownership.
func Authorize(ctx context.Context, ownerID string) error {
	userID := GetUserID(ctx)
	if userID == "" {
		return fmt.Errorf("authorize: %w", core.ErrUnauthorized)
	}

	if userID == ownerID || IsStaff(ctx) {
		return nil
	}

	return fmt.Errorf("authorize: %w", core.ErrForbidden)
}

func ExtractToken(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookieName == "" {
		return ""
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if role, ok := ctx.Value(UserRoleKey).(string); ok {
		return role
	}
	return ""
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}

func IsStaff(ctx context.Context) bool {
	return roleRank[GetUserRole(ctx)] >= roleRank[RoleStaff]
}

func IsAdmin(ctx context.Context) bool {
	return GetUserRole(ctx) == RoleAdmin
}
