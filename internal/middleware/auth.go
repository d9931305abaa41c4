package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/auth"
	"github.com/monocle-dev/taskforge/internal/models"
	"github.com/monocle-dev/taskforge/internal/types"
)

type AuthenticatedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserFinder loads the account a token was issued for.
type UserFinder interface {
	Get(ctx context.Context, userID uint) (*models.User, error)
}

// AuthMiddleware accepts a bearer token, the token cookie, or a token query
// parameter (browsers cannot set headers on websocket upgrades).
func AuthMiddleware(issuer *auth.Issuer, users UserFinder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, problem := tokenFromRequest(ctx)

		if problem != "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}

		claims, err := issuer.VerifyJWT(tokenString)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.Get(ctx.Request.Context(), claims.UserID)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
		ctx.Next()
	}
}

func tokenFromRequest(ctx *gin.Context) (string, string) {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", "Authorization header format must be Bearer {token}"
		}

		return parts[1], ""
	}

	if cookie, err := ctx.Cookie(types.TokenCookie); err == nil && cookie != "" {
		return cookie, ""
	}

	if token := ctx.Query("token"); token != "" {
		return token, ""
	}

	return "", "Authorization token is required"
}
