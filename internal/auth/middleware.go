package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked covers logout, password change and deleted operators.
	ErrTokenRevoked = errors.New("token revoked")
)

// Verify checks an "Authorization: Bearer <jwt>" value. With a non-nil repo
// the token must also carry the operator's current token version. Errors
// other than the three sentinels come from the operator lookup itself.
func Verify(ctx context.Context, tokens TokenService, repo *Repo, header string) (*Claims, error) {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return nil, ErrMissingToken
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if repo == nil {
		return claims, nil
	}

	current, err := repo.GetTokenVersion(ctx, claims.OperatorID)
	switch {
	case errors.Is(err, ErrOperatorNotFound):
		return nil, ErrTokenRevoked
	case err != nil:
		return nil, err
	case current != claims.TokenVersion:
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// IsAuthError reports whether err means the caller is not authenticated, as
// opposed to a failed lookup.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenRevoked)
}

// RequireOperator rejects requests without a current operator token.
func RequireOperator(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := Verify(c.Request.Context(), tokens, repo, c.GetHeader("Authorization"))
		if err != nil {
			if IsAuthError(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth lookup failed"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// OperatorName is the username behind the request, or "-" on routes that
// are not behind RequireOperator.
func OperatorName(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil && claims.Username != "" {
		return claims.Username
	}
	return "-"
}
