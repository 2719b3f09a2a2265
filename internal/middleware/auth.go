package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
	"github.com/jwalitptl/leukemia-dashboard/pkg/auth"
)

const (
	ContextAccountID = "account_id"
	tokenScheme      = "Token"
)

type AuthMiddleware struct {
	tokens   auth.TokenService
	accounts repository.AccountRepository
}

func NewAuthMiddleware(tokens auth.TokenService, accounts repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		accounts: accounts,
	}
}

// Authenticate accepts "Authorization: Token <token>" and stores the account
// id in the context. Failures answer 401 with a REST framework detail body.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || parts[0] != tokenScheme {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Invalid token header.",
			})
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}
		accountID, err := claims.AccountID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}
		if _, err := m.accounts.GetAccount(c.Request.Context(), accountID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User inactive or deleted."})
			return
		}

		c.Set(ContextAccountID, accountID)
		c.Next()
	}
}

// AccountID returns the id set by Authenticate.
func AccountID(c *gin.Context) int {
	return c.GetInt(ContextAccountID)
}
