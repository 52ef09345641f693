package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/usecase"
)

const (
	detailNotAuthenticated  = "Not authenticated"
	detailInvalidCredential = "Invalid credential"
	detailUserNotFound      = "User not found"
	detailInternal          = "internal server error"

	accountKey = "account"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Detail  string `json:"detail"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, detail string) ErrorResponse {
	return ErrorResponse{
		Detail:  detail,
		TraceID: GetTraceID(c),
	}
}

// AccountResolver resolves the account behind a bearer session token.
type AccountResolver interface {
	CurrentAccount(ctx context.Context, token string) (domain.Account, error)
}

// RequireAuth validates the bearer token and stores the resolved account on the context.
func RequireAuth(resolver AccountResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, detailNotAuthenticated)
			return
		}

		account, err := resolver.CurrentAccount(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredAccessToken), errors.Is(err, usecase.ErrInvalidAccessToken):
				unauthorized(c, detailInvalidCredential)
			case errors.Is(err, usecase.ErrAccountNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, newErrorResponse(c, detailUserNotFound))
			default:
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, detailInternal))
			}
			return
		}

		c.Set(AccountIDKey, account.ID)
		c.Set(accountKey, account)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = account.ID
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, detail))
}

// GetAuthenticatedAccountID retrieves the account ID stored by RequireAuth.
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}

	if id, ok := accountID.(string); ok {
		return id, true
	}

	return "", false
}

// GetAuthenticatedAccount retrieves the sanitized account stored by RequireAuth.
func GetAuthenticatedAccount(c *gin.Context) (domain.Account, bool) {
	value, exists := c.Get(accountKey)
	if !exists {
		return domain.Account{}, false
	}
	account, ok := value.(domain.Account)
	return account, ok
}
