package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/transport/http/middleware"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/usecase"
)

const (
	detailEmailTaken          = "Email already registered"
	detailInvalidCredentials  = "Incorrect username/email or password"
	detailInvalidVerification = "Invalid verification token"
	detailInvalidRegistration = "Invalid registration payload"
	messageEmailVerified      = "Email verified successfully. You can now login."
)

var bearerChallenge = map[string]string{"WWW-Authenticate": "Bearer"}

// AuthHandler exposes the registration, login, identity and verification endpoints.
type AuthHandler struct {
	identity *usecase.IdentityService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(identity *usecase.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// RegisterRoutes binds the auth endpoints; requireAuth guards /me.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/me", requireAuth, h.Me)
	r.GET("/verify/:token", h.Verify)
}

// Register creates an unverified account and triggers the verification email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, detailInvalidRegistration))
		return
	}

	account, err := h.identity.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusBadRequest, Message: detailEmailTaken},
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: detailInvalidRegistration},
		})
		return
	}

	c.JSON(http.StatusOK, newAccountResponse(account))
}

// Login exchanges form credentials for a bearer session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, detailInvalidCredentials))
		return
	}

	issued, err := h.identity.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: detailInvalidCredentials, Headers: bearerChallenge},
		})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
	})
}

// Me returns the account resolved by the auth middleware.
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := middleware.GetAuthenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, detailInternal))
		return
	}

	c.JSON(http.StatusOK, newAccountResponse(account))
}

// Verify consumes an email verification token.
func (h *AuthHandler) Verify(c *gin.Context) {
	if _, err := h.identity.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidVerificationToken, Status: http.StatusBadRequest, Message: detailInvalidVerification},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: messageEmailVerified})
}
