package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/auth/providers"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/services"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/metrics"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// AuthHandler manages registration, email verification, login, token refresh
// and password reset flows.
type AuthHandler struct {
	users    *services.UserService
	tokens   *iauth.TokenService
	verifier *services.VerificationService
	resets   *services.PasswordResetService
	provider *providers.LocalProvider
	checker  *permissions.Checker
}

func NewAuthHandler(
	users *services.UserService,
	tokens *iauth.TokenService,
	verifier *services.VerificationService,
	resets *services.PasswordResetService,
	provider *providers.LocalProvider,
	checker *permissions.Checker,
) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
		resets:   resets,
		provider: provider,
		checker:  checker,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"max=128"`
	Bio      string `json:"bio" validate:"max=500"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.Register(ctx, services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Bio:      req.Bio,
	})
	if errors.Is(err, appErrors.ErrConflict) {
		// A repeat registration for a not-yet-verified address gets a fresh
		// code instead of a conflict, and the response stays identical to a
		// first registration so addresses cannot be enumerated.
		if existing, lookupErr := h.users.GetByEmail(ctx, req.Email); lookupErr == nil && !existing.EmailVerified {
			if _, issueErr := h.verifier.Issue(ctx, existing.Email); issueErr != nil {
				response.Error(c, appErrors.ErrInternalServer.WithInternal(issueErr))
				return
			}
			h.registrationAccepted(c, existing.Email)
			return
		}
		response.Error(c, err)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.verifier.Issue(ctx, user.Email); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	h.registrationAccepted(c, user.Email)
}

func (h *AuthHandler) registrationAccepted(c *gin.Context, email string) {
	response.Success(c, http.StatusCreated, gin.H{
		"message":            "Registration successful. Check your email for the verification code.",
		"email":              email,
		"expires_in_minutes": int(h.verifier.Expiry().Minutes()),
	})
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		// An unknown email reads the same as a wrong code.
		response.Error(c, appErrors.NewBadRequest("Invalid verification code"))
		return
	}
	if user.EmailVerified {
		response.Error(c, appErrors.ErrEmailAlreadyVerified)
		return
	}

	// Consuming the code and flipping the account share one transaction.
	err = h.verifier.VerifyAndConfirm(ctx, req.Email, req.Code, func(tx *gorm.DB) error {
		return h.users.ActivateTx(tx, user.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeExpired):
			response.Error(c, appErrors.NewBadRequest("Verification code has expired"))
		case errors.Is(err, services.ErrCodeInvalid):
			response.Error(c, appErrors.NewBadRequest("Invalid verification code"))
		default:
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":        "Email verified. You can now log in.",
		"user_id":        user.ID,
		"email_verified": true,
	})
}

type resendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	sent := gin.H{
		"message":            "If the email is registered, a new code has been sent.",
		"expires_in_minutes": int(h.verifier.Expiry().Minutes()),
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, appErrors.ErrNotFound) {
		// Do not reveal whether the address is registered.
		response.Success(c, http.StatusOK, sent)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if user.EmailVerified {
		response.Error(c, appErrors.ErrEmailAlreadyVerified)
		return
	}

	if _, err := h.verifier.Issue(ctx, user.Email); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, sent)
}

// loginRequest follows the OAuth2 password form convention: the username
// field carries the account email.
type loginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindFormAndValidate(c, &req) {
		return
	}

	user, err := h.provider.Authenticate(providers.AuthenticateInput{
		Email:     req.Username,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, mapLoginError(err))
		return
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, tokenPayload(pair, user))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	claims, err := h.tokens.Verify(strings.TrimSpace(req.RefreshToken), iauth.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, iauth.ErrTokenExpired) {
			response.Error(c, appErrors.ErrTokenExpired)
			return
		}
		response.Error(c, appErrors.ErrTokenInvalid)
		return
	}

	// The account must still exist and be active at refresh time.
	identity, err := h.checker.ResolveUser(requestContext(c), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	pair, err := h.tokens.IssuePair(identity.UserID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	user, err := h.users.GetByID(requestContext(c), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tokenPayload(pair, user))
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	if identity.UserID == "" {
		// API key identities have no user profile to show.
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	user, err := h.users.GetByID(requestContext(c), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, userPayload(user))
}

// POST /api/auth/logout
//
// Tokens are self-contained, so logout is a client-side discard. The endpoint
// exists so clients have a uniform call to end a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := currentIdentity(c); !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Successfully logged out"})
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/password-reset/request
func (h *AuthHandler) PasswordResetRequest(c *gin.Context) {
	var req passwordResetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Request(requestContext(c), req.Email); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "If the email is registered, a reset link has been sent.",
	})
}

type passwordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// POST /api/auth/password-reset/confirm
func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var req passwordResetConfirm
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Confirm(requestContext(c), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			response.Error(c, appErrors.NewBadRequest("Invalid or expired reset token"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Password has been reset. You can now log in.",
	})
}

func mapLoginError(err error) error {
	var locked *providers.AccountLockedError
	switch {
	case errors.As(err, &locked):
		minutes := int(time.Until(locked.Until).Minutes()) + 1
		return appErrors.ErrAccountLocked.WithMessage(
			"Account temporarily locked. Try again in " + pluralMinutes(minutes) + ".")
	case errors.Is(err, providers.ErrAccountInactive):
		return appErrors.ErrAccountInactive
	case errors.Is(err, providers.ErrEmailNotVerified):
		return appErrors.ErrEmailNotVerified
	case errors.Is(err, providers.ErrInvalidCredentials):
		return appErrors.ErrInvalidCredentials
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

func pluralMinutes(n int) string {
	if n < 1 {
		n = 1
	}
	if n == 1 {
		return "1 minute"
	}
	return strconv.Itoa(n) + " minutes"
}

func tokenPayload(pair *iauth.TokenPair, user *models.User) gin.H {
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
		"expires_in":    pair.ExpiresIn,
		"user":          userPayload(user),
	}
}

func userPayload(user *models.User) gin.H {
	payload := gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"email":          user.Email,
		"full_name":      user.FullName,
		"bio":            user.Bio,
		"avatar":         user.Avatar,
		"is_active":      user.IsActive,
		"email_verified": user.EmailVerified,
		"created_at":     user.CreatedAt,
	}
	if user.Role != nil {
		payload["role"] = gin.H{
			"name":        user.Role.Name,
			"level":       user.Role.Level,
			"permissions": []string(user.Role.Permissions),
		}
	}
	if user.Rank != nil {
		payload["rank"] = gin.H{
			"name":  user.Rank.Name,
			"level": user.Rank.Level,
			"icon":  user.Rank.Icon,
		}
	}
	return payload
}
