package handlers

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/regrada-ai/regrada-identity/internal/api/middleware"
	apitypes "github.com/regrada-ai/regrada-identity/internal/api/types"
	"github.com/regrada-ai/regrada-identity/internal/auth"
)

const (
	accessTokenCookie  = middleware.AccessTokenCookie
	idTokenCookie      = "id_token"
	refreshTokenCookie = "refresh_token"
	cookiePath         = "/"
	cookieDomain       = "" // Empty for localhost, set for production
	refreshCookieAge   = 30 * 24 * 3600
)

type AuthHandler struct {
	identity      *auth.Service
	secureCookies bool
	logger        zerolog.Logger
}

func NewAuthHandler(identity *auth.Service, secureCookies bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		identity:      identity,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// SignUp handles user registration
// @Summary Sign up a new user
// @Description Register a user in the pool. Cognito delivers a confirmation code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body apitypes.SignUpRequest true "Credentials and attributes"
// @Success 201 {object} apitypes.SignUpResponse
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 409 {object} apitypes.ErrorResponse
// @Failure 429 {object} apitypes.ErrorResponse
// @Router /v1/auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req apitypes.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.SignUp(c.Request.Context(), req.Username, req.Password, req.Attributes)
	if err != nil {
		h.logger.Info().Err(err).Msg("sign up failed")
		respondError(c, err)
		return
	}

	render(c, http.StatusCreated, out)
}

// ConfirmSignUp handles email verification
// @Summary Confirm sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param request body apitypes.ConfirmSignUpRequest true "Username and code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 404 {object} apitypes.ErrorResponse
// @Router /v1/auth/confirm [post]
func (h *AuthHandler) ConfirmSignUp(c *gin.Context) {
	var req apitypes.ConfirmSignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.ConfirmSignUp(c.Request.Context(), req.Username, req.Code)
	if err != nil {
		h.logger.Info().Err(err).Msg("confirm sign up failed")
		respondError(c, err)
		return
	}

	render(c, http.StatusOK, out)
}

// SignIn handles user login. Tokens are returned in the body and as
// HTTP-only cookies for browser clients.
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body apitypes.SignInRequest true "Credentials"
// @Success 200 {object} apitypes.SignInResponse
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 401 {object} apitypes.ErrorResponse
// @Failure 403 {object} apitypes.ErrorResponse
// @Router /v1/auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req apitypes.SignInRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info().Err(err).Msg("sign in failed")
		respondError(c, err)
		return
	}

	// A challenge response carries no tokens
	if out.AuthenticationResult != nil {
		h.setAuthCookies(c, out.AuthenticationResult)
	}

	render(c, http.StatusOK, out)
}

// SignOut clears the session cookies. Tokens stay valid at the provider until
// they expire.
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} apitypes.SignOutResponse
// @Router /v1/auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.clearAuthCookies(c)

	c.JSON(http.StatusOK, apitypes.SignOutResponse{
		Success: true,
		Message: "Signed out successfully",
	})
}

// @Summary Start a password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body apitypes.ForgotPasswordRequest true "Username"
// @Success 200 {object} apitypes.ForgotPasswordResponse
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 404 {object} apitypes.ErrorResponse
// @Router /v1/auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req apitypes.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.ForgotPassword(c.Request.Context(), req.Username)
	if err != nil {
		h.logger.Info().Err(err).Msg("forgot password failed")
		respondError(c, err)
		return
	}

	render(c, http.StatusOK, out)
}

// @Summary Complete a password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body apitypes.ConfirmForgotPasswordRequest true "Username, code and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 404 {object} apitypes.ErrorResponse
// @Router /v1/auth/password/confirm [post]
func (h *AuthHandler) ConfirmForgotPassword(c *gin.Context) {
	var req apitypes.ConfirmForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.ConfirmForgotPassword(c.Request.Context(), req.Code, req.Username, req.Password)
	if err != nil {
		h.logger.Info().Err(err).Msg("confirm forgot password failed")
		respondError(c, err)
		return
	}

	render(c, http.StatusOK, out)
}

// setAuthCookies sets the authentication cookies
func (h *AuthHandler) setAuthCookies(c *gin.Context, tokens *types.AuthenticationResultType) {
	sameSite := http.SameSiteLaxMode
	if h.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)

	maxAge := int(tokens.ExpiresIn)
	if maxAge <= 0 {
		maxAge = 3600
	}

	c.SetCookie(accessTokenCookie, aws.ToString(tokens.AccessToken), maxAge, cookiePath, cookieDomain, h.secureCookies, true)
	if tokens.IdToken != nil {
		c.SetCookie(idTokenCookie, aws.ToString(tokens.IdToken), maxAge, cookiePath, cookieDomain, h.secureCookies, true)
	}
	if tokens.RefreshToken != nil {
		c.SetCookie(refreshTokenCookie, aws.ToString(tokens.RefreshToken), refreshCookieAge, cookiePath, cookieDomain, h.secureCookies, true)
	}
}

// clearAuthCookies removes all authentication cookies
func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	for _, cookie := range []string{accessTokenCookie, idTokenCookie, refreshTokenCookie} {
		c.SetCookie(cookie, "", -1, cookiePath, cookieDomain, h.secureCookies, true)
	}
}
