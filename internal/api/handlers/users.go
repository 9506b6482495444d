package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/regrada-ai/regrada-identity/internal/api/middleware"
	apitypes "github.com/regrada-ai/regrada-identity/internal/api/types"
	"github.com/regrada-ai/regrada-identity/internal/auth"
)

// UserHandler serves the signed-in user's profile and the admin lookup.
type UserHandler struct {
	identity *auth.Service
	logger   zerolog.Logger
}

func NewUserHandler(identity *auth.Service, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		identity: identity,
		logger:   logger,
	}
}

// GetCurrentUser returns the user behind the request's access token
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} auth.User
// @Failure 401 {object} apitypes.ErrorResponse
// @Security BearerAuth
// @Security CookieAuth
// @Router /v1/auth/me [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.identity.GetUser(c.Request.Context(), middleware.AccessToken(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Update attributes of the current user
// @Tags users
// @Accept json
// @Produce json
// @Param request body apitypes.UpdateAttributesRequest true "Attributes to set"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 401 {object} apitypes.ErrorResponse
// @Security BearerAuth
// @Security CookieAuth
// @Router /v1/auth/me/attributes [put]
func (h *UserHandler) UpdateAttributes(c *gin.Context) {
	var req apitypes.UpdateAttributesRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.UpdateUserAttributes(c.Request.Context(), middleware.AccessToken(c), req.Attributes)
	if err != nil {
		h.logger.Info().Err(err).Msg("update attributes failed")
		respondError(c, err)
		return
	}

	render(c, http.StatusOK, out)
}

// @Summary Change the current user's password
// @Tags users
// @Accept json
// @Produce json
// @Param request body apitypes.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apitypes.ErrorResponse
// @Failure 401 {object} apitypes.ErrorResponse
// @Security BearerAuth
// @Security CookieAuth
// @Router /v1/auth/me/password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req apitypes.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.identity.ChangePassword(c.Request.Context(), middleware.AccessToken(c), req.PreviousPassword, req.ProposedPassword)
	if err != nil {
		h.logger.Info().Err(err).Msg("change password failed")
		respondError(c, err)
		return
	}

	render(c, http.StatusOK, out)
}

// GetUser retrieves a user of the pool by username
// @Summary Get a user (admin)
// @Tags admin
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} auth.User
// @Failure 401 {object} apitypes.ErrorResponse
// @Failure 403 {object} apitypes.ErrorResponse
// @Failure 404 {object} apitypes.ErrorResponse
// @Security AdminToken
// @Router /v1/admin/users/{username} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.identity.AdminGetUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
