package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stoewer/go-strcase"

	"github.com/regrada-ai/regrada-identity/internal/auth"
	"github.com/regrada-ai/regrada-identity/internal/keys"
)

// bindJSON decodes the request body into obj. Keys may be snake_case or
// camelCase; they are normalised before binding so struct tags stay snake_case.
// A body naming the same field in both spellings is rejected.
func bindJSON(c *gin.Context, obj any) bool {
	var raw any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		invalidRequest(c, err)
		return false
	}

	if _, ok := raw.(map[string]any); !ok {
		invalidRequest(c, errors.New("request body must be a JSON object"))
		return false
	}

	normalised, err := keys.SnakeStrict(raw)
	if err != nil {
		invalidRequest(c, err)
		return false
	}

	body, err := json.Marshal(normalised)
	if err != nil {
		invalidRequest(c, err)
		return false
	}

	if err := binding.JSON.BindBody(body, obj); err != nil {
		invalidRequest(c, err)
		return false
	}
	return true
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"status":  "INVALID_REQUEST",
			"message": err.Error(),
		},
	})
}

// verbatimFields are provider data maps. Their keys are Cognito parameter
// names, not field names, so they are rendered unchanged.
var verbatimFields = []string{"ChallengeParameters"}

// render writes a provider output as JSON with snake_case field names and
// without the SDK's result metadata.
func render(c *gin.Context, code int, out any) {
	raw, err := json.Marshal(out)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"status":  "INTERNAL_ERROR",
				"message": "Failed to encode response",
			},
		})
		return
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		body = map[string]any{}
	}
	delete(body, "ResultMetadata")

	kept := make(map[string]any)
	for _, f := range verbatimFields {
		if v, ok := body[f]; ok {
			kept[strcase.SnakeCase(f)] = v
			delete(body, f)
		}
	}

	snaked := keys.Snake(body).(map[string]any)
	for k, v := range kept {
		snaked[k] = v
	}
	c.JSON(code, snaked)
}

// respondError renders a service failure with the HTTP status matching the
// provider status.
func respondError(c *gin.Context, err error) {
	var e *auth.Error
	if !errors.As(err, &e) {
		e = &auth.Error{Status: auth.StatusRequestError, Message: err.Error()}
	}

	c.JSON(httpStatus(e.Status), gin.H{
		"error": gin.H{
			"status":  e.Status,
			"message": e.Message,
		},
	})
}

func httpStatus(status string) int {
	switch status {
	case auth.StatusUsernameExists:
		return http.StatusConflict
	case auth.StatusNotAuthorized:
		return http.StatusUnauthorized
	case auth.StatusUserNotConfirmed, auth.StatusPasswordResetNeeded:
		return http.StatusForbidden
	case auth.StatusUserNotFound:
		return http.StatusNotFound
	case auth.StatusTooManyRequests, auth.StatusLimitExceeded:
		return http.StatusTooManyRequests
	case auth.StatusRequestError:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
