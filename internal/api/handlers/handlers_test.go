package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regrada-ai/regrada-identity/internal/api/middleware"
	apitypes "github.com/regrada-ai/regrada-identity/internal/api/types"
	"github.com/regrada-ai/regrada-identity/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	provider *auth.MockProvider
}

func newTestEnv() *testEnv {
	provider := auth.NewMockProvider(zerolog.Nop(), "")
	identity := auth.NewService(provider, auth.ServiceConfig{ClientID: "client_id", UserPoolID: "user_pool_id"}, zerolog.Nop())

	authHandler := NewAuthHandler(identity, false, zerolog.Nop())
	userHandler := NewUserHandler(identity, zerolog.Nop())
	tokens := middleware.NewTokenMiddleware(nil, "", zerolog.Nop())

	r := gin.New()
	r.POST("/signup", authHandler.SignUp)
	r.POST("/confirm", authHandler.ConfirmSignUp)
	r.POST("/signin", authHandler.SignIn)
	r.POST("/signout", authHandler.SignOut)
	r.POST("/password/forgot", authHandler.ForgotPassword)
	r.POST("/password/confirm", authHandler.ConfirmForgotPassword)
	r.GET("/me", tokens.Authenticate(), userHandler.GetCurrentUser)
	r.PUT("/me/attributes", tokens.Authenticate(), userHandler.UpdateAttributes)
	r.POST("/me/password", tokens.Authenticate(), userHandler.ChangePassword)
	r.GET("/users/:username", userHandler.GetUser)

	return &testEnv{router: r, provider: provider}
}

func (e *testEnv) do(method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

// register signs up and confirms a user, then signs in and returns the access token
func (e *testEnv) register(t *testing.T, username, password string) string {
	t.Helper()

	w, _ := e.do(http.MethodPost, "/signup", `{"username":"`+username+`","password":"`+password+`","attributes":[{"name":"email","value":"`+username+`"}]}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	code, ok := e.provider.ConfirmationCode(username)
	require.True(t, ok)

	w, _ = e.do(http.MethodPost, "/confirm", `{"username":"`+username+`","code":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, body := e.do(http.MethodPost, "/signin", `{"username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	result := body["authentication_result"].(map[string]any)
	return result["access_token"].(string)
}

func errorOf(body map[string]any) (any, any) {
	e, _ := body["error"].(map[string]any)
	return e["status"], e["message"]
}

func TestSignUp(t *testing.T) {
	env := newTestEnv()

	w, body := env.do(http.MethodPost, "/signup", `{
		"username": "john.smith@example.com",
		"password": "test123",
		"attributes": [{"name": "email", "value": "john.smith@example.com"}, {"name": "name", "value": "John"}]
	}`, "")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, body["user_confirmed"])
	assert.NotEmpty(t, body["user_sub"])
	assert.NotContains(t, body, "result_metadata")
	assert.NotContains(t, body, "ResultMetadata")

	details := body["code_delivery_details"].(map[string]any)
	assert.Equal(t, "j***@e***", details["destination"])
	assert.Equal(t, "EMAIL", details["delivery_medium"])

	w, body = env.do(http.MethodPost, "/signup", `{"username":"john.smith@example.com","password":"test123"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	status, message := errorOf(body)
	assert.Equal(t, auth.StatusUsernameExists, status)
	assert.Equal(t, "An account with the given email already exists.", message)
}

func TestSignUpInvalidRequests(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"username":`},
		{name: "not an object", body: `["john"]`},
		{name: "missing password", body: `{"username":"john"}`},
		{name: "attribute without name", body: `{"username":"john","password":"test123","attributes":[{"value":"x"}]}`},
		{name: "field named in both spellings", body: `{"Username":"john","username":"jane","password":"test123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := env.do(http.MethodPost, "/signup", tt.body, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			status, _ := errorOf(body)
			assert.Equal(t, "INVALID_REQUEST", status)
		})
	}
}

func TestSignUpAcceptsCamelCase(t *testing.T) {
	env := newTestEnv()

	w, _ := env.do(http.MethodPost, "/signup", `{"Username":"john","Password":"test123","Attributes":[{"Name":"name","Value":"John"}]}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := env.do(http.MethodGet, "/users/john", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "John", body["user_attributes"].(map[string]any)["name"])
}

func TestSignInErrors(t *testing.T) {
	env := newTestEnv()

	w, body := env.do(http.MethodPost, "/signin", `{"username":"nobody","password":"test123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	status, _ := errorOf(body)
	assert.Equal(t, auth.StatusNotAuthorized, status)

	w, _ = env.do(http.MethodPost, "/signup", `{"username":"john","password":"test123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, body = env.do(http.MethodPost, "/signin", `{"username":"john","password":"test123"}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	status, _ = errorOf(body)
	assert.Equal(t, auth.StatusUserNotConfirmed, status)
}

func TestConfirmWrongCode(t *testing.T) {
	env := newTestEnv()

	w, _ := env.do(http.MethodPost, "/confirm", `{"username":"nobody","code":"123456"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.do(http.MethodPost, "/signup", `{"username":"john","password":"test123"}`, "")
	w, body := env.do(http.MethodPost, "/confirm", `{"username":"john","code":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	status, _ := errorOf(body)
	assert.Equal(t, auth.StatusCodeMismatch, status)
}

func TestSignInSetsCookies(t *testing.T) {
	env := newTestEnv()
	env.register(t, "j@example.com", "test123")

	w, body := env.do(http.MethodPost, "/signin", `{"username":"j@example.com","password":"test123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	result := body["authentication_result"].(map[string]any)
	assert.Equal(t, "Bearer", result["token_type"])
	assert.Equal(t, float64(3600), result["expires_in"])

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, accessTokenCookie)
	assert.NotContains(t, result["access_token"], "=")
	assert.Equal(t, result["access_token"], cookies[accessTokenCookie].Value)
	assert.Equal(t, result["refresh_token"], cookies[refreshTokenCookie].Value)

	var typed apitypes.SignInResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &typed))
	require.NotNil(t, typed.AuthenticationResult)
	assert.Equal(t, cookies[idTokenCookie].Value, typed.AuthenticationResult.IdToken)
	assert.True(t, cookies[accessTokenCookie].HttpOnly)
	assert.Equal(t, 3600, cookies[accessTokenCookie].MaxAge)
	assert.Contains(t, cookies, idTokenCookie)
	assert.Contains(t, cookies, refreshTokenCookie)
}

func TestSignOutClearsCookies(t *testing.T) {
	env := newTestEnv()

	w, body := env.do(http.MethodPost, "/signout", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	cleared := 0
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
		cleared++
	}
	assert.Equal(t, 3, cleared)
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv()
	token := env.register(t, "j@example.com", "test123")

	w, body := env.do(http.MethodGet, "/me", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "j@example.com", body["username"])
	attrs := body["user_attributes"].(map[string]any)
	assert.Equal(t, "j@example.com", attrs["email"])
	assert.NotEmpty(t, attrs["sub"])

	w, _ = env.do(http.MethodGet, "/me", "", "bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAttributesAndChangePassword(t *testing.T) {
	env := newTestEnv()
	token := env.register(t, "j@example.com", "test123")

	w, _ := env.do(http.MethodPut, "/me/attributes", `{"attributes":[{"name":"custom:organization_id","value":"org-1"}]}`, token)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(http.MethodPut, "/me/attributes", `{"attributes":[]}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := env.do(http.MethodPut, "/me/attributes", `{"attributes":[{"name":"sub","value":"x"}]}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	status, _ := errorOf(body)
	assert.Equal(t, auth.StatusInvalidParameter, status)

	_, body = env.do(http.MethodGet, "/me", "", token)
	assert.Equal(t, "org-1", body["user_attributes"].(map[string]any)["custom:organization_id"])

	w, _ = env.do(http.MethodPost, "/me/password", `{"previousPassword":"wrong","proposedPassword":"newpass123"}`, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(http.MethodPost, "/me/password", `{"previous_password":"test123","proposed_password":"newpass123"}`, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(http.MethodPost, "/signin", `{"username":"j@example.com","password":"newpass123"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForgotPasswordFlow(t *testing.T) {
	env := newTestEnv()
	env.register(t, "j@example.com", "test123")

	w, _ := env.do(http.MethodPost, "/password/forgot", `{"username":"nobody"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := env.do(http.MethodPost, "/password/forgot", `{"username":"j@example.com"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "email", body["code_delivery_details"].(map[string]any)["attribute_name"])

	code, ok := env.provider.ResetCode("j@example.com")
	require.True(t, ok)

	w, _ = env.do(http.MethodPost, "/password/confirm", `{"username":"j@example.com","code":"`+code+`","password":"newpass123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(http.MethodPost, "/signin", `{"username":"j@example.com","password":"newpass123"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGetUser(t *testing.T) {
	env := newTestEnv()
	env.register(t, "j@example.com", "test123")

	w, body := env.do(http.MethodGet, "/users/j@example.com", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", body["user_status"])
	assert.Equal(t, true, body["enabled"])

	w, body = env.do(http.MethodGet, "/users/nobody", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, message := errorOf(body)
	assert.Equal(t, "User does not exist.", message)
}

func TestRenderKeepsChallengeParameterKeys(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	render(c, http.StatusOK, &cognitoidentityprovider.AdminInitiateAuthOutput{
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
		ChallengeParameters: map[string]string{
			"USER_ID_FOR_SRP":    "john",
			"requiredAttributes": "[]",
		},
		Session: aws.String("session"),
	})

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NEW_PASSWORD_REQUIRED", body["challenge_name"])
	assert.Equal(t, "session", body["session"])
	assert.Equal(t, map[string]any{
		"USER_ID_FOR_SRP":    "john",
		"requiredAttributes": "[]",
	}, body["challenge_parameters"])
	assert.NotContains(t, body, "result_metadata")
}

func TestHTTPStatus(t *testing.T) {
	tests := map[string]int{
		auth.StatusUsernameExists:      http.StatusConflict,
		auth.StatusNotAuthorized:       http.StatusUnauthorized,
		auth.StatusUserNotConfirmed:    http.StatusForbidden,
		auth.StatusPasswordResetNeeded: http.StatusForbidden,
		auth.StatusUserNotFound:        http.StatusNotFound,
		auth.StatusCodeMismatch:        http.StatusBadRequest,
		auth.StatusExpiredCode:         http.StatusBadRequest,
		auth.StatusInvalidPassword:     http.StatusBadRequest,
		auth.StatusInvalidParameter:    http.StatusBadRequest,
		auth.StatusTooManyRequests:     http.StatusTooManyRequests,
		auth.StatusLimitExceeded:       http.StatusTooManyRequests,
		auth.StatusRequestError:        http.StatusBadGateway,
		"SomethingNewException":        http.StatusBadRequest,
	}

	for status, want := range tests {
		assert.Equal(t, want, httpStatus(status), status)
	}
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		pinger    Pinger
		wantCode  int
		wantRedis string
	}{
		{name: "without redis", pinger: nil, wantCode: http.StatusOK, wantRedis: "disabled"},
		{name: "redis up", pinger: fakePinger{}, wantCode: http.StatusOK, wantRedis: "up"},
		{name: "redis down", pinger: fakePinger{err: redis.ErrClosed}, wantCode: http.StatusServiceUnavailable, wantRedis: "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tt.pinger, "mock").Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, w.Code)
			checks := body["checks"].(map[string]any)
			assert.Equal(t, tt.wantRedis, checks["redis"])
			assert.Equal(t, "mock", checks["provider"])
		})
	}
}
