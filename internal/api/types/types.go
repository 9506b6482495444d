// Package types holds the gateway's request bodies and the documented shapes
// of its responses.
package types

import "github.com/regrada-ai/regrada-identity/internal/auth"

// Error represents an API error response
type Error struct {
	Status  string `json:"status" example:"NotAuthorizedException"`
	Message string `json:"message" example:"Incorrect username or password."`
}

// ErrorResponse wraps an error
type ErrorResponse struct {
	Error Error `json:"error"`
}

// SignUpRequest represents a user signup request
type SignUpRequest struct {
	Username   string           `json:"username" binding:"required" example:"user@example.com"`
	Password   string           `json:"password" binding:"required" example:"password123"`
	Attributes []auth.Attribute `json:"attributes" binding:"dive"`
}

// ConfirmSignUpRequest carries the code delivered after sign up
type ConfirmSignUpRequest struct {
	Username string `json:"username" binding:"required" example:"user@example.com"`
	Code     string `json:"code" binding:"required" example:"123456"`
}

// SignInRequest represents a signin request
type SignInRequest struct {
	Username string `json:"username" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required" example:"user@example.com"`
}

type ConfirmForgotPasswordRequest struct {
	Username string `json:"username" binding:"required" example:"user@example.com"`
	Code     string `json:"code" binding:"required" example:"123456"`
	Password string `json:"password" binding:"required" example:"newpassword123"`
}

type UpdateAttributesRequest struct {
	Attributes []auth.Attribute `json:"attributes" binding:"required,min=1,dive"`
}

type ChangePasswordRequest struct {
	PreviousPassword string `json:"previous_password" binding:"required" example:"password123"`
	ProposedPassword string `json:"proposed_password" binding:"required" example:"newpassword123"`
}

// CodeDeliveryDetails says where a confirmation code was sent
type CodeDeliveryDetails struct {
	AttributeName  string `json:"attribute_name" example:"email"`
	DeliveryMedium string `json:"delivery_medium" example:"EMAIL"`
	Destination    string `json:"destination" example:"u***@e***"`
}

// SignUpResponse represents the signup response
type SignUpResponse struct {
	UserConfirmed       bool                 `json:"user_confirmed" example:"false"`
	UserSub             string               `json:"user_sub" example:"123e4567-e89b-12d3-a456-426614174000"`
	CodeDeliveryDetails *CodeDeliveryDetails `json:"code_delivery_details,omitempty"`
}

type AuthenticationResult struct {
	AccessToken  string `json:"access_token"`
	IdToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int32  `json:"expires_in" example:"3600"`
	TokenType    string `json:"token_type" example:"Bearer"`
}

// SignInResponse carries tokens, or a challenge when the pool needs more
// from the user. Challenge parameter keys are passed through unchanged.
type SignInResponse struct {
	AuthenticationResult *AuthenticationResult `json:"authentication_result,omitempty"`
	ChallengeName        string                `json:"challenge_name,omitempty" example:"NEW_PASSWORD_REQUIRED"`
	ChallengeParameters  map[string]string     `json:"challenge_parameters,omitempty"`
	Session              string                `json:"session,omitempty"`
}

type ForgotPasswordResponse struct {
	CodeDeliveryDetails *CodeDeliveryDetails `json:"code_delivery_details,omitempty"`
}

type SignOutResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Signed out successfully"`
}

// HealthResponse reports the gateway and its dependencies
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks"`
}
