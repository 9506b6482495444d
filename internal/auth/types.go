package auth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// Provider defines the Cognito operations the identity service depends on.
// Requests and responses are the SDK shapes; failures come back as the SDK
// returned them.
type Provider interface {
	SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	AdminInitiateAuth(ctx context.Context, in *cognitoidentityprovider.AdminInitiateAuthInput) (*cognitoidentityprovider.AdminInitiateAuthOutput, error)
	GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput) (*cognitoidentityprovider.GetUserOutput, error)
	AdminGetUser(ctx context.Context, in *cognitoidentityprovider.AdminGetUserInput) (*cognitoidentityprovider.AdminGetUserOutput, error)
	ChangePassword(ctx context.Context, in *cognitoidentityprovider.ChangePasswordInput) (*cognitoidentityprovider.ChangePasswordOutput, error)
	UpdateUserAttributes(ctx context.Context, in *cognitoidentityprovider.UpdateUserAttributesInput) (*cognitoidentityprovider.UpdateUserAttributesOutput, error)
	ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error)
}

// Attribute is a single user pool attribute, e.g. {"email", "j@example.com"}.
type Attribute struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

// User is the flattened view returned by GetUser and AdminGetUser.
type User struct {
	Username       string            `json:"username,omitempty"`
	UserAttributes map[string]string `json:"user_attributes"`
	Enabled        *bool             `json:"enabled,omitempty"`
	UserStatus     string            `json:"user_status,omitempty"`
}

// Attribute returns the value of the named attribute and whether it was set.
func (u *User) Attribute(name string) (string, bool) {
	v, ok := u.UserAttributes[name]
	return v, ok
}

// ServiceConfig carries the identifiers injected into every request.
type ServiceConfig struct {
	ClientID     string
	UserPoolID   string
	ClientSecret string
}

// ProviderOptions configures the AWS client behind CognitoProvider.
type ProviderOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}
