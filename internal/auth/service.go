package auth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"
)

// Service builds Cognito requests from plain arguments, sends them through a
// Provider and normalises the results. Every failure is returned as *Error.
type Service struct {
	provider Provider
	cfg      ServiceConfig
	logger   zerolog.Logger
}

func NewService(provider Provider, cfg ServiceConfig, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// SignUp registers a new user in the pool with the given attributes.
// SignUpInput carries no UserPoolId; the app client identifies the pool, so
// the configured pool id is not sent.
func (s *Service) SignUp(ctx context.Context, username, password string, attrs []Attribute) (*cognitoidentityprovider.SignUpOutput, error) {
	input := &cognitoidentityprovider.SignUpInput{
		ClientId:       optionalString(s.cfg.ClientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		UserAttributes: encodeAttributes(attrs),
	}
	if s.cfg.ClientSecret != "" {
		input.SecretHash = aws.String(s.secretHash(username))
	}

	out, err := s.provider.SignUp(ctx, input)
	if err != nil {
		return nil, s.fail("SignUp", err)
	}
	return out, nil
}

// ConfirmSignUp confirms a registration with the emailed code
func (s *Service) ConfirmSignUp(ctx context.Context, username, code string) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         optionalString(s.cfg.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	}
	if s.cfg.ClientSecret != "" {
		input.SecretHash = aws.String(s.secretHash(username))
	}

	out, err := s.provider.ConfirmSignUp(ctx, input)
	if err != nil {
		return nil, s.fail("ConfirmSignUp", err)
	}
	return out, nil
}

// Authenticate runs the ADMIN_NO_SRP_AUTH flow and returns the provider's
// response, tokens or challenge included.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*cognitoidentityprovider.AdminInitiateAuthOutput, error) {
	input := &cognitoidentityprovider.AdminInitiateAuthInput{
		ClientId:   optionalString(s.cfg.ClientID),
		UserPoolId: optionalString(s.cfg.UserPoolID),
		AuthFlow:   types.AuthFlowTypeAdminNoSrpAuth,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	}
	if s.cfg.ClientSecret != "" {
		input.AuthParameters["SECRET_HASH"] = s.secretHash(username)
	}

	out, err := s.provider.AdminInitiateAuth(ctx, input)
	if err != nil {
		return nil, s.fail("Authenticate", err)
	}
	return out, nil
}

// GetUser retrieves the user behind an access token
func (s *Service) GetUser(ctx context.Context, accessToken string) (*User, error) {
	input := &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	}

	out, err := s.provider.GetUser(ctx, input)
	if err != nil {
		return nil, s.fail("GetUser", err)
	}

	return &User{
		Username:       aws.ToString(out.Username),
		UserAttributes: flattenAttributes(out.UserAttributes),
	}, nil
}

// AdminGetUser retrieves a user of the configured pool by username
func (s *Service) AdminGetUser(ctx context.Context, username string) (*User, error) {
	input := &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: optionalString(s.cfg.UserPoolID),
		Username:   aws.String(username),
	}

	out, err := s.provider.AdminGetUser(ctx, input)
	if err != nil {
		return nil, s.fail("AdminGetUser", err)
	}

	enabled := out.Enabled
	return &User{
		Username:       aws.ToString(out.Username),
		UserAttributes: flattenAttributes(out.UserAttributes),
		Enabled:        &enabled,
		UserStatus:     string(out.UserStatus),
	}, nil
}

func (s *Service) ChangePassword(ctx context.Context, accessToken, previousPassword, proposedPassword string) (*cognitoidentityprovider.ChangePasswordOutput, error) {
	input := &cognitoidentityprovider.ChangePasswordInput{
		AccessToken:      aws.String(accessToken),
		PreviousPassword: aws.String(previousPassword),
		ProposedPassword: aws.String(proposedPassword),
	}

	out, err := s.provider.ChangePassword(ctx, input)
	if err != nil {
		return nil, s.fail("ChangePassword", err)
	}
	return out, nil
}

func (s *Service) UpdateUserAttributes(ctx context.Context, accessToken string, attrs []Attribute) (*cognitoidentityprovider.UpdateUserAttributesOutput, error) {
	input := &cognitoidentityprovider.UpdateUserAttributesInput{
		AccessToken:    aws.String(accessToken),
		UserAttributes: encodeAttributes(attrs),
	}

	out, err := s.provider.UpdateUserAttributes(ctx, input)
	if err != nil {
		return nil, s.fail("UpdateUserAttributes", err)
	}
	return out, nil
}

// ForgotPassword starts the reset flow; Cognito sends the code out of band
func (s *Service) ForgotPassword(ctx context.Context, username string) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	input := &cognitoidentityprovider.ForgotPasswordInput{
		ClientId: optionalString(s.cfg.ClientID),
		Username: aws.String(username),
	}
	if s.cfg.ClientSecret != "" {
		input.SecretHash = aws.String(s.secretHash(username))
	}

	out, err := s.provider.ForgotPassword(ctx, input)
	if err != nil {
		return nil, s.fail("ForgotPassword", err)
	}
	return out, nil
}

// ConfirmForgotPassword completes the reset flow with the emailed code
func (s *Service) ConfirmForgotPassword(ctx context.Context, code, username, password string) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error) {
	input := &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         optionalString(s.cfg.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(password),
	}
	if s.cfg.ClientSecret != "" {
		input.SecretHash = aws.String(s.secretHash(username))
	}

	out, err := s.provider.ConfirmForgotPassword(ctx, input)
	if err != nil {
		return nil, s.fail("ConfirmForgotPassword", err)
	}
	return out, nil
}

func (s *Service) secretHash(username string) string {
	return computeSecretHash(username, s.cfg.ClientID, s.cfg.ClientSecret)
}

func (s *Service) fail(op string, err error) *Error {
	e := newError(err)
	s.logger.Debug().Str("operation", op).Str("status", e.Status).Msg(e.Message)
	return e
}
