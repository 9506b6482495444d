package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// Ensure CognitoProvider implements Provider interface at compile time
var _ Provider = (*CognitoProvider)(nil)

// CognitoProvider forwards requests to the Cognito user pool API unchanged.
type CognitoProvider struct {
	client *cognitoidentityprovider.Client
	logger zerolog.Logger
}

func NewCognitoProvider(ctx context.Context, opts ProviderOptions, logger zerolog.Logger) (*CognitoProvider, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := cognitoidentityprovider.NewFromConfig(cfg, func(o *cognitoidentityprovider.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &CognitoProvider{
		client: client,
		logger: logger.With().Str("component", "cognito").Logger(),
	}, nil
}

func invoke[In, Out any](
	ctx context.Context,
	p *CognitoProvider,
	op string,
	in In,
	fn func(context.Context, In, ...func(*cognitoidentityprovider.Options)) (Out, error),
) (Out, error) {
	start := time.Now()
	out, err := fn(ctx, in)

	event := p.logger.Debug().Str("operation", op).Dur("duration", time.Since(start))
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			event = event.Str("error_code", apiErr.ErrorCode())
		}
		event.Err(err).Msg("cognito call failed")
		return out, err
	}

	event.Msg("cognito call")
	return out, nil
}

func (p *CognitoProvider) SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
	return invoke(ctx, p, "SignUp", in, p.client.SignUp)
}

func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	return invoke(ctx, p, "ConfirmSignUp", in, p.client.ConfirmSignUp)
}

func (p *CognitoProvider) AdminInitiateAuth(ctx context.Context, in *cognitoidentityprovider.AdminInitiateAuthInput) (*cognitoidentityprovider.AdminInitiateAuthOutput, error) {
	return invoke(ctx, p, "AdminInitiateAuth", in, p.client.AdminInitiateAuth)
}

func (p *CognitoProvider) GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput) (*cognitoidentityprovider.GetUserOutput, error) {
	return invoke(ctx, p, "GetUser", in, p.client.GetUser)
}

func (p *CognitoProvider) AdminGetUser(ctx context.Context, in *cognitoidentityprovider.AdminGetUserInput) (*cognitoidentityprovider.AdminGetUserOutput, error) {
	return invoke(ctx, p, "AdminGetUser", in, p.client.AdminGetUser)
}

func (p *CognitoProvider) ChangePassword(ctx context.Context, in *cognitoidentityprovider.ChangePasswordInput) (*cognitoidentityprovider.ChangePasswordOutput, error) {
	return invoke(ctx, p, "ChangePassword", in, p.client.ChangePassword)
}

func (p *CognitoProvider) UpdateUserAttributes(ctx context.Context, in *cognitoidentityprovider.UpdateUserAttributesInput) (*cognitoidentityprovider.UpdateUserAttributesOutput, error) {
	return invoke(ctx, p, "UpdateUserAttributes", in, p.client.UpdateUserAttributes)
}

func (p *CognitoProvider) ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	return invoke(ctx, p, "ForgotPassword", in, p.client.ForgotPassword)
}

func (p *CognitoProvider) ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error) {
	return invoke(ctx, p, "ConfirmForgotPassword", in, p.client.ConfirmForgotPassword)
}
