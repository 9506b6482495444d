package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/regrada-ai/regrada-identity/internal/auth"
	"github.com/regrada-ai/regrada-identity/internal/config"
	"github.com/regrada-ai/regrada-identity/internal/logger"
)

type devUser struct {
	username string
	password string
	attrs    []auth.Attribute
}

var devUsers = []devUser{
	{
		username: "alice@example.com",
		password: "DevPassw0rd!",
		attrs: []auth.Attribute{
			{Name: "email", Value: "alice@example.com"},
			{Name: "name", Value: "Alice"},
		},
	},
	{
		username: "bob@example.com",
		password: "DevPassw0rd!",
		attrs: []auth.Attribute{
			{Name: "email", Value: "bob@example.com"},
			{Name: "name", Value: "Bob"},
		},
	},
}

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	skipConfirm := flag.Bool("skip-confirm", false, "sign users up without asking for confirmation codes")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		bootstrap := zerolog.New(os.Stderr)
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.Configure(cfg.Logging, os.Stderr)
	ctx := context.Background()

	var (
		provider auth.Provider
		mock     *auth.MockProvider
	)
	if cfg.Cognito.Mock {
		mock = auth.NewMockProvider(log, cfg.Cognito.MockDataFile)
		provider = mock
	} else {
		provider, err = auth.NewCognitoProvider(ctx, auth.ProviderOptions{
			Region:          cfg.AWS.Region,
			Endpoint:        cfg.AWS.Endpoint,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			SessionToken:    cfg.AWS.SessionToken,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Cognito provider")
		}
	}

	identity := auth.NewService(provider, auth.ServiceConfig{
		ClientID:     cfg.Cognito.ClientID,
		UserPoolID:   cfg.Cognito.UserPoolID,
		ClientSecret: cfg.Cognito.ClientSecret,
	}, log)

	fmt.Println("🌱 Seeding development users...")
	if err := seedUsers(ctx, identity, mock, bufio.NewReader(os.Stdin), *skipConfirm, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("failed to seed development users")
	}

	fmt.Println("")
	fmt.Println("🎉 Development users seeded successfully!")
	fmt.Println("")
	fmt.Println("Test the API:")
	fmt.Printf("curl -X POST http://localhost:%s/v1/auth/signin -d '{\"username\":\"%s\",\"password\":\"%s\"}'\n",
		cfg.Server.Port, devUsers[0].username, devUsers[0].password)
}

// seedUsers signs up, confirms and signs in every dev user. Users that
// already exist are skipped.
func seedUsers(ctx context.Context, identity *auth.Service, mock *auth.MockProvider, stdin *bufio.Reader, skipConfirm bool, out io.Writer) error {
	for _, u := range devUsers {
		res, err := identity.SignUp(ctx, u.username, u.password, u.attrs)
		switch {
		case auth.StatusOf(err) == auth.StatusUsernameExists:
			fmt.Fprintf(out, "⏭️  %s already exists\n", u.username)
			continue
		case err != nil:
			return fmt.Errorf("sign up %s: %w", u.username, err)
		}
		fmt.Fprintf(out, "✅ Signed up %s (sub: %s)\n", u.username, aws.ToString(res.UserSub))

		if skipConfirm {
			continue
		}

		code, err := confirmationCode(stdin, out, mock, u.username)
		if err != nil {
			return fmt.Errorf("read confirmation code: %w", err)
		}
		if _, err := identity.ConfirmSignUp(ctx, u.username, code); err != nil {
			return fmt.Errorf("confirm %s: %w", u.username, err)
		}
		if _, err := identity.Authenticate(ctx, u.username, u.password); err != nil {
			return fmt.Errorf("sign in %s: %w", u.username, err)
		}
		fmt.Fprintf(out, "✅ Confirmed %s\n", u.username)
	}
	return nil
}

// confirmationCode reads the code from the mock pool, or asks for the one
// Cognito delivered.
func confirmationCode(stdin *bufio.Reader, out io.Writer, mock *auth.MockProvider, username string) (string, error) {
	if mock != nil {
		if code, ok := mock.ConfirmationCode(username); ok {
			return code, nil
		}
	}

	fmt.Fprintf(out, "Enter the confirmation code sent for %s: ", username)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
