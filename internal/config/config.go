// Package config loads the gateway configuration: built-in defaults, an
// optional YAML file, then environment overrides. The result is read-only for
// the lifetime of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/regrada-ai/regrada-identity/internal/keys"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	AWS     AWSConfig     `yaml:"aws"`
	Cognito CognitoConfig `yaml:"cognito"`
	Redis   RedisConfig   `yaml:"redis"`
}

type ServerConfig struct {
	Port             string   `yaml:"port" validate:"required,numeric"`
	GinMode          string   `yaml:"gin_mode" validate:"oneof=debug release test"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
	SecureCookies    bool     `yaml:"secure_cookies"`
	AdminAPIToken    string   `yaml:"admin_api_token"`
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"oneof=json console"`
}

// AWSConfig holds credentials and addressing for the AWS SDK. Empty values
// fall back to the SDK's default chain.
type AWSConfig struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// CognitoConfig identifies the app client and user pool. A missing id is left
// out of requests and surfaces as a provider error.
type CognitoConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserPoolID   string `yaml:"user_pool_id"`
	Mock         bool   `yaml:"mock"`
	MockDataFile string `yaml:"mock_data_file"`
	VerifyTokens bool   `yaml:"verify_tokens"`
	JWKSURL      string `yaml:"jwks_url"`
}

type RedisConfig struct {
	URL          string `yaml:"url"`
	RateLimitRPM int    `yaml:"rate_limit_rpm" validate:"gte=0"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:             "8080",
			GinMode:          "release",
			CORSAllowOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Format:  "json",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Cognito: CognitoConfig{
			MockDataFile: "data/mock_cognito.json",
		},
		Redis: RedisConfig{
			RateLimitRPM: 30,
		},
	}
}

// JWKSURLFor returns the key set location used to verify pool tokens.
func (c CognitoConfig) JWKSURLFor(region string) string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, c.UserPoolID)
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var file map[string]any
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Accept userPoolId as well as user_pool_id.
		normalized, _ := keys.Snake(file).(map[string]any)
		merged = keys.DeepMerge(merged, normalized)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func toMap(cfg Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode defaults: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		cfg.Server.CORSAllowOrigins = strings.Split(origins, ",")
	}
	cfg.Server.SecureCookies = getEnvBool("SECURE_COOKIES", cfg.Server.SecureCookies)
	cfg.Server.AdminAPIToken = getEnv("ADMIN_API_TOKEN", cfg.Server.AdminAPIToken)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.AWS.Region = getEnv("AWS_REGION", cfg.AWS.Region)
	cfg.AWS.Endpoint = getEnv("AWS_ENDPOINT_URL", cfg.AWS.Endpoint)
	cfg.AWS.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", cfg.AWS.AccessKeyID)
	cfg.AWS.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", cfg.AWS.SecretAccessKey)
	cfg.AWS.SessionToken = getEnv("AWS_SESSION_TOKEN", cfg.AWS.SessionToken)

	cfg.Cognito.ClientID = getEnv("COGNITO_CLIENT_ID", cfg.Cognito.ClientID)
	cfg.Cognito.ClientSecret = getEnv("COGNITO_CLIENT_SECRET", cfg.Cognito.ClientSecret)
	cfg.Cognito.UserPoolID = getEnv("COGNITO_USER_POOL_ID", cfg.Cognito.UserPoolID)
	cfg.Cognito.Mock = getEnvBool("COGNITO_MOCK", cfg.Cognito.Mock)
	cfg.Cognito.MockDataFile = getEnv("COGNITO_MOCK_DATA_FILE", cfg.Cognito.MockDataFile)
	cfg.Cognito.VerifyTokens = getEnvBool("COGNITO_VERIFY_TOKENS", cfg.Cognito.VerifyTokens)
	cfg.Cognito.JWKSURL = getEnv("COGNITO_JWKS_URL", cfg.Cognito.JWKSURL)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.RateLimitRPM = n
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
