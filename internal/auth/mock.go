package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	mockTokenTTL          = time.Hour
	mockMinPasswordLength = 6
)

// Ensure MockProvider implements Provider interface at compile time
var _ Provider = (*MockProvider)(nil)

// MockProvider is an in-memory user pool for local development and tests.
// It answers with the same exception types Cognito does.
type MockProvider struct {
	users  map[string]*mockUser // username -> user
	tokens map[string]*mockUser // accessToken -> user
	mu     sync.RWMutex
	logger zerolog.Logger
	now    func() time.Time

	dataFile string
	loadedAt time.Time // mod time of dataFile at the last load or save
}

type mockUser struct {
	Username    string
	Password    string
	Attributes  []types.AttributeType
	Confirmed   bool
	ConfirmCode string
	ResetCode   string
	AccessToken string
	TokenExpiry time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewMockProvider creates an empty pool. With a dataFile the pool is loaded
// from that file and written back after every change, so the server and the
// seed script can share users. An empty dataFile keeps everything in memory.
func NewMockProvider(logger zerolog.Logger, dataFile string) *MockProvider {
	m := &MockProvider{
		users:    make(map[string]*mockUser),
		tokens:   make(map[string]*mockUser),
		logger:   logger.With().Str("component", "mock_cognito").Logger(),
		now:      time.Now,
		dataFile: dataFile,
	}
	if dataFile != "" {
		m.load()
	}
	return m
}

// ConfirmationCode returns the sign-up code generated for username.
func (m *MockProvider) ConfirmationCode(username string) (string, bool) {
	m.refresh()
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[username]
	if !exists || user.ConfirmCode == "" {
		return "", false
	}
	return user.ConfirmCode, true
}

// ResetCode returns the pending forgot-password code for username.
func (m *MockProvider) ResetCode(username string) (string, bool) {
	m.refresh()
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[username]
	if !exists || user.ResetCode == "" {
		return "", false
	}
	return user.ResetCode, true
}

func (m *MockProvider) SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	username := aws.ToString(in.Username)
	if _, exists := m.users[username]; exists {
		return nil, &types.UsernameExistsException{
			Message: aws.String("An account with the given email already exists."),
		}
	}
	if len(aws.ToString(in.Password)) < mockMinPasswordLength {
		return nil, &types.InvalidPasswordException{
			Message: aws.String("Password did not conform with policy: Password not long enough"),
		}
	}

	sub := uuid.New().String()
	attrs := []types.AttributeType{{Name: aws.String("sub"), Value: aws.String(sub)}}
	attrs = mergeAttributes(attrs, in.UserAttributes)

	now := m.now()
	user := &mockUser{
		Username:    username,
		Password:    aws.ToString(in.Password),
		Attributes:  attrs,
		ConfirmCode: generateRandomCode(6),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.users[username] = user
	m.save()

	m.logger.Info().Str("username", username).Str("code", user.ConfirmCode).Msg("user signed up")

	return &cognitoidentityprovider.SignUpOutput{
		UserConfirmed:       false,
		UserSub:             aws.String(sub),
		CodeDeliveryDetails: deliveryDetails(attrs),
	}, nil
}

func (m *MockProvider) ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[aws.ToString(in.Username)]
	if !exists {
		return nil, &types.UserNotFoundException{
			Message: aws.String("Username/client id combination not found."),
		}
	}
	if user.Confirmed {
		return nil, &types.NotAuthorizedException{
			Message: aws.String("User cannot be confirmed. Current status is CONFIRMED"),
		}
	}
	if user.ConfirmCode != aws.ToString(in.ConfirmationCode) {
		return nil, &types.CodeMismatchException{
			Message: aws.String("Invalid verification code provided, please try again."),
		}
	}

	user.Confirmed = true
	user.ConfirmCode = ""
	user.UpdatedAt = m.now()
	m.save()

	m.logger.Info().Str("username", user.Username).Msg("user confirmed")

	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

func (m *MockProvider) AdminInitiateAuth(ctx context.Context, in *cognitoidentityprovider.AdminInitiateAuthInput) (*cognitoidentityprovider.AdminInitiateAuthOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.AuthFlow != types.AuthFlowTypeAdminNoSrpAuth {
		return nil, &types.InvalidParameterException{
			Message: aws.String("Unsupported auth flow " + string(in.AuthFlow)),
		}
	}

	user, exists := m.users[in.AuthParameters["USERNAME"]]
	if !exists || user.Password != in.AuthParameters["PASSWORD"] {
		return nil, &types.NotAuthorizedException{
			Message: aws.String("Incorrect username or password."),
		}
	}
	if !user.Confirmed {
		return nil, &types.UserNotConfirmedException{
			Message: aws.String("User is not confirmed."),
		}
	}

	// Clean up old access token
	delete(m.tokens, user.AccessToken)

	user.AccessToken = generateToken()
	user.TokenExpiry = m.now().Add(mockTokenTTL)
	m.tokens[user.AccessToken] = user
	m.save()

	m.logger.Info().Str("username", user.Username).Msg("user signed in")

	return &cognitoidentityprovider.AdminInitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken:  aws.String(user.AccessToken),
			IdToken:      aws.String(generateToken()),
			RefreshToken: aws.String(generateToken()),
			ExpiresIn:    int32(mockTokenTTL / time.Second),
			TokenType:    aws.String("Bearer"),
		},
	}, nil
}

func (m *MockProvider) GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput) (*cognitoidentityprovider.GetUserOutput, error) {
	m.refresh()
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, err := m.userForToken(aws.ToString(in.AccessToken))
	if err != nil {
		return nil, err
	}

	return &cognitoidentityprovider.GetUserOutput{
		Username:       aws.String(user.Username),
		UserAttributes: cloneAttributes(user.Attributes),
	}, nil
}

func (m *MockProvider) AdminGetUser(ctx context.Context, in *cognitoidentityprovider.AdminGetUserInput) (*cognitoidentityprovider.AdminGetUserOutput, error) {
	m.refresh()
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[aws.ToString(in.Username)]
	if !exists {
		return nil, &types.UserNotFoundException{
			Message: aws.String("User does not exist."),
		}
	}

	status := types.UserStatusTypeUnconfirmed
	if user.Confirmed {
		status = types.UserStatusTypeConfirmed
	}

	return &cognitoidentityprovider.AdminGetUserOutput{
		Username:             aws.String(user.Username),
		UserAttributes:       cloneAttributes(user.Attributes),
		Enabled:              true,
		UserStatus:           status,
		UserCreateDate:       aws.Time(user.CreatedAt),
		UserLastModifiedDate: aws.Time(user.UpdatedAt),
	}, nil
}

func (m *MockProvider) ChangePassword(ctx context.Context, in *cognitoidentityprovider.ChangePasswordInput) (*cognitoidentityprovider.ChangePasswordOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.userForToken(aws.ToString(in.AccessToken))
	if err != nil {
		return nil, err
	}
	if user.Password != aws.ToString(in.PreviousPassword) {
		return nil, &types.NotAuthorizedException{
			Message: aws.String("Incorrect username or password."),
		}
	}
	if len(aws.ToString(in.ProposedPassword)) < mockMinPasswordLength {
		return nil, &types.InvalidPasswordException{
			Message: aws.String("Password did not conform with policy: Password not long enough"),
		}
	}

	user.Password = aws.ToString(in.ProposedPassword)
	user.UpdatedAt = m.now()
	m.save()

	return &cognitoidentityprovider.ChangePasswordOutput{}, nil
}

func (m *MockProvider) UpdateUserAttributes(ctx context.Context, in *cognitoidentityprovider.UpdateUserAttributesInput) (*cognitoidentityprovider.UpdateUserAttributesOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.userForToken(aws.ToString(in.AccessToken))
	if err != nil {
		return nil, err
	}
	for _, a := range in.UserAttributes {
		if aws.ToString(a.Name) == "sub" {
			return nil, &types.InvalidParameterException{
				Message: aws.String("Cannot modify an immutable attribute: sub"),
			}
		}
	}

	user.Attributes = mergeAttributes(user.Attributes, in.UserAttributes)
	user.UpdatedAt = m.now()
	m.save()

	return &cognitoidentityprovider.UpdateUserAttributesOutput{}, nil
}

func (m *MockProvider) ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[aws.ToString(in.Username)]
	if !exists {
		return nil, &types.UserNotFoundException{
			Message: aws.String("Username/client id combination not found."),
		}
	}

	user.ResetCode = generateRandomCode(6)
	m.save()

	m.logger.Info().Str("username", user.Username).Str("code", user.ResetCode).Msg("password reset requested")

	return &cognitoidentityprovider.ForgotPasswordOutput{
		CodeDeliveryDetails: deliveryDetails(user.Attributes),
	}, nil
}

func (m *MockProvider) ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error) {
	m.refresh()
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[aws.ToString(in.Username)]
	if !exists {
		return nil, &types.UserNotFoundException{
			Message: aws.String("Username/client id combination not found."),
		}
	}
	if user.ResetCode == "" {
		return nil, &types.ExpiredCodeException{
			Message: aws.String("Invalid code provided, please request a code again."),
		}
	}
	if user.ResetCode != aws.ToString(in.ConfirmationCode) {
		return nil, &types.CodeMismatchException{
			Message: aws.String("Invalid verification code provided, please try again."),
		}
	}
	if len(aws.ToString(in.Password)) < mockMinPasswordLength {
		return nil, &types.InvalidPasswordException{
			Message: aws.String("Password did not conform with policy: Password not long enough"),
		}
	}

	user.Password = aws.ToString(in.Password)
	user.ResetCode = ""
	user.UpdatedAt = m.now()
	m.save()

	return &cognitoidentityprovider.ConfirmForgotPasswordOutput{}, nil
}

// userForToken must be called with the lock held
func (m *MockProvider) userForToken(token string) (*mockUser, error) {
	user, exists := m.tokens[token]
	if !exists || m.now().After(user.TokenExpiry) {
		return nil, &types.NotAuthorizedException{
			Message: aws.String("Invalid Access Token"),
		}
	}
	return user, nil
}

// mockPoolFile is the on-disk form of the pool
type mockPoolFile struct {
	Users map[string]*mockUser `json:"users"`
}

// refresh reloads the pool when another process has rewritten dataFile
func (m *MockProvider) refresh() {
	if m.dataFile == "" {
		return
	}
	info, err := os.Stat(m.dataFile)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if info.ModTime().After(m.loadedAt) {
		m.load()
	}
}

// load must be called with the lock held or before the provider is shared
func (m *MockProvider) load() {
	data, err := os.ReadFile(m.dataFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn().Err(err).Str("file", m.dataFile).Msg("failed to read mock user pool")
		}
		return
	}

	var pool mockPoolFile
	if err := json.Unmarshal(data, &pool); err != nil {
		m.logger.Warn().Err(err).Str("file", m.dataFile).Msg("failed to decode mock user pool")
		return
	}

	m.users = pool.Users
	if m.users == nil {
		m.users = make(map[string]*mockUser)
	}
	m.tokens = make(map[string]*mockUser, len(m.users))
	for _, u := range m.users {
		if u.AccessToken != "" {
			m.tokens[u.AccessToken] = u
		}
	}
	if info, err := os.Stat(m.dataFile); err == nil {
		m.loadedAt = info.ModTime()
	}

	m.logger.Debug().Int("users", len(m.users)).Str("file", m.dataFile).Msg("loaded mock user pool")
}

// save must be called with the lock held
func (m *MockProvider) save() {
	if m.dataFile == "" {
		return
	}

	data, err := json.MarshalIndent(mockPoolFile{Users: m.users}, "", "  ")
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to encode mock user pool")
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.dataFile), 0755); err != nil {
		m.logger.Warn().Err(err).Str("file", m.dataFile).Msg("failed to create mock data directory")
		return
	}
	if err := os.WriteFile(m.dataFile, data, 0600); err != nil {
		m.logger.Warn().Err(err).Str("file", m.dataFile).Msg("failed to save mock user pool")
		return
	}
	if info, err := os.Stat(m.dataFile); err == nil {
		m.loadedAt = info.ModTime()
	}
}

// Helper functions

func mergeAttributes(existing, updates []types.AttributeType) []types.AttributeType {
	out := cloneAttributes(existing)
	for _, u := range updates {
		replaced := false
		for i := range out {
			if aws.ToString(out[i].Name) == aws.ToString(u.Name) {
				out[i].Value = aws.String(aws.ToString(u.Value))
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, types.AttributeType{
				Name:  aws.String(aws.ToString(u.Name)),
				Value: aws.String(aws.ToString(u.Value)),
			})
		}
	}
	return out
}

func cloneAttributes(attrs []types.AttributeType) []types.AttributeType {
	out := make([]types.AttributeType, len(attrs))
	for i, a := range attrs {
		out[i] = types.AttributeType{
			Name:  aws.String(aws.ToString(a.Name)),
			Value: aws.String(aws.ToString(a.Value)),
		}
	}
	return out
}

func deliveryDetails(attrs []types.AttributeType) *types.CodeDeliveryDetailsType {
	for _, a := range attrs {
		if aws.ToString(a.Name) == "email" {
			return &types.CodeDeliveryDetailsType{
				AttributeName:  aws.String("email"),
				DeliveryMedium: types.DeliveryMediumTypeEmail,
				Destination:    aws.String(maskEmail(aws.ToString(a.Value))),
			}
		}
	}
	return nil
}

// maskEmail mimics Cognito's "j***@e***" destination format
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	return local[:1] + "***@" + domain[:1] + "***"
}

func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func generateRandomCode(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		b[i] = digits[n.Int64()]
	}
	return string(b)
}
