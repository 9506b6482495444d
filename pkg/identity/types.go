package identity

// Attribute is a user pool attribute such as {"email", "j@example.com"}
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CodeDeliveryDetails struct {
	AttributeName  string `json:"attribute_name"`
	DeliveryMedium string `json:"delivery_medium"`
	Destination    string `json:"destination"`
}

type SignUpResult struct {
	UserConfirmed       bool                 `json:"user_confirmed"`
	UserSub             string               `json:"user_sub"`
	CodeDeliveryDetails *CodeDeliveryDetails `json:"code_delivery_details,omitempty"`
}

// Tokens are the credentials issued on a successful sign in
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SignInResult carries tokens, or a challenge when Cognito needs another step.
type SignInResult struct {
	AuthenticationResult *Tokens           `json:"authentication_result,omitempty"`
	ChallengeName        string            `json:"challenge_name,omitempty"`
	ChallengeParameters  map[string]string `json:"challenge_parameters,omitempty"`
	Session              string            `json:"session,omitempty"`
}

type User struct {
	Username       string            `json:"username"`
	UserAttributes map[string]string `json:"user_attributes"`
	Enabled        *bool             `json:"enabled,omitempty"`
	UserStatus     string            `json:"user_status,omitempty"`
}
