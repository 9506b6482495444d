package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// computeSecretHash computes the secret hash for Cognito authentication
// Required when the app client has a client secret
func computeSecretHash(username, clientID, clientSecret string) string {
	message := username + clientID
	key := []byte(clientSecret)

	h := hmac.New(sha256.New, key)
	h.Write([]byte(message))

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// optionalString leaves unset configuration absent from the request
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// encodeAttributes keeps caller order; Cognito applies them in sequence.
func encodeAttributes(attrs []Attribute) []types.AttributeType {
	if attrs == nil {
		return nil
	}
	out := make([]types.AttributeType, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, types.AttributeType{
			Name:  aws.String(a.Name),
			Value: aws.String(a.Value),
		})
	}
	return out
}

// flattenAttributes turns the provider's attribute list into a name/value
// map. A repeated name keeps its last value.
func flattenAttributes(attrs []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return out
}
