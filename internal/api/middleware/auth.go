// SPDX-License-Identifier: LicenseRef-Regrada-Proprietary

package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware guards the admin routes with a shared bearer token.
type AdminMiddleware struct {
	tokenHash [sha256.Size]byte
}

func NewAdminMiddleware(token string) *AdminMiddleware {
	return &AdminMiddleware{
		tokenHash: sha256.Sum256([]byte(token)),
	}
}

func (m *AdminMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header")
			return
		}

		token := extractBearerToken(c.Request)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		// Hash both sides so the comparison runs over equal lengths
		hash := sha256.Sum256([]byte(token))
		if subtle.ConstantTimeCompare(hash[:], m.tokenHash[:]) != 1 {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Invalid admin token")
			return
		}

		c.Next()
	}
}
