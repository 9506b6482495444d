package main

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regrada-ai/regrada-identity/internal/auth"
)

var seedConfig = auth.ServiceConfig{ClientID: "client_id", UserPoolID: "user_pool_id"}

func TestSeedUsersReachesSharedMockPool(t *testing.T) {
	ctx := context.Background()
	dataFile := filepath.Join(t.TempDir(), "data", "pool.json")
	mock := auth.NewMockProvider(zerolog.Nop(), dataFile)
	var out bytes.Buffer

	err := seedUsers(ctx, auth.NewService(mock, seedConfig, zerolog.Nop()), mock, bufio.NewReader(strings.NewReader("")), false, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Confirmed alice@example.com")
	assert.Contains(t, out.String(), "Confirmed bob@example.com")

	// A separate provider over the same file, as the server builds it
	server := auth.NewService(auth.NewMockProvider(zerolog.Nop(), dataFile), seedConfig, zerolog.Nop())
	for _, u := range devUsers {
		_, err := server.Authenticate(ctx, u.username, u.password)
		assert.NoError(t, err, u.username)
	}
}

func TestSeedUsersSkipsExistingUsers(t *testing.T) {
	ctx := context.Background()
	mock := auth.NewMockProvider(zerolog.Nop(), "")
	identity := auth.NewService(mock, seedConfig, zerolog.Nop())
	stdin := bufio.NewReader(strings.NewReader(""))

	require.NoError(t, seedUsers(ctx, identity, mock, stdin, true, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, seedUsers(ctx, identity, mock, stdin, true, &out))
	assert.Contains(t, out.String(), "alice@example.com already exists")
	assert.Contains(t, out.String(), "bob@example.com already exists")
}

func TestConfirmationCodeFromStdin(t *testing.T) {
	var out bytes.Buffer

	code, err := confirmationCode(bufio.NewReader(strings.NewReader(" 123456 \n")), &out, nil, "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Contains(t, out.String(), "alice@example.com")
}
