package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret", 0)

	raw, err := tokens.Issue(models.User{ID: 7, Username: "ada", Email: "ada@example.com"})
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issuedAt }

	raw, err := tokens.Issue(models.User{ID: 1})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsWrongSecretAndAlgorithm(t *testing.T) {
	raw, err := NewTokens("other-secret", 0).Issue(models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokens("test-secret", 0).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("test-secret", 0).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenInfoVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("id_token") {
		case "good":
			_, _ = w.Write([]byte(`{"sub": "g-1", "email": "ada@example.com", "email_verified": "true", "picture": "https://img"}`))
		case "unverified":
			_, _ = w.Write([]byte(`{"sub": "g-2", "email": "bob@example.com", "email_verified": "false"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid_token"}`))
		}
	}))
	defer srv.Close()

	v := newTokenInfoVerifier(srv.URL)
	ctx := context.Background()

	user, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "g-1", user.Sub)
	assert.Equal(t, "https://img", user.Picture)

	_, err = v.Verify(ctx, "unverified")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	_, err = v.Verify(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)
}
