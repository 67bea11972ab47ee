package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var ErrInvalidGoogleToken = errors.New("invalid google token")

// GoogleUserInfo represents user data from Google OAuth
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified,string"`
	Picture       string `json:"picture"`
	Name          string `json:"name"`
}

type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleUserInfo, error)
}

// TokenInfoVerifier checks ID tokens against Google's tokeninfo endpoint.
type TokenInfoVerifier struct {
	client *resty.Client
	url    string
}

func NewTokenInfoVerifier() *TokenInfoVerifier {
	return newTokenInfoVerifier(googleTokenInfoURL)
}

func newTokenInfoVerifier(url string) *TokenInfoVerifier {
	return &TokenInfoVerifier{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
	}
}

func (v *TokenInfoVerifier) Close() error {
	return v.client.Close()
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*GoogleUserInfo, error) {
	res, err := v.client.R().
		WithContext(ctx).
		SetQueryParam("id_token", idToken).
		SetResult(&GoogleUserInfo{}).
		Get(v.url)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, ErrInvalidGoogleToken
	}

	user, ok := res.Result().(*GoogleUserInfo)
	if !ok || user.Sub == "" {
		return nil, ErrInvalidGoogleToken
	}
	if !user.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidGoogleToken)
	}
	return user, nil
}
