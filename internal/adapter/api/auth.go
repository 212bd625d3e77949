package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"docnexus/internal/domain"
)

// Login exchanges credentials for an access token. The endpoint expects an
// OAuth2 password form.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Token, error) {
	form := url.Values{"username": {username}, "password": {password}}.Encode()

	var tok domain.Token
	err := c.call(ctx, "auth.login", request{
		method:      http.MethodPost,
		path:        "auth/login",
		body:        strings.NewReader(form),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return domain.Token{}, err
	}
	if tok.AccessToken == "" {
		return domain.Token{}, domain.NewDomainError("auth.login", domain.ErrProviderError, "response has no access_token")
	}
	return tok, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) error {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	return c.postJSON(ctx, "auth.register", "auth/register", in, nil)
}
