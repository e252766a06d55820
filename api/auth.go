package api

import (
	"context"
	"net/http"
)

// Login exchanges a credential pair for tokens via POST /auth/login.
// A 401 surfaces as *Error with IsUnauthorized() == true.
func (c *Client) Login(ctx context.Context, in LoginInput) (TokenPair, error) {
	var out TokenPair
	if err := c.post(ctx, "/auth/login", in, &out); err != nil {
		return TokenPair{}, err
	}
	return out, nil
}

// Register creates an account via POST /auth/register and returns its first
// token pair.
func (c *Client) Register(ctx context.Context, in RegisterInput) (TokenPair, error) {
	var out TokenPair
	if err := c.post(ctx, "/auth/register", in, &out); err != nil {
		return TokenPair{}, err
	}
	return out, nil
}

// Refresh exchanges a refresh token for a new pair via POST /auth/refresh.
// The returned pair may omit the refresh token when the server chose not to
// rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	in := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var out TokenPair
	if err := c.post(ctx, "/auth/refresh", in, &out); err != nil {
		return TokenPair{}, err
	}
	return out, nil
}

// userWire tolerates both a flat role_name field and the nested role object
// older deployments emit.
type userWire struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
	Role     *struct {
		Name string `json:"name"`
	} `json:"role"`
	PhotoURL string `json:"photo_url"`
}

func (w userWire) identity() *UserIdentity {
	roleName := w.RoleName
	if roleName == "" && w.Role != nil {
		roleName = w.Role.Name
	}
	return &UserIdentity{
		ID:       w.ID,
		Name:     w.Name,
		Username: w.Username,
		Email:    w.Email,
		RoleName: roleName,
		PhotoURL: w.PhotoURL,
	}
}

// Me resolves the current identity via GET /auth/me. When accessToken is
// non-empty it is sent explicitly; otherwise the underlying transport is
// expected to attach credentials.
func (c *Client) Me(ctx context.Context, accessToken string) (*UserIdentity, error) {
	var wire userWire
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &wire, requestOptions{bearer: accessToken})
	if err != nil {
		return nil, err
	}
	return wire.identity(), nil
}
