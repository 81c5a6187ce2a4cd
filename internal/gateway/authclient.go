package gateway

import (
	"context"
	"net/http"

	"taskboard/internal/models"
)

// AuthClient calls the backend's /auth endpoints.
type AuthClient struct {
	client *Client
}

// NewAuthClient creates an AuthClient.
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return a.session(ctx, "/auth/signup", credentials{email, password})
}

func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return a.session(ctx, "/auth/signin", credentials{email, password})
}

func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	return a.session(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
}

func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	return a.client.do(ctx, http.MethodPost, "/auth/signout", accessToken, nil, nil)
}

func (a *AuthClient) Recover(ctx context.Context, email string) error {
	return a.client.do(ctx, http.MethodPost, "/auth/recover", "", map[string]string{"email": email}, nil)
}

func (a *AuthClient) session(ctx context.Context, path string, in interface{}) (*models.Session, error) {
	var session models.Session
	if err := a.client.do(ctx, http.MethodPost, path, "", in, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
