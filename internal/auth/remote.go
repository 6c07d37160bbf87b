package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

// RemoteAuthenticator logs in against the backend's auth endpoint.
type RemoteAuthenticator struct {
	baseURL string
	client  *http.Client
}

// NewRemoteAuthenticator creates an authenticator for the given API base URL.
func NewRemoteAuthenticator(baseURL string, timeout time.Duration) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login implements Authenticator.
func (a *RemoteAuthenticator) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return domain.User{}, "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.User{}, "", ErrInvalidCredentials
	default:
		return domain.User{}, "", fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.User{}, "", fmt.Errorf("decode login response: %w", err)
	}
	return out.User, out.Token, nil
}
