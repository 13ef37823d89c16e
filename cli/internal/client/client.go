// ABOUTME: Backend client for the console CLI in local (bearer token) mode
// ABOUTME: Drives the same auth gateway as the console server with a one-shot session per command

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/config"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

const (
	defaultTimeout = 30 * time.Second
	cliSessionID   = "cli"
)

var (
	// ErrTokenRejected means the backend no longer accepts the stored token.
	ErrTokenRejected = errors.New("token rejected by backend")
	// ErrUnavailable means the backend answered but could not resolve the identity.
	ErrUnavailable = errors.New("backend could not resolve the identity")
)

// Credentials is what a successful login leaves behind.
type Credentials struct {
	Token string
	User  *models.User
}

// Client is the CLI's view of the church administration backend.
type Client struct {
	apiURL  string
	api     *services.APIClient
	gateway *services.AuthGateway
}

// New creates a client. baseURL may be given with or without the /api suffix.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg := &config.Config{APIBaseURL: baseURL}

	api, err := services.NewAPIClient(services.APIConfig{
		APIURL:  cfg.APIURL(),
		RootURL: cfg.SanctumURL(),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		apiURL:  cfg.APIURL(),
		api:     api,
		gateway: services.NewAuthGateway(api),
	}, nil
}

// APIURL returns the normalised backend API base.
func (c *Client) APIURL() string {
	return c.apiURL
}

// Login exchanges username and password for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	s := services.NewSession(cliSessionID, models.ModeLocal)

	user, err := c.gateway.Login(ctx, s, username, password)
	if err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return &Credentials{Token: s.Token(), User: user}, nil
}

// WhoAmI resolves the identity behind token. An unreachable backend is
// reported before the token is tried, so it is never mistaken for a rejection.
func (c *Client) WhoAmI(ctx context.Context, token string) (*models.User, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}

	s := services.NewSession(cliSessionID, models.ModeLocal)
	if err := s.SetBearer(token); err != nil {
		return nil, err
	}

	user := c.gateway.FetchUser(ctx, s)
	if user != nil {
		return user, nil
	}
	if ctxErr := contextError(ctx); ctxErr != nil {
		return nil, ctxErr
	}
	if !s.HasCredential() {
		return nil, ErrTokenRejected
	}
	return nil, ErrUnavailable
}

// Logout asks the backend to revoke token. Failures are logged by the gateway and ignored.
func (c *Client) Logout(ctx context.Context, token string) {
	s := services.NewSession(cliSessionID, models.ModeLocal)
	if err := s.SetBearer(token); err != nil {
		return
	}
	c.gateway.Logout(ctx, s)
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Ping(ctx); err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("cannot connect to backend at %s: %w", c.apiURL, err)
	}
	return nil
}

func contextError(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("request canceled")
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("request timed out")
	}
	return nil
}
