// Package github provides authenticated GitHub API clients.
package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v68/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const publicServerURL = "https://github.com"

// Auth selects how the client authenticates. Token wins when both a token
// and App credentials are present.
type Auth struct {
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  string
}

// NewClient creates a GitHub API client for serverURL (github.com or a
// GitHub Enterprise Server URL). Outbound requests are traced with otelhttp.
func NewClient(auth Auth, serverURL string) (*gogithub.Client, error) {
	base := otelhttp.NewTransport(http.DefaultTransport)

	var client *gogithub.Client
	switch {
	case auth.Token != "":
		client = gogithub.NewClient(&http.Client{Transport: base}).WithAuthToken(auth.Token)
	case auth.AppID != 0 && auth.InstallationID != 0 && auth.PrivateKeyPEM != "":
		// Installation transport handles JWT generation and token refresh
		transport, err := ghinstallation.New(base, auth.AppID, auth.InstallationID, []byte(auth.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("creating github installation transport: %w", err)
		}
		if apiURL, ok := enterpriseAPIURL(serverURL); ok {
			transport.BaseURL = strings.TrimSuffix(apiURL, "/")
		}
		client = gogithub.NewClient(&http.Client{Transport: transport})
	default:
		return nil, errors.New("no github credentials: set a token or app id, installation id and private key")
	}

	if apiURL, ok := enterpriseAPIURL(serverURL); ok {
		uploadURL := strings.TrimSuffix(serverURL, "/") + "/api/uploads/"
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, uploadURL)
		if err != nil {
			return nil, fmt.Errorf("configuring enterprise urls: %w", err)
		}
	}
	return client, nil
}

// enterpriseAPIURL returns the REST base URL for a GitHub Enterprise Server
// host, or false for github.com.
func enterpriseAPIURL(serverURL string) (string, bool) {
	serverURL = strings.TrimSuffix(serverURL, "/")
	if serverURL == "" || serverURL == publicServerURL {
		return "", false
	}
	return serverURL + "/api/v3/", true
}
