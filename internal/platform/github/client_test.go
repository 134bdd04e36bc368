package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Token(t *testing.T) {
	client, err := NewClient(Auth{Token: "ghs_test"}, "https://github.com")
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/", client.BaseURL.String())
}

func TestNewClient_Enterprise(t *testing.T) {
	client, err := NewClient(Auth{Token: "ghs_test"}, "https://ghe.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", client.BaseURL.String())
	assert.Equal(t, "https://ghe.example.com/api/uploads/", client.UploadURL.String())
}

func TestNewClient_NoCredentials(t *testing.T) {
	_, err := NewClient(Auth{AppID: 1}, "")
	assert.ErrorContains(t, err, "no github credentials")
}

func TestNewClient_InvalidAppKey(t *testing.T) {
	_, err := NewClient(Auth{AppID: 1, InstallationID: 2, PrivateKeyPEM: "not a key"}, "")
	assert.ErrorContains(t, err, "creating github installation transport")
}
