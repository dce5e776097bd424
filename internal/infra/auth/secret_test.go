package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubauth/config"
)

func TestNewSigningSecret_Inline(t *testing.T) {
	cfg := &config.Config{SecretKey: config.SecretKeyConfig{Access: "inline-secret"}}

	secret, err := NewSigningSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, SigningSecret("inline-secret"), secret)
}

func TestNewSigningSecret_Missing(t *testing.T) {
	_, err := NewSigningSecret(&config.Config{})
	assert.Error(t, err)
}

func TestNewSigningSecret_ConstantURL(t *testing.T) {
	cfg := &config.Config{SecretKey: config.SecretKeyConfig{
		Access:    "ignored",
		AccessURL: "constant://?val=from-runtimevar&decoder=string",
	}}

	secret, err := NewSigningSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, SigningSecret("from-runtimevar"), secret)
}

func TestNewSigningSecret_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))

	cfg := &config.Config{SecretKey: config.SecretKeyConfig{
		AccessURL: "file://" + filepath.ToSlash(path) + "?decoder=string",
	}}

	secret, err := NewSigningSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, SigningSecret("file-secret"), secret)
}

func TestNewSigningSecret_EmptyValue(t *testing.T) {
	cfg := &config.Config{SecretKey: config.SecretKeyConfig{
		AccessURL: "constant://?val=&decoder=string",
	}}

	_, err := NewSigningSecret(cfg)
	assert.Error(t, err)
}
