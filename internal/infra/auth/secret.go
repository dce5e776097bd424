package auth

import (
	"context"
	"strings"

	"gocloud.dev/runtimevar"
	_ "gocloud.dev/runtimevar/constantvar" // constant:// secrets for tests and local runs
	_ "gocloud.dev/runtimevar/filevar"     // file:// secrets mounted by the orchestrator

	"hubauth/config"
	"hubauth/internal/domain/lifecycle"
	"hubauth/internal/errors"
)

// SigningSecret is the process-wide key access tokens are signed with.
type SigningSecret []byte

// NewSigningSecret resolves the signing secret once at startup. secretKey.accessUrl,
// when set, is read through runtimevar and wins over the inline secretKey.access.
func NewSigningSecret(cfg *config.Config) (SigningSecret, error) {
	if cfg.SecretKey.AccessURL == "" {
		if cfg.SecretKey.Access == "" {
			return nil, errors.New("secretKey.access or secretKey.accessUrl must be set")
		}

		return SigningSecret(cfg.SecretKey.Access), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	return loadSecretFromURL(ctx, cfg.SecretKey.AccessURL)
}

func loadSecretFromURL(ctx context.Context, url string) (SigningSecret, error) {
	variable, err := runtimevar.OpenVariable(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "runtimevar.OpenVariable")
	}
	defer variable.Close()

	snapshot, err := variable.Latest(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read signing secret")
	}

	var secret string
	switch value := snapshot.Value.(type) {
	case string:
		secret = value
	case []byte:
		secret = string(value)
	default:
		return nil, errors.Errorf("signing secret has unsupported type %T, use decoder=string or decoder=bytes", value)
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}

	return SigningSecret(secret), nil
}
