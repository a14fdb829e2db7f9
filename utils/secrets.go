package utils

import (
	"context"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/pkg/errors"
)

// ProcessSecrets resolves secret references in the config. Currently only the
// validator signing key supports a Secret Manager reference; an explicitly
// configured key always wins.
func ProcessSecrets(cfg *types.Config) error {
	if cfg.Validator.PrivateKey != "" || cfg.Validator.PrivateKeySecret == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return errors.Wrap(err, "error creating secretmanager client")
	}
	defer client.Close()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: cfg.Validator.PrivateKeySecret,
	})
	if err != nil {
		return errors.Wrapf(err, "error accessing secret %v", cfg.Validator.PrivateKeySecret)
	}

	cfg.Validator.PrivateKey = strings.TrimSpace(string(result.Payload.Data))
	return nil
}
