package encryption

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"assistente-api/internal/config"
	"assistente-api/internal/util"
)

var ErrDecryptionFailed = errors.New("decryption failed")

// SecretManager resolves the JWT signing secret at startup. In production the
// secret ships as a KMS-encrypted ciphertext; in development it can be set
// directly in the environment.
type SecretManager struct {
	kmsClient *kms.Client
	config    *config.Config
}

func NewSecretManager(ctx context.Context, cfg *config.Config) (*SecretManager, error) {
	sm := &SecretManager{config: cfg}

	if cfg.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.KMS.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		sm.kmsClient = kms.NewFromConfig(awsCfg)
	}

	return sm, nil
}

// ResolveSigningSecret returns the plaintext signing secret, decrypting it
// through KMS when enabled. Failure here is fatal at startup: a request must
// never reach the token issuer without a secret.
func (sm *SecretManager) ResolveSigningSecret(ctx context.Context) (string, error) {
	if !sm.config.KMS.Enabled {
		return sm.config.Auth.JWTSecret, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sm.config.KMS.SecretCiphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding: %v", ErrDecryptionFailed, err)
	}

	out, err := sm.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	util.Info("Signing secret decrypted via KMS")
	return string(out.Plaintext), nil
}
