package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultSecretsDir is the standard Docker Secrets mount point. Overridable
// through SECRETS_DIR for local runs.
const defaultSecretsDir = "/run/secrets"

// ReadSecret reads a secret from its file under the secrets directory.
func ReadSecret(secretName string) (string, error) {
	dir := os.Getenv("SECRETS_DIR")
	if dir == "" {
		dir = defaultSecretsDir
	}
	filePath := filepath.Join(dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
