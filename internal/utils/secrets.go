package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// SecretVar is an environment variable the API expects to hold a random secret
type SecretVar struct {
	Name  string
	Bytes int
}

// TokenSecrets are the HMAC keys of the access and refresh tokens (256-bit each)
var TokenSecrets = []SecretVar{
	{Name: "JWT_SECRET", Bytes: 32},
	{Name: "JWT_REFRESH_SECRET", Bytes: 32},
}

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	if bytes < 16 {
		return "", fmt.Errorf("secret must be at least 16 bytes, got %d", bytes)
	}
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSecrets returns a fresh value for every variable, keyed by name.
// Access and refresh tokens must never share a key, so duplicates are rejected.
func GenerateSecrets(vars []SecretVar) (map[string]string, error) {
	values := make(map[string]string, len(vars))
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		secret, err := GenerateSecret(v.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", v.Name, err)
		}
		if seen[secret] {
			return nil, fmt.Errorf("generated duplicate secret for %s", v.Name)
		}
		seen[secret] = true
		values[v.Name] = secret
	}
	return values, nil
}

// EnvSnippet renders the values as NAME=value lines in the order of vars.
// With export set each line is prefixed for sourcing from a shell.
func EnvSnippet(vars []SecretVar, values map[string]string, export bool) string {
	var b strings.Builder
	for _, v := range vars {
		if export {
			b.WriteString("export ")
		}
		fmt.Fprintf(&b, "%s=%s\n", v.Name, values[v.Name])
	}
	return b.String()
}
