package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a required secret has neither a file nor a value.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes where a secret comes from.
type Source struct {
	// Name is used in error messages.
	Name string
	// Value is an inline value from config, env or flags.
	Value string
	// File holds the secret on disk. It takes precedence over Value.
	File string
	// Optional secrets resolve to "" instead of ErrNotConfigured.
	Optional bool
}

// Load resolves the secret and trims surrounding whitespace.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	value := src.Value
	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		value = string(data)
	}

	secret := strings.TrimSpace(value)
	switch {
	case secret != "":
		return secret, nil
	case file != "":
		return "", fmt.Errorf("%s file %q is empty", name, file)
	case src.Optional:
		return "", nil
	default:
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
}
