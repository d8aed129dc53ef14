package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTokenNotFound is returned when no token source yields a value.
var ErrTokenNotFound = errors.New("token not found")

// TokenSource lists where a token may come from, in resolution order:
// the Env variable, the file named by the PathEnv variable, the Literal from
// the config file, the file at Path from the config file.
type TokenSource struct {
	Env     string
	PathEnv string
	Literal string
	Path    string
}

// Resolve returns the first token found. A file that is named but cannot be read
// is an error rather than a reason to fall through.
func (s TokenSource) Resolve() (string, error) {
	if s.Env != "" {
		if token := os.Getenv(s.Env); token != "" {
			return token, nil
		}
	}
	if s.PathEnv != "" {
		if path := os.Getenv(s.PathEnv); path != "" {
			return ReadTokenFile(path)
		}
	}
	if s.Literal != "" {
		return s.Literal, nil
	}
	if s.Path != "" {
		return ReadTokenFile(s.Path)
	}
	return "", fmt.Errorf("%w: %s and %s not set in the environment; token and token_path not set in the config",
		ErrTokenNotFound, s.Env, s.PathEnv)
}

// ReadTokenFile reads a token file, expanding a leading "~" and trimming whitespace.
func ReadTokenFile(path string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
