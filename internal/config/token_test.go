package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTokenSource_ResolutionOrder(t *testing.T) {
	envFile := tokenFile(t, "from-env-file\n")
	configFile := tokenFile(t, "  from-config-file  ")

	tests := []struct {
		name    string
		env     string
		pathEnv string
		literal string
		path    string
		want    string
	}{
		{"env token first", "from-env", envFile, "from-literal", configFile, "from-env"},
		{"env path second", "", envFile, "from-literal", configFile, "from-env-file"},
		{"config literal third", "", "", "from-literal", configFile, "from-literal"},
		{"config path last", "", "", "", configFile, "from-config-file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_TOKEN", tt.env)
			t.Setenv("TEST_TOKEN_PATH", tt.pathEnv)

			token, err := TokenSource{
				Env:     "TEST_TOKEN",
				PathEnv: "TEST_TOKEN_PATH",
				Literal: tt.literal,
				Path:    tt.path,
			}.Resolve()

			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestTokenSource_NothingSet(t *testing.T) {
	t.Setenv("MISSING_TOKEN", "")
	t.Setenv("MISSING_TOKEN_PATH", "")

	_, err := TokenSource{Env: "MISSING_TOKEN", PathEnv: "MISSING_TOKEN_PATH"}.Resolve()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenNotFound))
	assert.Contains(t, err.Error(), "MISSING_TOKEN")
}

func TestTokenSource_UnreadableFile(t *testing.T) {
	t.Setenv("TEST_TOKEN", "")
	t.Setenv("TEST_TOKEN_PATH", "/path/to/invalid/token")

	_, err := TokenSource{Env: "TEST_TOKEN", PathEnv: "TEST_TOKEN_PATH", Literal: "ignored"}.Resolve()

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadTokenFile_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "pat"), []byte("pseudo_token_value\n"), 0o600))

	token, err := ReadTokenFile("~/pat")

	require.NoError(t, err)
	assert.Equal(t, "pseudo_token_value", token)
}
