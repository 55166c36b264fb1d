package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "nested", "config.yaml"))
	require.NoError(t, err)
	return m
}

func TestValidateKeyFormat(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"ctx7sk_abcdef", true},
		{"ctx7sk-abcdef", true},
		{"ctx7sk_abcd", true},
		{"ctx7sk_abc", false},
		{"ctx7sk_", false},
		{"sk_abcdefghijk", false},
		{"CTX7SK_abcdefgh", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateKeyFormat(tc.key))
		})
	}
}

func TestManagerCreate(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.Exists())

	require.NoError(t, m.Create())
	assert.True(t, m.Exists())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(m.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	// Idempotent.
	require.NoError(t, m.Create())
}

func TestManagerMissingFile(t *testing.T) {
	m := newTestManager(t)
	key, err := m.Context7APIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestManagerEmptyFile(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create())

	key, err := m.Context7APIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestManagerSetContext7APIKey(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SetContext7APIKey("ctx7sk_first_key"))
	key, err := m.Context7APIKey()
	require.NoError(t, err)
	assert.Equal(t, "ctx7sk_first_key", key)

	require.NoError(t, m.SetContext7APIKey("ctx7sk-second-key"))
	key, err = m.Context7APIKey()
	require.NoError(t, err)
	assert.Equal(t, "ctx7sk-second-key", key)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(m.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestManagerSetTightensPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	m := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(m.Path()), 0o700))
	require.NoError(t, os.WriteFile(m.Path(), nil, 0o644))

	require.NoError(t, m.SetContext7APIKey("ctx7sk_abcdefgh"))
	info, err := os.Stat(m.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestManagerPreservesOtherKeys(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(m.Path()), 0o700))
	existing := "theme: dark\ncontext7:\n  api_key: ctx7sk_old_value\n  region: eu\n"
	require.NoError(t, os.WriteFile(m.Path(), []byte(existing), 0o600))

	require.NoError(t, m.SetContext7APIKey("ctx7sk_new_value"))

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "dark", doc["theme"])
	section := doc["context7"].(map[string]interface{})
	assert.Equal(t, "ctx7sk_new_value", section["api_key"])
	assert.Equal(t, "eu", section["region"])
}

func TestManagerRejectsBadKey(t *testing.T) {
	m := newTestManager(t)
	err := m.SetContext7APIKey("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	assert.False(t, m.Exists())
}

func TestNewManagerExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}

	m, err := NewManager("~/.coderef/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".coderef", "config.yaml"), m.Path())

	m, err = NewManager("")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(m.Path(), filepath.Join(".coderef", "config.yaml")))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "ctx7sk_*****cdef", MaskKey("ctx7sk_12345cdef"))
	assert.Equal(t, "****", MaskKey("abcd"))
	assert.Equal(t, "", MaskKey(""))
}
