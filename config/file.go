package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	context7Section = "context7"
	apiKeyField     = "api_key"
)

// ConfigError reports a failure to read or write the user config file.
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("failed to %s config file %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrInvalidKeyFormat is returned for keys that cannot be Context7 keys.
var ErrInvalidKeyFormat = errors.New("invalid API key format: key must start with 'ctx7sk_' or 'ctx7sk-'")

// ValidateKeyFormat reports whether key looks like a Context7 API key.
func ValidateKeyFormat(key string) bool {
	return (strings.HasPrefix(key, "ctx7sk_") || strings.HasPrefix(key, "ctx7sk-")) && len(key) > 10
}

// DefaultPath is where the user config file lives unless CODEREF_CONFIG says
// otherwise.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".coderef", "config.yaml")
	}
	return filepath.Join(home, ".coderef", "config.yaml")
}

// Manager reads and writes the user config file:
//
//	context7:
//	  api_key: ctx7sk_...
//
// Other keys in the file are preserved on write.
type Manager struct {
	path string
}

// NewManager creates a Manager for path. A leading ~ is expanded and an empty
// path selects DefaultPath.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		return &Manager{path: DefaultPath()}, nil
	}
	expanded, err := expandHome(path)
	if err != nil {
		return nil, &ConfigError{Op: "locate", Path: path, Err: err}
	}
	return &Manager{path: expanded}, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Path returns the resolved file path.
func (m *Manager) Path() string {
	return m.path
}

// Exists reports whether the file exists.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Create makes the file and its directory if missing and restricts the file
// to its owner.
func (m *Manager) Create() error {
	if err := os.MkdirAll(filepath.Dir(m.path), dirMode); err != nil {
		return &ConfigError{Op: "create", Path: m.path, Err: err}
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return &ConfigError{Op: "create", Path: m.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ConfigError{Op: "create", Path: m.path, Err: err}
	}
	if err := os.Chmod(m.path, fileMode); err != nil {
		return &ConfigError{Op: "create", Path: m.path, Err: err}
	}
	return nil
}

// Context7APIKey returns the stored key, or "" when the file or key is absent.
func (m *Manager) Context7APIKey() (string, error) {
	doc, err := m.read()
	if err != nil {
		return "", err
	}
	section, _ := doc[context7Section].(map[string]interface{})
	key, _ := section[apiKeyField].(string)
	return key, nil
}

// SetContext7APIKey stores key, creating the file if needed.
func (m *Manager) SetContext7APIKey(key string) error {
	if !ValidateKeyFormat(key) {
		return ErrInvalidKeyFormat
	}
	if !m.Exists() {
		if err := m.Create(); err != nil {
			return err
		}
	}

	doc, err := m.read()
	if err != nil {
		return err
	}
	section, ok := doc[context7Section].(map[string]interface{})
	if !ok {
		section = map[string]interface{}{}
	}
	section[apiKeyField] = key
	doc[context7Section] = section

	return m.write(doc)
}

func (m *Manager) read() (map[string]interface{}, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, &ConfigError{Op: "read", Path: m.path, Err: err}
	}

	doc := map[string]interface{}{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Op: "read", Path: m.path, Err: err}
	}
	return doc, nil
}

func (m *Manager) write(doc map[string]interface{}) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return &ConfigError{Op: "write", Path: m.path, Err: err}
	}
	if err := enc.Close(); err != nil {
		return &ConfigError{Op: "write", Path: m.path, Err: err}
	}

	if err := os.WriteFile(m.path, buf.Bytes(), fileMode); err != nil {
		return &ConfigError{Op: "write", Path: m.path, Err: err}
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(m.path, fileMode); err != nil {
		return &ConfigError{Op: "write", Path: m.path, Err: err}
	}
	return nil
}

// MaskKey shows the first seven and last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 11 {
		return strings.Repeat("*", len(key))
	}
	return key[:7] + strings.Repeat("*", len(key)-11) + key[len(key)-4:]
}
