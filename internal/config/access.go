package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidAccessFile is returned when the access file is structurally wrong.
var ErrInvalidAccessFile = errors.New("invalid access file")

// AccessFile is the optional YAML document that overrides the protected-path
// table and the operation policy table.
//
//	protected_paths:
//	  - /dashboard
//	  - /clientes/:path*
//	policies:
//	  usuarios: [Superusuario]
type AccessFile struct {
	ProtectedPaths []string            `yaml:"protected_paths"`
	Policies       map[string][]string `yaml:"policies"`
}

// LoadAccessFile reads and validates the access file at path.
func LoadAccessFile(path string) (*AccessFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access file: %w", err)
	}
	return ParseAccessFile(data)
}

func ParseAccessFile(data []byte) (*AccessFile, error) {
	var file AccessFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessFile, err)
	}

	for _, p := range file.ProtectedPaths {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("%w: protected path %q must start with /", ErrInvalidAccessFile, p)
		}
	}
	for op := range file.Policies {
		if strings.TrimSpace(op) == "" {
			return nil, fmt.Errorf("%w: empty operation name", ErrInvalidAccessFile)
		}
	}
	return &file, nil
}

// Apply overlays the access file onto cfg. Policies are returned separately
// because their validation belongs to the policy table.
func (f *AccessFile) Apply(cfg *Config) {
	if f == nil || cfg == nil {
		return
	}
	if len(f.ProtectedPaths) > 0 {
		cfg.ProtectedPaths = append([]string(nil), f.ProtectedPaths...)
	}
}
