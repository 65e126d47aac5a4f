// Where: internal/matrix/load.go
// What: Matrix file load/save helpers.
// Why: Round-trip image-matrix.yaml consistently, schema-checked on read.
package matrix

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads, schema-validates, and parses a matrix file.
func Load(path string) (Matrix, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Matrix{}, err
	}
	return Parse(payload)
}

// Parse schema-validates and decodes matrix file content.
func Parse(payload []byte) (Matrix, error) {
	if err := ValidateSchema(payload); err != nil {
		return Matrix{}, fmt.Errorf("matrix file is invalid: %w", err)
	}

	var m Matrix
	if err := yaml.Unmarshal(payload, &m); err != nil {
		return Matrix{}, err
	}
	if m.Version != CurrentVersion {
		return Matrix{}, fmt.Errorf("unsupported matrix version %d (want %d)", m.Version, CurrentVersion)
	}
	return m, nil
}

// Save writes the matrix to path, creating parent directories as needed.
func Save(path string, m Matrix) error {
	payload, err := Marshal(m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// Marshal encodes the matrix with 2-space indentation.
func Marshal(m Matrix) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&m); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
