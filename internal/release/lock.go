// Where: internal/release/lock.go
// What: Release pin lock file load/save.
// Why: Make latest-release builds reproducible between resolve and build.
package release

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Lock records resolved package versions and when they were resolved.
type Lock struct {
	ResolvedAt string            `yaml:"resolved_at"`
	Packages   map[string]string `yaml:"packages"`
}

// NewLock creates a lock from a pin set, stamped with the given time.
func NewLock(pins map[string]string, now time.Time) Lock {
	return Lock{
		ResolvedAt: now.UTC().Format(time.RFC3339),
		Packages:   pins,
	}
}

// LoadLock reads a lock file. A missing file yields an empty lock, not an
// error, so callers can treat pins as optional.
func LoadLock(path string) (Lock, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Lock{Packages: map[string]string{}}, nil
		}
		return Lock{}, err
	}

	var lock Lock
	if err := yaml.Unmarshal(payload, &lock); err != nil {
		return Lock{}, err
	}
	if lock.Packages == nil {
		lock.Packages = map[string]string{}
	}
	return lock, nil
}

// SaveLock writes the lock file, creating parent directories as needed.
func SaveLock(path string, lock Lock) error {
	payload, err := yaml.Marshal(&lock)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
