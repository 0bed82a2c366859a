// Package file implements a config.Source that reads a single local
// file, inferring its decode format from the file extension, and
// watches it for SIGHUP-driven reloads via config's own signal tick
// rather than filesystem notifications.
package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/omalloc/tcrelay/contrib/config"
)

type source struct {
	path string
}

// New returns a config.Source that loads path on each Scan/reload.
func New(path string) config.Source {
	return &source{path: path}
}

func (s *source) Load() ([]*config.KeyValue, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	return []*config.KeyValue{{
		Key:    filepath.Base(s.path),
		Value:  data,
		Format: format(s.path),
	}}, nil
}

// Watch returns a no-op watcher: reload is driven externally by
// config's SIGHUP tick rather than a dedicated notification channel.
func (s *source) Watch() (config.Watcher, error) {
	return noopWatcher{}, nil
}

type noopWatcher struct{}

func (noopWatcher) Next() ([]*config.KeyValue, error) {
	select {}
}

func (noopWatcher) Stop() error { return nil }

func format(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch ext {
	case "yaml", "yml":
		return "yaml"
	case "json":
		return "json"
	default:
		return "json"
	}
}
