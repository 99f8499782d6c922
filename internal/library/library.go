// Package library loads avatar files from a set of search directories and
// keeps recently used avatars parsed in memory.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Faultbox/vrmkit/internal/config"
	"github.com/Faultbox/vrmkit/internal/logger"
	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// ErrNotFound is returned when no search path holds the requested file.
var ErrNotFound = errors.New("avatar not found")

// Extension is the file extension List looks for.
const Extension = ".vrm"

// Entry is one loaded avatar together with its legacy-shaped description,
// migrated once at load time.
type Entry struct {
	Path   string
	Avatar vrm.Avatar
	legacy *vrm.VRM0
}

// Schema names the stored schema of the entry's avatar.
func (e *Entry) Schema() string {
	if _, ok := e.Avatar.(*vrm.CurrentAvatar); ok {
		return "current"
	}
	return "legacy"
}

// Manager resolves avatar names against search paths and caches parsed
// avatars. It is safe for concurrent use.
type Manager struct {
	searchPaths []string
	cache       *Cache
	mu          sync.RWMutex
	log         *zap.Logger
	metrics     *metrics
}

// NewManager creates a manager from library settings.
func NewManager(cfg config.LibraryConfig) (*Manager, error) {
	met, err := newMetrics()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cache:   NewCache(cfg.CacheSize),
		log:     logger.Named("library"),
		metrics: met,
	}
	for _, p := range cfg.SearchPaths {
		m.AddSearchPath(p)
	}
	return m, nil
}

// AddSearchPath appends dir to the search paths. Paths are searched in
// reverse order, so the last added wins.
func (m *Manager) AddSearchPath(dir string) {
	m.mu.Lock()
	m.searchPaths = append(m.searchPaths, dir)
	m.mu.Unlock()
}

// SearchPaths returns a copy of the configured search paths.
func (m *Manager) SearchPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.searchPaths...)
}

// Resolve maps name to an existing file. Absolute paths and paths that
// exist relative to the working directory are used as given.
func (m *Manager) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) || isFile(name) {
		if !isFile(name) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return filepath.Clean(name), nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.searchPaths) - 1; i >= 0; i-- {
		p := filepath.Join(m.searchPaths[i], name)
		if isFile(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Load returns the avatar stored under name, parsing it on a cache miss.
func (m *Manager) Load(ctx context.Context, name string) (*Entry, error) {
	path, err := m.Resolve(name)
	if err != nil {
		m.metrics.failed(ctx, "resolve")
		return nil, err
	}

	if e, ok := m.cache.Get(path); ok {
		m.metrics.hits.Add(ctx, 1)
		return e, nil
	}
	m.metrics.misses.Add(ctx, 1)

	start := time.Now()
	a, err := vrm.LoadAvatarFile(path)
	if err != nil {
		m.metrics.failed(ctx, "parse")
		m.log.Warn("avatar load failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	e := &Entry{Path: path, Avatar: a, legacy: a.Legacy()}
	elapsed := time.Since(start)

	schema := attribute.String("schema", e.Schema())
	m.metrics.loaded.Add(ctx, 1, metric.WithAttributes(schema))
	m.metrics.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(schema))
	if e.Schema() == "current" {
		m.metrics.migrated.Add(ctx, 1)
	}

	m.log.Debug("avatar loaded",
		zap.String("path", path),
		zap.String("schema", e.Schema()),
		zap.String("spec_version", a.SpecVersion()),
		zap.Int("bones", len(e.legacy.Humanoid.HumanBones)),
		zap.Duration("elapsed", elapsed))

	m.cache.Set(path, e)
	return e, nil
}

// Legacy returns a private deep copy of the legacy-shaped description of
// name. Callers may modify it freely.
func (m *Manager) Legacy(ctx context.Context, name string) (*vrm.VRM0, error) {
	e, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.LegacyCopy()
}

// LegacyCopy deep-copies the entry's legacy description.
func (e *Entry) LegacyCopy() (*vrm.VRM0, error) {
	var out vrm.VRM0
	if err := deepcopy.Copy(&out, e.legacy); err != nil {
		return nil, fmt.Errorf("copying %s: %w", e.Path, err)
	}
	return &out, nil
}

// List returns every avatar file in the search paths, sorted and without
// duplicates. Subdirectories are walked.
func (m *Manager) List() ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, dir := range m.SearchPaths() {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == dir && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(p), Extension) {
				return nil
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Stats returns cache hit and miss counts.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close drops every cached avatar.
func (m *Manager) Close() {
	m.cache.Clear()
}
