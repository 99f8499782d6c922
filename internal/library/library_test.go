package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/Faultbox/vrmkit/internal/config"
	"github.com/Faultbox/vrmkit/internal/logger"
	"github.com/Faultbox/vrmkit/pkg/vrm"
	"github.com/Faultbox/vrmkit/pkg/vrm/vrmtest"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newManager(t *testing.T, cacheSize int, dirs ...string) *Manager {
	t.Helper()
	logger.InitNop()
	m, err := NewManager(config.LibraryConfig{SearchPaths: dirs, CacheSize: cacheSize})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestManager_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "seed.vrm"), vrmtest.Current())
	writeFile(t, filepath.Join(dir, "legacy.vrm"), vrmtest.Legacy())

	m := newManager(t, 4, dir)
	ctx := context.Background()

	tests := []struct {
		name   string
		schema string
		title  string
	}{
		{"seed.vrm", "current", vrmtest.FixtureTitle},
		{"legacy.vrm", "legacy", "Legacy-kun"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := m.Load(ctx, tt.name)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if e.Schema() != tt.schema {
				t.Errorf("schema = %s, want %s", e.Schema(), tt.schema)
			}
			if got := e.Avatar.Meta().Title; got != tt.title {
				t.Errorf("title = %q, want %q", got, tt.title)
			}
			if e.Path != filepath.Join(dir, tt.name) {
				t.Errorf("path = %s", e.Path)
			}
		})
	}
}

func TestManager_Cache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "seed.vrm"), vrmtest.Current())

	m := newManager(t, 4, dir)
	ctx := context.Background()

	first, err := m.Load(ctx, "seed.vrm")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := m.Load(ctx, "seed.vrm")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("second load should come from the cache")
	}
	if hits, misses := m.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses, want 1, 1", hits, misses)
	}
}

func TestManager_CacheDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "seed.vrm"), vrmtest.Current())

	m := newManager(t, 0, dir)
	ctx := context.Background()

	first, _ := m.Load(ctx, "seed.vrm")
	second, _ := m.Load(ctx, "seed.vrm")
	if first == nil || first == second {
		t.Error("disabled cache should parse every time")
	}
}

func TestManager_LegacyIsDeepCopy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "legacy.vrm"), vrmtest.Legacy())

	m := newManager(t, 4, dir)
	ctx := context.Background()

	a, err := m.Legacy(ctx, "legacy.vrm")
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	want, _ := m.Legacy(ctx, "legacy.vrm")
	if !reflect.DeepEqual(a, want) {
		t.Fatal("copies of the same avatar differ")
	}

	a.Meta.Title = "changed"
	a.Humanoid.HumanBones[0].Node = 99
	a.SecondaryAnimation.BoneGroups[0].Bones[0] = 99
	a.MaterialProperties[0].Name = "changed"

	b, err := m.Legacy(ctx, "legacy.vrm")
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	if !reflect.DeepEqual(b, want) {
		t.Error("mutating a copy changed the cached avatar")
	}

	e, _ := m.Load(ctx, "legacy.vrm")
	if e.Avatar.Meta().Title != "Legacy-kun" {
		t.Error("cached avatar was modified")
	}
}

func TestManager_Resolve(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	writeFile(t, filepath.Join(low, "both.vrm"), vrmtest.Legacy())
	writeFile(t, filepath.Join(high, "both.vrm"), vrmtest.Current())
	writeFile(t, filepath.Join(low, "only.vrm"), vrmtest.Legacy())

	m := newManager(t, 4, low)
	m.AddSearchPath(high)

	tests := []struct {
		name string
		want string
	}{
		{"both.vrm", filepath.Join(high, "both.vrm")},
		{"only.vrm", filepath.Join(low, "only.vrm")},
		{filepath.Join(low, "both.vrm"), filepath.Join(low, "both.vrm")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(tt.name)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve = %s, want %s", got, tt.want)
			}
		})
	}

	for _, missing := range []string{"missing.vrm", filepath.Join(low, "missing.vrm")} {
		if _, err := m.Resolve(missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%s) error = %v, want ErrNotFound", missing, err)
		}
	}
}

func TestManager_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.vrm"), []byte("not a glb file"))

	m := newManager(t, 4, dir)
	ctx := context.Background()

	if _, err := m.Load(ctx, "absent.vrm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("absent: error = %v, want ErrNotFound", err)
	}
	_, err := m.Load(ctx, "broken.vrm")
	if !errors.Is(err, vrm.ErrUnsupportedVersion) {
		t.Errorf("broken: error = %v, want ErrUnsupportedVersion", err)
	}
	if path := filepath.Join(dir, "broken.vrm"); err != nil && strings.Count(err.Error(), path) != 1 {
		t.Errorf("broken: error %q should name %s once", err, path)
	}
	if m.cache.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestManager_List(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(a, "one.vrm"), vrmtest.Legacy())
	writeFile(t, filepath.Join(a, "nested", "two.VRM"), vrmtest.Legacy())
	writeFile(t, filepath.Join(a, "notes.txt"), []byte("x"))
	writeFile(t, filepath.Join(b, "three.vrm"), vrmtest.Current())

	m := newManager(t, 4, a, b, a, filepath.Join(a, "does-not-exist"))

	got, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		filepath.Join(a, "nested", "two.VRM"),
		filepath.Join(a, "one.vrm"),
		filepath.Join(b, "three.vrm"),
	}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestCache_Eviction(t *testing.T) {
	c := NewCache(2)
	a, b, d := &Entry{Path: "a"}, &Entry{Path: "b"}, &Entry{Path: "d"}

	c.Set("a", a)
	c.Set("b", b)
	c.Get("a") // b is now least recently used
	c.Set("d", d)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if e, ok := c.Get("a"); !ok || e != a {
		t.Error("a should still be cached")
	}
	if e, ok := c.Get("d"); !ok || e != d {
		t.Error("d should be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear left entries behind")
	}
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Error("Clear should reset stats")
	}
}

func TestCache_Disabled(t *testing.T) {
	c := NewCache(0)
	c.Set("a", &Entry{Path: "a"})

	if _, ok := c.Get("a"); ok {
		t.Error("disabled cache returned an entry")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if hits, misses := c.Stats(); hits != 0 || misses != 1 {
		t.Errorf("Stats = %d/%d, want 0/1", hits, misses)
	}
}
