package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/vrmkit/internal/config"
	"github.com/Faultbox/vrmkit/internal/library"
	"github.com/Faultbox/vrmkit/internal/logger"
	"github.com/Faultbox/vrmkit/pkg/vrm"
	"github.com/Faultbox/vrmkit/pkg/vrm/vrmtest"
)

func setup(t *testing.T) (*Catalog, *library.Manager, string) {
	t.Helper()
	logger.InitNop()

	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "db", "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	lib, err := library.NewManager(config.LibraryConfig{CacheSize: 8})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	avatars := filepath.Join(dir, "avatars")
	files := map[string][]byte{
		"seed.vrm":          vrmtest.Current(),
		"nested/legacy.vrm": vrmtest.Legacy(),
		"readme.txt":        []byte("not an avatar"),
	}
	for name, data := range files {
		p := filepath.Join(avatars, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return c, lib, avatars
}

func TestIndexAndSearch(t *testing.T) {
	c, lib, avatars := setup(t)
	ctx := context.Background()

	n, err := c.Index(ctx, lib, avatars)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}

	rows, err := c.Search("virtualcast", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Search(virtualcast) = %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.Title != vrmtest.FixtureTitle || got.Author != vrmtest.FixtureAuthor {
		t.Errorf("row = %q by %q", got.Title, got.Author)
	}
	if got.Schema != "current" {
		t.Errorf("schema = %s, want current", got.Schema)
	}
	if got.BoneCount != vrmtest.FixtureBoneCount {
		t.Errorf("bones = %d, want %d", got.BoneCount, vrmtest.FixtureBoneCount)
	}
	if got.NodeCount != vrmtest.NodeCount {
		t.Errorf("nodes = %d, want %d", got.NodeCount, vrmtest.NodeCount)
	}
	if !got.HasThumbnail {
		t.Error("expected a thumbnail")
	}
	if names := got.BlendShapeNames(); len(names) != got.BlendShapeCount || len(names) != 18 {
		t.Errorf("blend shapes = %v (count %d)", names, got.BlendShapeCount)
	}
	if got.Path != filepath.Join(avatars, "seed.vrm") || got.Size == 0 {
		t.Errorf("path = %s, size = %d", got.Path, got.Size)
	}

	all, err := c.Search("", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(all) != 2 || all[0].Title != "Legacy-kun" {
		t.Errorf("Search(\"\") = %d rows, first %q", len(all), firstTitle(all))
	}

	limited, err := c.Search("", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Search with limit = %d rows, %v", len(limited), err)
	}
}

func firstTitle(rows []AvatarSummary) string {
	if len(rows) == 0 {
		return ""
	}
	return rows[0].Title
}

func TestSearch_CaseAndWildcards(t *testing.T) {
	c, _, _ := setup(t)

	rows := []AvatarSummary{
		{Path: "/a.vrm", Title: "Seed-san", Author: "VirtualCast, Inc."},
		{Path: "/b.vrm", Title: "100% Cotton", Author: "someone"},
		{Path: "/c.vrm", Title: "Plain", Author: "snake_case"},
	}
	for i := range rows {
		if err := c.Upsert(&rows[i]); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	tests := []struct {
		text string
		want int
	}{
		{"SEED", 1},
		{"inc.", 1},
		{"%", 1},
		{"_", 1},
		{"e", 3},
		{"nobody", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := c.Search(tt.text, 0)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Search(%q) = %d rows, want %d", tt.text, len(got), tt.want)
			}
		})
	}
}

func TestIndex_Reindex(t *testing.T) {
	c, lib, avatars := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Index(ctx, lib, avatars); err != nil {
			t.Fatalf("Index #%d failed: %v", i, err)
		}
	}
	n, err := c.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d after reindex, want 2", n)
	}
}

func TestIndex_CollectsFailures(t *testing.T) {
	c, lib, avatars := setup(t)
	ctx := context.Background()

	broken := filepath.Join(avatars, "broken.vrm")
	if err := os.WriteFile(broken, []byte("glTF"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(avatars, "missing.vrm")

	n, err := c.Index(ctx, lib, avatars, missing)
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}
	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2", errs)
	}
	if !errors.Is(err, vrm.ErrDataInconsistent) {
		t.Errorf("expected the broken file's error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the missing file's error, got %v", err)
	}
}

func TestIndex_Cancelled(t *testing.T) {
	c, lib, avatars := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := c.Index(ctx, lib, avatars)
	if n != 0 || !errors.Is(err, context.Canceled) {
		t.Errorf("Index = %d, %v; want 0, context.Canceled", n, err)
	}
}

func TestGetAndRemove(t *testing.T) {
	c, lib, avatars := setup(t)
	ctx := context.Background()

	path := filepath.Join(avatars, "nested", "legacy.vrm")
	if _, err := c.Index(ctx, lib, path); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	s, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.Schema != "legacy" || s.SpecVersion != "0.0" || s.SpringChainCount != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.IndexedAt.IsZero() {
		t.Error("IndexedAt not set")
	}

	if err := c.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := c.Get(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove = %v, want ErrNotFound", err)
	}
	if err := c.Remove(path); err != nil {
		t.Errorf("second Remove = %v", err)
	}
}
