package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/vrmkit/internal/config"
	"github.com/Faultbox/vrmkit/internal/logger"
	"github.com/Faultbox/vrmkit/pkg/vrm"
	"github.com/Faultbox/vrmkit/pkg/vrm/vrmtest"
)

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	logger.InitNop()

	dir := t.TempDir()
	avatars := filepath.Join(dir, "avatars")
	if err := os.MkdirAll(avatars, 0755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		"seed.vrm":   vrmtest.Current(),
		"legacy.vrm": vrmtest.Legacy(),
	} {
		if err := os.WriteFile(filepath.Join(avatars, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Library.SearchPaths = []string{avatars}
	cfg.Catalog.Path = filepath.Join(dir, "catalog.db")
	return cfg, dir
}

func runCommand(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), cfg, args, &out); err != nil {
		t.Fatalf("vrmtool %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestInfo(t *testing.T) {
	cfg, _ := testConfig(t)

	tests := []struct {
		file string
		want []string
	}{
		{"seed.vrm", []string{
			"Schema:   current (VRM 1.0)",
			"Title:      " + vrmtest.FixtureTitle,
			"Humanoid bones   51",
			"Blend shapes     18",
			"Thumbnail        image/png 4x3",
		}},
		{"legacy.vrm", []string{
			"Schema:   legacy (VRM 0.0)",
			"Title:      Legacy-kun",
			"Spring chains    1",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			out := runCommand(t, cfg, "info", tt.file)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	cfg, _ := testConfig(t)

	t.Run("json", func(t *testing.T) {
		out := runCommand(t, cfg, "migrate", "seed.vrm")
		var legacy vrm.VRM0
		if err := json.Unmarshal([]byte(out), &legacy); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if legacy.Meta.Title != vrmtest.FixtureTitle {
			t.Errorf("title = %q", legacy.Meta.Title)
		}
		if got := len(legacy.BlendShapeMaster.BlendShapeGroups); got != 18 {
			t.Errorf("blend shape groups = %d, want 18", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out := runCommand(t, cfg, "migrate", "-format", "yaml", "seed.vrm")
		if !strings.Contains(out, "title: "+vrmtest.FixtureTitle) {
			t.Errorf("yaml output missing title:\n%.400s", out)
		}
		// Keys keep the JSON field order: meta comes before humanoid.
		if strings.Index(out, "meta:") > strings.Index(out, "humanoid:") {
			t.Error("yaml keys out of order")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		var out bytes.Buffer
		err := run(context.Background(), cfg, []string{"migrate", "-format", "xml", "seed.vrm"}, &out)
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestSimulate(t *testing.T) {
	cfg, _ := testConfig(t)

	out := runCommand(t, cfg, "simulate", "-frames", "30", "-fps", "30", "seed.vrm")
	for _, w := range []string{"Frames:  30 at 30 fps (1.00s simulated)", "Chains:  4"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestThumbnail(t *testing.T) {
	cfg, dir := testConfig(t)
	output := filepath.Join(dir, "thumb.png")

	out := runCommand(t, cfg, "thumbnail", "legacy.vrm", output)
	if !strings.Contains(out, "image/png, 4x3") {
		t.Errorf("unexpected output: %s", out)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("thumbnail size = %v", b)
	}
}

func TestIndexAndSearch(t *testing.T) {
	cfg, dir := testConfig(t)

	out := runCommand(t, cfg, "index", filepath.Join(dir, "avatars"))
	if !strings.Contains(out, "Indexed 2 avatars") {
		t.Errorf("unexpected index output: %s", out)
	}

	out = runCommand(t, cfg, "search", "virtualcast")
	if !strings.Contains(out, vrmtest.FixtureTitle) || strings.Contains(out, "Legacy-kun") {
		t.Errorf("unexpected search output: %s", out)
	}

	out = runCommand(t, cfg, "search", "-n", "1", "-db", cfg.Catalog.Path, "kun")
	if !strings.Contains(out, "Legacy-kun") {
		t.Errorf("unexpected search output: %s", out)
	}
}

func TestRun_Usage(t *testing.T) {
	cfg, _ := testConfig(t)

	tests := [][]string{
		nil,
		{"frobnicate"},
		{"info"},
		{"simulate", "-frames"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		if err := run(context.Background(), cfg, args, &out); !errors.Is(err, errUsage) {
			t.Errorf("run(%v) = %v, want errUsage", args, err)
		}
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, []string{"help"}, &out); err != nil {
		t.Errorf("help: %v", err)
	}
	if !strings.Contains(out.String(), "Commands:") {
		t.Error("help should print usage")
	}
}

func TestRun_MissingAvatar(t *testing.T) {
	cfg, _ := testConfig(t)
	var out bytes.Buffer
	err := run(context.Background(), cfg, []string{"info", "nobody.vrm"}, &out)
	if err == nil || errors.Is(err, errUsage) {
		t.Errorf("expected a load error, got %v", err)
	}
}
