package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vrmkit/internal/catalog"
	"github.com/Faultbox/vrmkit/internal/config"
	"github.com/Faultbox/vrmkit/internal/logger"
	"github.com/Faultbox/vrmkit/pkg/scene"
	"github.com/Faultbox/vrmkit/pkg/springbone"
	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// newFlagSet returns a flag set that reports problems instead of exiting.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vrmtool %s\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string, minArgs int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < minArgs {
		fs.Usage()
		return errUsage
	}
	return nil
}

func (a *app) cmdInfo(ctx context.Context, args []string) error {
	fs := newFlagSet("info", "info <file.vrm>")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	e, err := a.lib.Load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	av := e.Avatar
	doc := av.Container().Document
	meta := av.Meta()
	fp := av.FirstPerson()
	sa := av.SecondaryAnimation()

	w := a.out
	fmt.Fprintf(w, "File:     %s\n", e.Path)
	fmt.Fprintf(w, "Schema:   %s (VRM %s)\n", e.Schema(), av.SpecVersion())
	if doc.Asset.Generator != "" {
		fmt.Fprintf(w, "Exporter: %s\n", doc.Asset.Generator)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Meta:")
	fmt.Fprintf(w, "  Title:      %s\n", meta.Title)
	fmt.Fprintf(w, "  Version:    %s\n", meta.Version)
	fmt.Fprintf(w, "  Author:     %s\n", meta.Author)
	fmt.Fprintf(w, "  License:    %s\n", meta.LicenseName)
	fmt.Fprintf(w, "  Allowed:    %s\n", meta.AllowedUserName)
	fmt.Fprintf(w, "  Violent:    %s\n", meta.ViolentUssageName)
	fmt.Fprintf(w, "  Sexual:     %s\n", meta.SexualUssageName)
	fmt.Fprintf(w, "  Commercial: %s\n", meta.CommercialUssageName)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Document:")
	fmt.Fprintf(w, "  %-12s %d\n", "Nodes", len(doc.Nodes))
	fmt.Fprintf(w, "  %-12s %d\n", "Meshes", len(doc.Meshes))
	fmt.Fprintf(w, "  %-12s %d\n", "Materials", len(doc.Materials))
	fmt.Fprintf(w, "  %-12s %d\n", "Textures", len(doc.Textures))
	fmt.Fprintf(w, "  %-12s %d\n", "Images", len(doc.Images))
	fmt.Fprintf(w, "  %-12s %d\n", "Skins", len(doc.Skins))
	fmt.Fprintf(w, "  %-12s %d bytes\n", "Binary", len(av.Container().Binary))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Avatar:")
	fmt.Fprintf(w, "  %-16s %d\n", "Humanoid bones", len(av.Humanoid().HumanBones))
	fmt.Fprintf(w, "  %-16s %d\n", "Blend shapes", len(av.BlendShapeGroups()))
	fmt.Fprintf(w, "  %-16s %d\n", "Spring chains", len(sa.BoneGroups))
	fmt.Fprintf(w, "  %-16s %d\n", "Collider groups", len(sa.ColliderGroups))
	fmt.Fprintf(w, "  %-16s %d\n", "MToon materials", countShader(av.MaterialProperties(), vrm.ShaderMToon))
	fmt.Fprintf(w, "  %-16s %d (%s)\n", "First person", fp.FirstPersonBone, fp.LookAtTypeName)

	if img, err := vrm.Thumbnail(av); err == nil {
		fmt.Fprintf(w, "  %-16s %s %dx%d\n", "Thumbnail", img.MimeType, img.Width, img.Height)
	} else if !errors.Is(err, vrm.ErrThumbnailNotFound) {
		fmt.Fprintf(w, "  %-16s invalid: %v\n", "Thumbnail", err)
	}
	return nil
}

func countShader(props []vrm.MaterialProperty, shader string) int {
	n := 0
	for _, p := range props {
		if p.Shader == shader {
			n++
		}
	}
	return n
}

func (a *app) cmdMigrate(ctx context.Context, args []string) error {
	fs := newFlagSet("migrate", "migrate [-format json|yaml] <file.vrm>")
	format := fs.String("format", a.cfg.Output.Format, "Output format (json|yaml)")
	indent := fs.Int("indent", a.cfg.Output.Indent, "Indent width")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	legacy, err := a.lib.Legacy(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return writeDocument(a.out, legacy, *format, *indent)
}

// writeDocument encodes v as JSON or YAML. YAML output goes through Value
// so keys keep the JSON field names and order.
func writeDocument(w io.Writer, v any, format string, indent int) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", strings.Repeat(" ", indent))
		return enc.Encode(v)
	case config.FormatYAML:
		val, err := vrm.ValueOf(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		if indent > 0 {
			enc.SetIndent(indent)
		}
		if err := enc.Encode(val); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func (a *app) cmdSimulate(ctx context.Context, args []string) error {
	fs := newFlagSet("simulate", "simulate [-frames N] [-fps F] [-gravity S] <file.vrm>")
	frames := fs.Int("frames", a.cfg.Physics.Frames, "Number of frames to simulate")
	fps := fs.Float64("fps", a.cfg.Physics.FPS, "Frames per second")
	gravity := fs.Float64("gravity", a.cfg.Physics.GravityScale, "Gravity power multiplier")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	if *fps <= 0 || *frames < 0 {
		return fmt.Errorf("invalid -fps %g / -frames %d", *fps, *frames)
	}

	e, err := a.lib.Load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	sc, err := scene.New(e.Avatar.Container().Document)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}

	sys := springbone.NewSystem(e.Avatar, sc)
	for _, c := range sys.Chains() {
		c.GravityPower *= float32(*gravity)
	}

	rest := make([][]springbone.JointState, len(sys.Chains()))
	for i, c := range sys.Chains() {
		rest[i] = c.Joints()
	}

	start := time.Now()
	var timer springbone.Timer
	step := time.Duration(float64(time.Second) / *fps)
	for f := 0; f < *frames; f++ {
		sys.Update(timer.Delta(time.Duration(f) * step))
	}
	elapsed := time.Since(start)

	logger.Debug("simulation finished",
		zap.String("path", e.Path),
		zap.Int("chains", len(sys.Chains())),
		zap.Int("joints", sys.JointCount()),
		zap.Int("frames", *frames),
		zap.Duration("elapsed", elapsed))

	fmt.Fprintf(a.out, "Avatar:  %s\n", e.Path)
	fmt.Fprintf(a.out, "Frames:  %d at %g fps (%.2fs simulated)\n", *frames, *fps, float64(*frames) / *fps)
	fmt.Fprintf(a.out, "Chains:  %d, joints: %d\n", len(sys.Chains()), sys.JointCount())
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "  %-4s %-20s %6s %10s\n", "#", "comment", "joints", "max drift")
	for i, c := range sys.Chains() {
		fmt.Fprintf(a.out, "  %-4d %-20s %6d %9.4fm\n", i, c.Comment, len(c.Joints()), maxDrift(rest[i], c.Joints()))
	}
	return nil
}

// maxDrift returns the largest tail displacement between two joint
// snapshots of the same chain.
func maxDrift(before, after []springbone.JointState) float32 {
	var m float32
	for i := range min(len(before), len(after)) {
		if d := before[i].CurrentTail.Distance(after[i].CurrentTail); d > m {
			m = d
		}
	}
	return m
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

func (a *app) cmdThumbnail(ctx context.Context, args []string) error {
	fs := newFlagSet("thumbnail", "thumbnail <file.vrm> [output]")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	e, err := a.lib.Load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	img, err := vrm.Thumbnail(e.Avatar)
	if err != nil {
		return err
	}

	output := fs.Arg(1)
	if output == "" {
		ext, ok := imageExtensions[img.MimeType]
		if !ok {
			ext = ".bin"
		}
		base := filepath.Base(e.Path)
		output = strings.TrimSuffix(base, filepath.Ext(base)) + ext
	}
	if err := os.WriteFile(output, img.Data, 0644); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Wrote %s (%s, %dx%d, %d bytes)\n", output, img.MimeType, img.Width, img.Height, len(img.Data))
	return nil
}

func openCatalog(path string) (*catalog.Catalog, error) {
	c, err := catalog.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog opened", zap.String("path", path))
	return c, nil
}

func (a *app) cmdIndex(ctx context.Context, args []string) error {
	fs := newFlagSet("index", "index [-db path] <dir|file>...")
	db := fs.String("db", a.cfg.Catalog.Path, "Catalog database path")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	c, err := openCatalog(*db)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Index(ctx, a.lib, fs.Args()...)
	fmt.Fprintf(a.out, "Indexed %d avatars into %s\n", n, *db)
	if err != nil {
		errs := multierr.Errors(err)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %v\n", e)
		}
		return fmt.Errorf("%d files failed", len(errs))
	}
	return nil
}

func (a *app) cmdSearch(args []string) error {
	fs := newFlagSet("search", "search [-db path] [-n N] <text>")
	db := fs.String("db", a.cfg.Catalog.Path, "Catalog database path")
	limit := fs.Int("n", 0, "Limit output to N rows (0 = all)")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	c, err := openCatalog(*db)
	if err != nil {
		return err
	}
	defer c.Close()

	rows, err := c.Search(strings.Join(fs.Args(), " "), *limit)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Fprintf(a.out, "%-24s %-24s %-8s %3d bones  %s\n", r.Title, r.Author, r.Schema, r.BoneCount, r.Path)
	}
	fmt.Fprintf(os.Stderr, "\n(%d avatars matched)\n", len(rows))
	return nil
}
