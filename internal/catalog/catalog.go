// Package catalog stores avatar summaries in a SQLite database so a large
// collection can be searched without parsing every file.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Faultbox/vrmkit/internal/library"
	"github.com/Faultbox/vrmkit/internal/logger"
	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// ErrNotFound is returned by Get for an unknown path.
var ErrNotFound = errors.New("catalog entry not found")

// AvatarSummary is one catalog row.
type AvatarSummary struct {
	ID          uint   `gorm:"primarykey" json:"-"`
	Path        string `gorm:"uniqueIndex;not null" json:"path"`
	Size        int64  `json:"size"`
	Schema      string `json:"schema"`
	SpecVersion string `json:"specVersion"`

	Title       string `gorm:"index" json:"title"`
	Author      string `gorm:"index" json:"author"`
	Version     string `json:"version"`
	LicenseName string `json:"licenseName"`
	Commercial  string `json:"commercialUssageName"`

	NodeCount          int `json:"nodeCount"`
	BoneCount          int `json:"boneCount"`
	BlendShapeCount    int `json:"blendShapeCount"`
	SpringChainCount   int `json:"springChainCount"`
	ColliderGroupCount int `json:"colliderGroupCount"`
	MaterialCount      int `json:"materialCount"`

	HasThumbnail bool `json:"hasThumbnail"`

	// BlendShapes lists blend-shape group names in declaration order.
	BlendShapes datatypes.JSON `json:"blendShapes"`

	IndexedAt time.Time `json:"indexedAt"`
}

// BlendShapeNames decodes the BlendShapes column.
func (s *AvatarSummary) BlendShapeNames() []string {
	var names []string
	if len(s.BlendShapes) > 0 {
		_ = json.Unmarshal(s.BlendShapes, &names)
	}
	return names
}

// Summarize builds the catalog row for an avatar loaded from path.
func Summarize(path string, size int64, a vrm.Avatar) AvatarSummary {
	meta := a.Meta()
	groups := a.BlendShapeGroups()
	sa := a.SecondaryAnimation()

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	blendShapes, _ := json.Marshal(names)

	s := AvatarSummary{
		Path:               path,
		Size:               size,
		SpecVersion:        a.SpecVersion(),
		Title:              meta.Title,
		Author:             meta.Author,
		Version:            meta.Version,
		LicenseName:        meta.LicenseName,
		Commercial:         meta.CommercialUssageName,
		BoneCount:          len(a.Humanoid().HumanBones),
		BlendShapeCount:    len(groups),
		SpringChainCount:   len(sa.BoneGroups),
		ColliderGroupCount: len(sa.ColliderGroups),
		MaterialCount:      len(a.MaterialProperties()),
		BlendShapes:        datatypes.JSON(blendShapes),
	}
	if doc := a.Container().Document; doc != nil {
		s.NodeCount = len(doc.Nodes)
	}
	if _, err := vrm.Thumbnail(a); err == nil {
		s.HasThumbnail = true
	}
	if _, ok := a.(*vrm.CurrentAvatar); ok {
		s.Schema = "current"
	} else {
		s.Schema = "legacy"
	}
	return s
}

// Catalog is an open catalog database.
type Catalog struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens or creates the catalog at path and migrates its schema.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}

	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&AvatarSummary{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating catalog schema: %w", err)
	}

	return &Catalog{db: db, log: logger.Named("catalog")}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert inserts s or replaces the row with the same path.
func (c *Catalog) Upsert(s *AvatarSummary) error {
	if s.IndexedAt.IsZero() {
		s.IndexedAt = time.Now().UTC()
	}
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("storing %s: %w", s.Path, err)
	}
	return nil
}

// Get returns the row for path.
func (c *Catalog) Get(path string) (*AvatarSummary, error) {
	var s AvatarSummary
	err := c.db.Where("path = ?", path).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Count returns the number of rows.
func (c *Catalog) Count() (int64, error) {
	var n int64
	err := c.db.Model(&AvatarSummary{}).Count(&n).Error
	return n, err
}

// Remove deletes the row for path. Removing an absent path is not an error.
func (c *Catalog) Remove(path string) error {
	return c.db.Where("path = ?", path).Delete(&AvatarSummary{}).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns rows whose title or author contains text, ignoring case,
// ordered by title then path. An empty text matches every row. A limit of
// zero or less means no limit.
func (c *Catalog) Search(text string, limit int) ([]AvatarSummary, error) {
	q := c.db.Model(&AvatarSummary{})
	if text != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []AvatarSummary
	if err := q.Order("title").Order("path").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	return out, nil
}

// Index loads every avatar file named by targets (files, or directories
// walked for avatar files) and stores its summary. It returns the number
// of stored rows; per-file failures are collected and do not stop the run.
func (c *Catalog) Index(ctx context.Context, lib *library.Manager, targets ...string) (int, error) {
	var (
		stored int
		errs   error
	)

	for _, path := range expand(targets, &errs) {
		if err := ctx.Err(); err != nil {
			return stored, multierr.Append(errs, err)
		}

		s, err := c.indexFile(ctx, lib, path)
		if err != nil {
			c.log.Warn("index failed", zap.String("path", path), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		c.log.Debug("indexed",
			zap.String("path", path),
			zap.String("title", s.Title),
			zap.Int("bones", s.BoneCount))
		stored++
	}

	c.log.Info("index finished", zap.Int("stored", stored), zap.Int("failed", len(multierr.Errors(errs))))
	return stored, errs
}

func (c *Catalog) indexFile(ctx context.Context, lib *library.Manager, path string) (*AvatarSummary, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	e, err := lib.Load(ctx, abs)
	if err != nil {
		return nil, err
	}
	s := Summarize(abs, info.Size(), e.Avatar)
	if err := c.Upsert(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// expand turns directories into the avatar files below them.
func expand(targets []string, errs *error) []string {
	var files []string
	for _, t := range targets {
		info, err := os.Stat(t)
		if err != nil {
			*errs = multierr.Append(*errs, err)
			continue
		}
		if !info.IsDir() {
			files = append(files, t)
			continue
		}
		err = filepath.WalkDir(t, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), library.Extension) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			*errs = multierr.Append(*errs, fmt.Errorf("walking %s: %w", t, err))
		}
	}
	return files
}
