package vrm

import (
	"fmt"
	"os"
)

// Avatar is a loaded avatar of either schema. All accessors present the
// legacy shape; for a current-schema avatar they migrate on demand.
// Accessors are pure: repeated calls return structurally equal values.
type Avatar interface {
	Container() *Container
	// SpecVersion is the schema version string the avatar declares.
	SpecVersion() string
	// Legacy returns the complete legacy-shaped description.
	Legacy() *VRM0

	Meta() Meta
	Humanoid() Humanoid
	BlendShapeGroups() []BlendShapeGroup
	FirstPerson() FirstPerson
	SecondaryAnimation() SecondaryAnimation
	MaterialProperties() []MaterialProperty
	MaterialPropertyNameMap() map[string]MaterialProperty

	isAvatar()
}

// LegacyAvatar is an avatar stored in the legacy schema.
type LegacyAvatar struct {
	container *Container
	vrm       *VRM0
}

// CurrentAvatar is an avatar stored in the current schema.
type CurrentAvatar struct {
	container *Container
	vrm       *VRM1
}

var (
	_ Avatar = (*LegacyAvatar)(nil)
	_ Avatar = (*CurrentAvatar)(nil)
)

// LoadAvatar decodes a container and the avatar description it carries.
// The current schema is selected when its extension key is present,
// otherwise the legacy schema is required.
func LoadAvatar(data []byte) (Avatar, error) {
	c, err := ParseContainer(data)
	if err != nil {
		return nil, err
	}
	return NewAvatar(c)
}

// LoadAvatarFile reads and decodes an avatar file.
func LoadAvatarFile(path string) (Avatar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := LoadAvatar(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return a, nil
}

// NewAvatar detects the schema of an already parsed container.
func NewAvatar(c *Container) (Avatar, error) {
	ext := c.Document.Extensions
	if !ext.IsNull() && ext.Kind() != KindObject {
		return nil, inconsistent(nil, "extensions is a %v, not an object", ext.Kind())
	}
	if ext.Has(ExtensionCurrent) {
		return ParseCurrent(c)
	}
	return ParseLegacy(c)
}

// ParseLegacy reads the legacy schema from c.
func ParseLegacy(c *Container) (*LegacyAvatar, error) {
	raw, ok := c.Document.Extension(ExtensionLegacy)
	if !ok {
		return nil, keyNotFound(ExtensionLegacy)
	}
	v, err := decodeLegacy(raw)
	if err != nil {
		return nil, err
	}
	return &LegacyAvatar{container: c, vrm: v}, nil
}

// ParseCurrent reads the current schema from c.
func ParseCurrent(c *Container) (*CurrentAvatar, error) {
	v, err := decodeCurrent(c.Document)
	if err != nil {
		return nil, err
	}
	return &CurrentAvatar{container: c, vrm: v}, nil
}

func (a *LegacyAvatar) isAvatar() {}

func (a *LegacyAvatar) Container() *Container { return a.container }

// VRM returns the decoded legacy description.
func (a *LegacyAvatar) VRM() *VRM0 { return a.vrm }

func (a *LegacyAvatar) SpecVersion() string {
	switch {
	case a.vrm.SpecVersion != "":
		return a.vrm.SpecVersion
	case a.vrm.Version != "":
		return a.vrm.Version
	default:
		return "0.x"
	}
}

func (a *LegacyAvatar) Legacy() *VRM0 { return a.vrm }

func (a *LegacyAvatar) Meta() Meta { return a.vrm.Meta }

func (a *LegacyAvatar) Humanoid() Humanoid { return a.vrm.Humanoid }

func (a *LegacyAvatar) BlendShapeGroups() []BlendShapeGroup {
	return a.vrm.BlendShapeMaster.BlendShapeGroups
}

func (a *LegacyAvatar) FirstPerson() FirstPerson { return a.vrm.FirstPerson }

func (a *LegacyAvatar) SecondaryAnimation() SecondaryAnimation { return a.vrm.SecondaryAnimation }

func (a *LegacyAvatar) MaterialProperties() []MaterialProperty { return a.vrm.MaterialProperties }

func (a *LegacyAvatar) MaterialPropertyNameMap() map[string]MaterialProperty {
	return a.vrm.MaterialPropertyNameMap()
}

func (a *CurrentAvatar) isAvatar() {}

func (a *CurrentAvatar) Container() *Container { return a.container }

// VRM returns the decoded current-schema description.
func (a *CurrentAvatar) VRM() *VRM1 { return a.vrm }

func (a *CurrentAvatar) SpecVersion() string { return a.vrm.SpecVersion }

func (a *CurrentAvatar) Legacy() *VRM0 { return Migrate(a.container.Document, a.vrm) }

func (a *CurrentAvatar) Meta() Meta { return migrateMeta(a.vrm.Meta) }

func (a *CurrentAvatar) Humanoid() Humanoid { return migrateHumanoid(a.vrm.Humanoid) }

func (a *CurrentAvatar) BlendShapeGroups() []BlendShapeGroup {
	return migrateExpressions(a.container.Document, a.vrm.Expressions).BlendShapeGroups
}

func (a *CurrentAvatar) FirstPerson() FirstPerson {
	return migrateFirstPerson(a.vrm.FirstPerson, a.vrm.LookAt)
}

func (a *CurrentAvatar) SecondaryAnimation() SecondaryAnimation {
	return migrateSpringBone(a.vrm.SpringBone)
}

func (a *CurrentAvatar) MaterialProperties() []MaterialProperty {
	return migrateMaterials(a.container.Document, a.vrm.MToon)
}

func (a *CurrentAvatar) MaterialPropertyNameMap() map[string]MaterialProperty {
	m := &VRM0{MaterialProperties: a.MaterialProperties()}
	return m.MaterialPropertyNameMap()
}
