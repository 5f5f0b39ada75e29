// Package presets loads the catalogs of one-click edit instructions shown in
// the controls panel: studio styles, camera moves, solid and gradient
// backgrounds, and ready-made scenes.
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

//go:embed schema.json
var catalogSchema string

// Preset is one selectable instruction.
type Preset struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Icon        string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	Swatch      []string `yaml:"swatch,omitempty" json:"swatch,omitempty"`
	Instruction string   `yaml:"instruction" json:"instruction"`
}

// Group is a named section of the catalog.
type Group struct {
	ID      string   `yaml:"id" json:"id"`
	Label   string   `yaml:"label" json:"label"`
	Presets []Preset `yaml:"presets" json:"presets"`
}

// Catalog is the full, immutable set of preset groups.
type Catalog struct {
	Groups []Group `yaml:"groups" json:"groups"`

	index map[string]Preset
}

// Builtin returns the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	return Parse(builtinCatalog)
}

// Load reads a catalog file, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading preset catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset catalog %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("presets", c.Len()).Msg("Loaded preset catalog")
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := validateSchema(&c); err != nil {
		return nil, err
	}

	c.index = make(map[string]Preset)
	groups := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if groups[g.ID] {
			return nil, fmt.Errorf("duplicate group %q", g.ID)
		}
		groups[g.ID] = true
		for _, p := range g.Presets {
			ref := Ref(g.ID, p.ID)
			if _, dup := c.index[ref]; dup {
				return nil, fmt.Errorf("duplicate preset %q", ref)
			}
			p.Instruction = strings.TrimSpace(p.Instruction)
			c.index[ref] = p
		}
	}
	return &c, nil
}

func validateSchema(c *Catalog) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewGoLoader(c),
	)
	if err != nil {
		return fmt.Errorf("validating catalog: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("catalog does not match schema: %s", strings.Join(msgs, "; "))
}

// ErrUnknownPreset is returned for references that name no preset.
var ErrUnknownPreset = errors.New("unknown preset")

// Ref builds the "<group>/<id>" reference of a preset.
func Ref(group, id string) string {
	return group + "/" + id
}

// Lookup resolves a "<group>/<id>" reference.
func (c *Catalog) Lookup(ref string) (Preset, error) {
	p, ok := c.index[strings.TrimSpace(ref)]
	if !ok {
		return Preset{}, fmt.Errorf("%w %q", ErrUnknownPreset, ref)
	}
	return p, nil
}

// Instruction returns the instruction text of a preset reference.
func (c *Catalog) Instruction(ref string) (string, error) {
	p, err := c.Lookup(ref)
	if err != nil {
		return "", err
	}
	return p.Instruction, nil
}

// Group returns a group by id.
func (c *Catalog) Group(id string) (Group, bool) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// Refs lists every preset reference in catalog order.
func (c *Catalog) Refs() []string {
	refs := make([]string, 0, len(c.index))
	for _, g := range c.Groups {
		for _, p := range g.Presets {
			refs = append(refs, Ref(g.ID, p.ID))
		}
	}
	return refs
}

// Len returns the number of presets.
func (c *Catalog) Len() int { return len(c.index) }
