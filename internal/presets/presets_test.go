package presets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}

	wantSizes := map[string]int{
		"styles":    15,
		"camera":    5,
		"colors":    6,
		"gradients": 3,
		"scenes":    4,
	}
	for id, want := range wantSizes {
		g, ok := c.Group(id)
		if !ok {
			t.Errorf("Group(%q) missing", id)
			continue
		}
		if len(g.Presets) != want {
			t.Errorf("Group(%q) has %d presets, want %d", id, len(g.Presets), want)
		}
	}
	if c.Len() != 33 {
		t.Errorf("Len() = %d, want 33", c.Len())
	}
	if got := len(c.Refs()); got != c.Len() {
		t.Errorf("len(Refs()) = %d, want %d", got, c.Len())
	}
}

func TestLookup(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"colors/white", "Change background to pure white", false},
		{"camera/dutch", "Add a dutch angle tilt for a dynamic, energetic look", false},
		{" scenes/marble ", "Place object on a luxury white marble surface with reflections", false},
		{"styles/nature", "Place the object on a mossy rock in a forest, dappled sunlight, bokeh background", false},
		{"scenes/nature", "Place object in a misty forest floor with shallow depth of field", false},
		{"styles/unknown", "", true},
		{"white", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := c.Instruction(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Instruction(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Instruction(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantSub string
	}{
		{
			name:    "not yaml",
			yaml:    "groups: [",
			wantSub: "parsing catalog",
		},
		{
			name:    "no groups",
			yaml:    "groups: []",
			wantSub: "schema",
		},
		{
			name: "blank instruction",
			yaml: `
groups:
  - id: styles
    label: Styles
    presets:
      - id: empty
        label: Empty
        instruction: "   "
`,
			wantSub: "schema",
		},
		{
			name: "bad swatch",
			yaml: `
groups:
  - id: colors
    label: Colors
    presets:
      - id: pink
        label: Pink
        swatch: ["pink"]
        instruction: Change background to pink
`,
			wantSub: "schema",
		},
		{
			name: "duplicate preset",
			yaml: `
groups:
  - id: colors
    label: Colors
    presets:
      - id: pink
        label: Pink
        instruction: Change background to pink
      - id: pink
        label: Pink again
        instruction: Change background to hot pink
`,
			wantSub: "duplicate preset",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yml")
	custom := `
groups:
  - id: brand
    label: Brand looks
    presets:
      - id: teal
        label: Brand teal
        swatch: ["#008080"]
        instruction: Change background to our brand teal
`
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, _ := c.Instruction("brand/teal"); got != "Change background to our brand teal" {
		t.Errorf("Instruction(brand/teal) = %q", got)
	}
	if _, err := c.Lookup("colors/white"); err == nil {
		t.Error("override catalog should replace the built-in one")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}
