package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/nano-studio/internal/presets"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{5 * time.Second, "0:05"},
		{90 * time.Second, "1:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{25 << 20, "25.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestResolveImageFile(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "Bottle.PNG")
	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(png, []byte("x"), 0o644)
	os.WriteFile(txt, []byte("x"), 0o644)

	tests := []struct {
		name     string
		path     string
		wantMIME string
		wantErr  string
	}{
		{"png upper-case ext", png, "image/png", ""},
		{"missing", filepath.Join(dir, "gone.jpg"), "", "file not found"},
		{"directory", dir, "", "is a directory"},
		{"unsupported", txt, "", "unsupported image type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, mimeType, err := ResolveImageFile(tt.path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ResolveImageFile() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveImageFile() error = %v", err)
			}
			if mimeType != tt.wantMIME {
				t.Errorf("mimeType = %q, want %q", mimeType, tt.wantMIME)
			}
			if !filepath.IsAbs(path) {
				t.Errorf("path = %q, want absolute", path)
			}
		})
	}
}

func TestPresetItems(t *testing.T) {
	catalog, err := presets.Builtin()
	if err != nil {
		t.Fatalf("presets.Builtin() error = %v", err)
	}
	groups := groupItems(catalog)
	if len(groups) != len(catalog.Groups) {
		t.Fatalf("groupItems() = %d items, want %d", len(groups), len(catalog.Groups))
	}
	for i, g := range catalog.Groups {
		if !strings.HasPrefix(groups[i], g.Label) {
			t.Errorf("groupItems()[%d] = %q, want prefix %q", i, groups[i], g.Label)
		}
		if items := presetItems(g); len(items) != len(g.Presets) {
			t.Errorf("presetItems(%s) = %d items, want %d", g.ID, len(items), len(g.Presets))
		}
	}
}

func TestSpinnerPlain(t *testing.T) {
	var buf bytes.Buffer
	s := startSpinner(&buf, "Editing", true)
	s.Stop()
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Editing...") || strings.Count(out, "finished in") != 1 {
		t.Errorf("plain spinner output = %q", out)
	}
}

func TestSpinnerBar(t *testing.T) {
	var buf bytes.Buffer
	s := startSpinner(&buf, "Editing", false)
	time.Sleep(250 * time.Millisecond)
	if elapsed := s.Stop(); elapsed < 200*time.Millisecond {
		t.Errorf("Stop() = %v, want at least 200ms", elapsed)
	}
}
