package mcptools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/metrics"
	"github.com/fpang/nano-studio/internal/presets"
	"github.com/fpang/nano-studio/internal/studio"
)

func TestMain(m *testing.M) {
	metrics.Configure(io.Discard, false)
	os.Exit(m.Run())
}

type editorFunc func(ctx context.Context, src imaging.Image, instruction string) (imaging.Image, error)

func (f editorFunc) EditImage(ctx context.Context, src imaging.Image, instruction string) (imaging.Image, error) {
	return f(ctx, src, instruction)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.NRGBA{R: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// connect starts the tool server on an in-memory transport and returns a
// connected client session.
func connect(t *testing.T, editor studio.Editor) (*mcp.ClientSession, *Server) {
	t.Helper()
	catalog, err := presets.Builtin()
	if err != nil {
		t.Fatalf("presets.Builtin() error = %v", err)
	}
	store := studio.NewStore(editor, studio.Options{}, 0)
	t.Cleanup(store.Close)

	tools := New(store, catalog)
	tools.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := tools.MCPServer("test").Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect() error = %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error = %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs, tools
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error = %v", name, err)
	}
	if out != nil && !res.IsError {
		if err := json.Unmarshal([]byte(resultText(res)), out); err != nil {
			t.Fatalf("decoding %s result %q: %v", name, resultText(res), err)
		}
	}
	return res
}

func resultText(res *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestListTools(t *testing.T) {
	cs, _ := connect(t, editorFunc(nil))
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"list_presets", "open_image", "edit_image", "export_image", "reset_session"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestListPresets(t *testing.T) {
	cs, _ := connect(t, editorFunc(nil))

	var all listPresetsOutput
	call(t, cs, "list_presets", map[string]any{}, &all)
	if len(all.Presets) != 33 {
		t.Errorf("list_presets returned %d presets, want 33", len(all.Presets))
	}

	var colors listPresetsOutput
	call(t, cs, "list_presets", map[string]any{"group": "colors"}, &colors)
	for _, p := range colors.Presets {
		if !strings.HasPrefix(p.Ref, "colors/") {
			t.Errorf("preset %s outside requested group", p.Ref)
		}
	}

	if res := call(t, cs, "list_presets", map[string]any{"group": "nope"}, nil); !res.IsError {
		t.Error("unknown group should be a tool error")
	}
}

func TestEditWorkflow(t *testing.T) {
	var instructions []string
	edited := testPNG(t, 10, 8)
	editor := editorFunc(func(ctx context.Context, src imaging.Image, instruction string) (imaging.Image, error) {
		instructions = append(instructions, instruction)
		return imaging.Image{Data: edited, MIMEType: "image/png"}, nil
	})
	cs, tools := connect(t, editor)

	dir := t.TempDir()
	input := filepath.Join(dir, "mug.png")
	if err := os.WriteFile(input, testPNG(t, 6, 6), 0o644); err != nil {
		t.Fatal(err)
	}

	var opened sessionOutput
	call(t, cs, "open_image", map[string]any{"path": input}, &opened)
	if opened.SessionID == "" || opened.HistoryLength != 1 || opened.MIMEType != "image/png" {
		t.Fatalf("open_image = %+v", opened)
	}

	var afterEdit sessionOutput
	call(t, cs, "edit_image", map[string]any{"session_id": opened.SessionID, "instruction": "Add soft shadow"}, &afterEdit)
	if afterEdit.HistoryLength != 2 || afterEdit.Status != "success" {
		t.Errorf("edit_image = %+v", afterEdit)
	}

	ref := "styles/" + mustGroup(t, tools, "styles").Presets[0].ID
	call(t, cs, "edit_image", map[string]any{"session_id": opened.SessionID, "preset": ref}, &afterEdit)
	want, _ := tools.catalog.Instruction(ref)
	if len(instructions) != 2 || instructions[1] != want {
		t.Errorf("editor instructions = %q, want preset text last", instructions)
	}

	var exported exportImageOutput
	call(t, cs, "export_image", map[string]any{
		"session_id": opened.SessionID,
		"format":     "jpeg",
		"scale":      0.5,
		"path":       dir,
	}, &exported)
	if exported.Width != 5 || exported.Height != 4 {
		t.Errorf("export size = %dx%d, want 5x4", exported.Width, exported.Height)
	}
	if want := filepath.Join(dir, "nano-studio-2026-03-04.jpeg"); exported.Path != want {
		t.Errorf("export path = %q, want %q", exported.Path, want)
	}
	if _, err := os.Stat(exported.Path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}

	var reset sessionOutput
	call(t, cs, "reset_session", map[string]any{"session_id": opened.SessionID}, &reset)
	if reset.HistoryLength != 0 || reset.Status != "idle" {
		t.Errorf("reset_session = %+v", reset)
	}
}

func TestToolErrors(t *testing.T) {
	failing := editorFunc(func(ctx context.Context, src imaging.Image, instruction string) (imaging.Image, error) {
		return imaging.Image{}, errors.New("no image returned (text: I can't do that)")
	})
	cs, _ := connect(t, failing)

	dir := t.TempDir()
	input := filepath.Join(dir, "shoe.png")
	os.WriteFile(input, testPNG(t, 2, 2), 0o644)
	var opened sessionOutput
	call(t, cs, "open_image", map[string]any{"path": input}, &opened)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantSub string
	}{
		{"missing file", "open_image", map[string]any{"path": filepath.Join(dir, "gone.png")}, studio.MsgReadFailed},
		{"unknown session", "edit_image", map[string]any{"session_id": "nope", "instruction": "x"}, "unknown session"},
		{"blank instruction", "edit_image", map[string]any{"session_id": opened.SessionID}, "instruction is empty"},
		{"unknown preset", "edit_image", map[string]any{"session_id": opened.SessionID, "preset": "styles/nope"}, "unknown preset"},
		{"editor failure", "edit_image", map[string]any{"session_id": opened.SessionID, "instruction": "x"}, "I can't do that"},
		{"bad format", "export_image", map[string]any{"session_id": opened.SessionID, "format": "gif"}, "unsupported export format"},
		{"bad scale", "export_image", map[string]any{"session_id": opened.SessionID, "scale": 9}, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, cs, tt.tool, tt.args, nil)
			if !res.IsError {
				t.Fatalf("%s should fail", tt.tool)
			}
			if text := resultText(res); !strings.Contains(text, tt.wantSub) {
				t.Errorf("error text = %q, want it to contain %q", text, tt.wantSub)
			}
		})
	}
}

func mustGroup(t *testing.T, s *Server, id string) presets.Group {
	t.Helper()
	g, ok := s.catalog.Group(id)
	if !ok {
		t.Fatalf("group %s missing", id)
	}
	return g
}

func TestOpenImageFailureMarksSession(t *testing.T) {
	cs, srv := connect(t, nil)

	dir := t.TempDir()
	input := filepath.Join(dir, "mug.png")
	os.WriteFile(input, testPNG(t, 2, 2), 0o644)
	var opened sessionOutput
	call(t, cs, "open_image", map[string]any{"path": input}, &opened)

	res := call(t, cs, "open_image", map[string]any{"path": filepath.Join(dir, "gone.png"), "session_id": opened.SessionID}, nil)
	if !res.IsError {
		t.Fatal("open_image of a missing file should fail")
	}

	sess, err := srv.store.Get(opened.SessionID)
	if err != nil {
		t.Fatalf("store.Get() error = %v", err)
	}
	snap := sess.Snapshot()
	if snap.Status != studio.StatusError || snap.Error != studio.MsgReadFailed {
		t.Errorf("status = %v, error = %q; want error %q", snap.Status, snap.Error, studio.MsgReadFailed)
	}
	if snap.HistoryLen != 1 {
		t.Errorf("HistoryLen = %d, want the earlier image kept", snap.HistoryLen)
	}
}
