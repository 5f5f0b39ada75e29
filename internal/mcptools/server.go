// Package mcptools exposes studio sessions as Model Context Protocol tools so
// an assistant can open, edit and export product photos.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/presets"
	"github.com/fpang/nano-studio/internal/studio"
)

// Server holds the sessions driven by MCP tool calls.
type Server struct {
	store   *studio.Store
	catalog *presets.Catalog
	now     func() time.Time
}

// New creates the tool set over store.
func New(store *studio.Store, catalog *presets.Catalog) *Server {
	return &Server{store: store, catalog: catalog, now: time.Now}
}

// MCPServer builds an MCP server with every tool registered.
func (s *Server) MCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "nano-studio", Version: version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_presets",
		Description: "List the one-click edit presets. Pass a preset reference (group/id) to edit_image.",
	}, s.listPresets)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "open_image",
		Description: "Load a product photo from a local path into a new or existing editing session.",
	}, s.openImage)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "edit_image",
		Description: "Apply a natural-language edit (or a preset) to the session's current image.",
	}, s.editImage)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "export_image",
		Description: "Write the session's current image to disk as PNG or JPEG, optionally scaled.",
	}, s.exportImage)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "reset_session",
		Description: "Discard the session's original, edits and history.",
	}, s.resetSession)

	return srv
}

type listPresetsInput struct {
	Group string `json:"group,omitempty" jsonschema:"only list presets of this group (styles, camera, colors, gradients, scenes)"`
}

type presetInfo struct {
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	Instruction string `json:"instruction"`
}

type listPresetsOutput struct {
	Presets []presetInfo `json:"presets"`
}

func (s *Server) listPresets(ctx context.Context, req *mcp.CallToolRequest, in listPresetsInput) (*mcp.CallToolResult, listPresetsOutput, error) {
	out := listPresetsOutput{Presets: []presetInfo{}}
	for _, g := range s.catalog.Groups {
		if in.Group != "" && g.ID != in.Group {
			continue
		}
		for _, p := range g.Presets {
			out.Presets = append(out.Presets, presetInfo{
				Ref:         presets.Ref(g.ID, p.ID),
				Label:       p.Label,
				Instruction: p.Instruction,
			})
		}
	}
	if in.Group != "" && len(out.Presets) == 0 {
		return nil, out, fmt.Errorf("unknown preset group %q", in.Group)
	}
	return textResult(out), out, nil
}

type openImageInput struct {
	Path      string `json:"path" jsonschema:"local path of the image file"`
	SessionID string `json:"session_id,omitempty" jsonschema:"existing session to load into; a new session is created when empty"`
}

type sessionOutput struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	MIMEType      string `json:"mime_type,omitempty"`
	HistoryLength int    `json:"history_length"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
}

func (s *Server) openImage(ctx context.Context, req *mcp.CallToolRequest, in openImageInput) (*mcp.CallToolResult, sessionOutput, error) {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return nil, sessionOutput{}, errors.New("path is required")
	}

	var sess *studio.Session
	if in.SessionID != "" {
		var err error
		if sess, err = s.store.Get(in.SessionID); err != nil {
			return nil, sessionOutput{}, err
		}
	} else {
		sess = s.store.Create()
	}

	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" && !imaging.IsImageMIME(mimeType) {
		return nil, sessionOutput{}, fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	if err := sess.UploadFile(ctx, path); err != nil {
		return nil, sessionOutput{}, fmt.Errorf("session %s: %w", sess.ID(), err)
	}

	log.Info().Str("session_id", sess.ID()).Str("path", path).Msg("Image opened via MCP")
	out := toOutput(sess.Snapshot())
	return textResult(out), out, nil
}

type editImageInput struct {
	SessionID   string `json:"session_id" jsonschema:"session returned by open_image"`
	Instruction string `json:"instruction,omitempty" jsonschema:"what to change, in plain language"`
	Preset      string `json:"preset,omitempty" jsonschema:"preset reference group/id, used when instruction is empty"`
}

func (s *Server) editImage(ctx context.Context, req *mcp.CallToolRequest, in editImageInput) (*mcp.CallToolResult, sessionOutput, error) {
	sess, err := s.store.Get(in.SessionID)
	if err != nil {
		return nil, sessionOutput{}, err
	}

	instruction := strings.TrimSpace(in.Instruction)
	if instruction == "" && in.Preset != "" {
		if instruction, err = s.catalog.Instruction(in.Preset); err != nil {
			return nil, sessionOutput{}, err
		}
	}

	if _, err := sess.Generate(ctx, instruction); err != nil {
		if msg := sess.Snapshot().Error; msg != "" {
			return nil, sessionOutput{}, errors.New(msg)
		}
		return nil, sessionOutput{}, err
	}

	out := toOutput(sess.Snapshot())
	return textResult(out), out, nil
}

type exportImageInput struct {
	SessionID string  `json:"session_id" jsonschema:"session returned by open_image"`
	Format    string  `json:"format,omitempty" jsonschema:"png (default) or jpeg"`
	Scale     float64 `json:"scale,omitempty" jsonschema:"scale factor in (0, 4]; 1 when omitted"`
	Path      string  `json:"path,omitempty" jsonschema:"output file or directory; defaults to a dated file name in the working directory"`
}

type exportImageOutput struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

func (s *Server) exportImage(ctx context.Context, req *mcp.CallToolRequest, in exportImageInput) (*mcp.CallToolResult, exportImageOutput, error) {
	sess, err := s.store.Get(in.SessionID)
	if err != nil {
		return nil, exportImageOutput{}, err
	}

	format := imaging.FormatPNG
	if in.Format != "" {
		if format, err = imaging.ParseFormat(in.Format); err != nil {
			return nil, exportImageOutput{}, err
		}
	}
	scale := in.Scale
	if scale == 0 {
		scale = 1
	}

	exported, err := sess.Export(imaging.ExportOptions{Format: format, Scale: scale})
	if err != nil {
		return nil, exportImageOutput{}, err
	}

	path := imaging.OutputPath(in.Path, imaging.FileName(format, s.now()))
	if err := os.WriteFile(path, exported.Data, 0o644); err != nil {
		return nil, exportImageOutput{}, fmt.Errorf("writing %s: %w", path, err)
	}

	out := exportImageOutput{Path: path, Width: exported.Width, Height: exported.Height, Bytes: len(exported.Data)}
	log.Info().Str("session_id", sess.ID()).Str("path", path).Int("bytes", out.Bytes).Msg("Image exported via MCP")
	return textResult(out), out, nil
}

type resetSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"session to clear"`
}

func (s *Server) resetSession(ctx context.Context, req *mcp.CallToolRequest, in resetSessionInput) (*mcp.CallToolResult, sessionOutput, error) {
	sess, err := s.store.Get(in.SessionID)
	if err != nil {
		return nil, sessionOutput{}, err
	}
	sess.Reset()
	out := toOutput(sess.Snapshot())
	return textResult(out), out, nil
}

func toOutput(snap studio.Snapshot) sessionOutput {
	out := sessionOutput{
		SessionID:     snap.ID,
		Status:        snap.Status.String(),
		MIMEType:      snap.MIMEType,
		HistoryLength: snap.HistoryLen,
	}
	if snap.Info != nil {
		out.Width, out.Height = snap.Info.Width, snap.Info.Height
	}
	return out
}

func textResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(fmt.Sprint(v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}
