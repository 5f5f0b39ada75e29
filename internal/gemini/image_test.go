package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fpang/nano-studio/internal/imaging"
)

// fakeGemini serves generateContent with a canned body and records the last
// request body.
func fakeGemini(t *testing.T, status int, body string) (*ImageClient, *string) {
	t.Helper()
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := NewImageClient(context.Background(), Config{
		APIKey:  "test-key",
		Model:   ModelGemini25FlashImage,
		BaseURL: srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("NewImageClient() error = %v", err)
	}
	return client, &lastBody
}

func imageResponse(data []byte, mimeType string) string {
	mime := ""
	if mimeType != "" {
		mime = fmt.Sprintf(`,"mimeType":%q`, mimeType)
	}
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Here you go."},{"inlineData":{"data":%q%s}}]},"finishReason":"STOP"}]}`,
		base64.StdEncoding.EncodeToString(data), mime)
}

func TestEditImageReturnsInlineImage(t *testing.T) {
	want := []byte("edited-webp-bytes")
	client, lastBody := fakeGemini(t, http.StatusOK, imageResponse(want, "image/webp"))

	src := imaging.Image{Data: []byte("original-png"), MIMEType: "image/png"}
	got, err := client.EditImage(context.Background(), src, "Change background to pure white")
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if string(got.Data) != string(want) {
		t.Errorf("EditImage() data = %q, want %q", got.Data, want)
	}
	if got.MIMEType != "image/webp" {
		t.Errorf("EditImage() MIMEType = %q, want image/webp", got.MIMEType)
	}

	body := *lastBody
	for _, sub := range []string{
		"Change background to pure white",
		base64.StdEncoding.EncodeToString(src.Data),
		"image/png",
		"IMAGE",
	} {
		if !strings.Contains(body, sub) {
			t.Errorf("request body missing %q: %s", sub, body)
		}
	}
}

func TestEditImageFallsBackToRequestMIME(t *testing.T) {
	client, _ := fakeGemini(t, http.StatusOK, imageResponse([]byte("bytes"), ""))

	got, err := client.EditImage(context.Background(), imaging.Image{Data: []byte("x"), MIMEType: "image/jpeg"}, "edit")
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if got.MIMEType != "image/jpeg" {
		t.Errorf("EditImage() MIMEType = %q, want request type image/jpeg", got.MIMEType)
	}
}

func TestEditImageErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantSub string
	}{
		{
			name:    "text only",
			status:  http.StatusOK,
			body:    `{"candidates":[{"content":{"role":"model","parts":[{"text":"I cannot edit this image."}]}}]}`,
			wantSub: "I cannot edit this image.",
		},
		{
			name:    "blocked prompt",
			status:  http.StatusOK,
			body:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantSub: "blocked",
		},
		{
			name:    "quota",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`,
			wantSub: "image edit request failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := fakeGemini(t, tt.status, tt.body)
			_, err := client.EditImage(context.Background(), imaging.Image{Data: []byte("x"), MIMEType: "image/png"}, "edit")
			if err == nil {
				t.Fatal("EditImage() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("EditImage() error = %v, want it to contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestNewImageClientDefaults(t *testing.T) {
	client, err := NewImageClient(context.Background(), Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewImageClient() error = %v", err)
	}
	if client.Model() != DefaultModelName {
		t.Errorf("Model() = %q, want %q", client.Model(), DefaultModelName)
	}
	if client.systemInstruction != SystemInstruction {
		t.Error("system instruction should default to SystemInstruction")
	}

	bare, err := NewImageClient(context.Background(), Config{APIKey: "k", SystemInstruction: "-"})
	if err != nil {
		t.Fatalf("NewImageClient() error = %v", err)
	}
	if bare.systemInstruction != "" {
		t.Errorf("systemInstruction = %q, want empty", bare.systemInstruction)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q, want short", got)
	}
	if got := truncateString("abcdefghij", 4); got != "abcd..." {
		t.Errorf("truncateString() = %q, want abcd...", got)
	}
}
