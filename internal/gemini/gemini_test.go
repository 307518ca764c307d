package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"vision-lab/internal/invoker"
)

func reply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
	}}}
}

func TestCaptionNormalizesKeywords(t *testing.T) {
	c := New("key", "gemini-2.5-flash")
	var gotMIME string
	c.generate = func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		for _, p := range parts {
			if b, ok := p.(*genai.Blob); ok {
				gotMIME = b.MIMEType
			}
		}
		return reply("```\n- woman\n- beach, sunset.\n```"), nil
	}
	got, err := c.Caption(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0})
	if err != nil {
		t.Fatalf("Caption() error = %v", err)
	}
	if got != "woman, beach, sunset" {
		t.Errorf("Caption() = %q", got)
	}
	if gotMIME != "image/jpeg" {
		t.Errorf("blob MIME = %q", gotMIME)
	}
}

func TestCaptionFaults(t *testing.T) {
	img := []byte{0xFF, 0xD8}
	tests := []struct {
		name string
		key  string
		gen  generateFunc
		want invoker.Kind
	}{
		{"missing key", "", nil, invoker.KindConfiguration},
		{"service error", "k", func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("googleapi: Error 400: API key not valid")
		}, invoker.KindService},
		{"deadline", "k", func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
			return nil, context.DeadlineExceeded
		}, invoker.KindTransport},
		{"empty reply", "k", func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		}, invoker.KindDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.key, "m")
			c.generate = tt.gen
			_, err := c.Caption(context.Background(), img)
			if got := invoker.KindOf(err); got != tt.want {
				t.Errorf("KindOf(err) = %v, want %v (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestCaptionIsBoundedByTimeout(t *testing.T) {
	for _, tt := range []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{0, DefaultTimeout},
		{2 * time.Second, 2 * time.Second},
	} {
		c := New("k", "m")
		c.Timeout = tt.timeout
		var left time.Duration
		c.generate = func(ctx context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
			d, ok := ctx.Deadline()
			if !ok {
				t.Fatal("caption call has no deadline")
			}
			left = time.Until(d)
			return reply("cat"), nil
		}
		if _, err := c.Caption(context.Background(), []byte{0xFF, 0xD8}); err != nil {
			t.Fatalf("Caption() error = %v", err)
		}
		if left > tt.want || left < tt.want-time.Second {
			t.Errorf("Timeout %v: deadline in %v, want about %v", tt.timeout, left, tt.want)
		}
	}
}
