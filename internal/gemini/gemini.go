// Package gemini produces keyword captions with a Gemini multimodal model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"vision-lab/internal/invoker"
	"vision-lab/internal/util"
)

const captionInstruction = `Describe the picture as a caption made of short keywords.
Reply with the keywords only, most relevant first, separated by ", ". No sentences, no numbering, no quotes.`

// generateFunc is the single model call; tests replace it.
type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// DefaultTimeout bounds a caption call when Timeout is zero.
const DefaultTimeout = 30 * time.Second

type Captioner struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	generate generateFunc
}

func New(apiKey, model string) *Captioner {
	return &Captioner{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (c *Captioner) Name() string { return "gemini" }

// Caption returns a comma separated keyword caption for img.
func (c *Captioner) Caption(ctx context.Context, img []byte) (string, error) {
	const op = "gemini caption"
	if c.APIKey == "" {
		return "", &invoker.Fault{Kind: invoker.KindConfiguration, Op: op, Message: "GEMINI_API_KEY is empty"}
	}
	if len(img) == 0 {
		return "", &invoker.Fault{Kind: invoker.KindConfiguration, Op: op, Message: "image bytes are empty"}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	gen := c.generate
	if gen == nil {
		cl, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
		if err != nil {
			return "", &invoker.Fault{Kind: invoker.KindConfiguration, Op: op, Err: err}
		}
		defer cl.Close()

		m := cl.GenerativeModel(c.Model)
		m.GenerationConfig = genai.GenerationConfig{
			Temperature:      ptrFloat32(0),
			ResponseMIMEType: "text/plain",
		}
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(captionInstruction)}}
		gen = m.GenerateContent
	}

	resp, err := gen(ctx,
		genai.Text("Caption this image."),
		&genai.Blob{MIMEType: util.PickMIME("", "", img), Data: img},
	)
	if err != nil {
		kind := invoker.KindService
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			kind = invoker.KindTransport
		}
		return "", &invoker.Fault{Kind: kind, Op: op, Err: err}
	}
	txt := util.StripCodeFences(firstText(resp))
	if txt == "" {
		return "", invoker.DecodeFault(op, fmt.Errorf("empty response"))
	}
	return normalizeKeywords(txt), nil
}

// normalizeKeywords folds newlines and bullets into a single ", " separated line.
func normalizeKeywords(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(f), "-*•"))
		f = strings.Trim(f, `"'.`)
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, ", ")
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
