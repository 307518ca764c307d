// Command caption downloads an image, asks the configured provider for keywords and writes them to caption.txt.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"vision-lab/internal/app"
	"vision-lab/internal/clarifai"
	"vision-lab/internal/gemini"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

const defaultImageURL = "https://storage.googleapis.com/sfr-vision-language-research/BLIP/demo.jpg"

type captioner interface {
	Name() string
	Caption(ctx context.Context, img []byte) (string, error)
}

// urlCaptioner fetches the image on the provider side.
type urlCaptioner interface {
	CaptionURL(ctx context.Context, imageURL string) (string, error)
}

func main() {
	imageURL := flag.String("url", defaultImageURL, "image to caption")
	out := flag.String("o", "caption.txt", "output file")
	remote := flag.Bool("remote", false, "let the provider fetch the URL instead of uploading the bytes (clarifai)")
	minValue := flag.Float64("min-confidence", 0, "clarifai: leave out concepts scored below this")
	flag.Parse()

	ctx := context.Background()
	a, err := app.Setup(ctx, "caption")
	if err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	defer a.Close()

	c, err := newCaptioner(a, *minValue)
	if err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}

	var caption string
	if uc, ok := c.(urlCaptioner); ok && *remote {
		caption, err = uc.CaptionURL(ctx, *imageURL)
	} else {
		var img []byte
		img, _, err = util.Download(ctx, &http.Client{Timeout: a.Config.HTTPTimeout}, *imageURL)
		if err != nil {
			report.Fault(os.Stdout, "download", err)
			return
		}
		caption, err = c.Caption(ctx, img)
	}
	if err != nil {
		report.Fault(os.Stdout, c.Name(), err)
		return
	}
	if err := os.WriteFile(*out, []byte(caption), 0o644); err != nil {
		report.Fault(os.Stdout, *out, err)
		return
	}
	fmt.Printf("Caption saved to %s\n", *out)
}

func newCaptioner(a *app.App, minValue float64) (captioner, error) {
	cfg := a.Config
	switch cfg.CaptionProvider {
	case "gemini":
		if err := cfg.Gemini.Validate(); err != nil {
			return nil, err
		}
		g := gemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model)
		g.Timeout = cfg.HTTPTimeout
		return g, nil
	default:
		if err := cfg.Clarifai.Validate(); err != nil {
			return nil, err
		}
		c := clarifai.New(a.Invoker, cfg.Clarifai.ModelURL, cfg.Clarifai.PAT)
		c.MinValue = minValue
		return c, nil
	}
}
