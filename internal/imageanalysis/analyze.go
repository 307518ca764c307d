// Package imageanalysis wraps the Azure AI Vision Image Analysis 4.0 analyze and segment operations.
package imageanalysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"vision-lab/internal/invoker"
)

const (
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	analyzeAPIVersion     = "2024-02-01"
)

// Feature names a visual feature as the service spells it in the features query parameter.
type Feature string

const (
	FeatureCaption       Feature = "caption"
	FeatureDenseCaptions Feature = "denseCaptions"
	FeatureObjects       Feature = "objects"
	FeaturePeople        Feature = "people"
	FeatureRead          Feature = "read"
	FeatureSmartCrops    Feature = "smartCrops"
	FeatureTags          Feature = "tags"
)

// AllFeatures in the order the service documents them.
var AllFeatures = []Feature{
	FeatureCaption, FeatureDenseCaptions, FeatureObjects, FeaturePeople,
	FeatureRead, FeatureSmartCrops, FeatureTags,
}

// ParseFeatures accepts a comma separated list, case-insensitively.
func ParseFeatures(s string) ([]Feature, error) {
	var out []Feature
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		found := false
		for _, f := range AllFeatures {
			if strings.EqualFold(part, string(f)) {
				out = append(out, f)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown feature %q", part)
		}
	}
	return out, nil
}

// DefaultAspectRatios are the smart crop ratios requested when none are given.
var DefaultAspectRatios = []float64{0.9, 1.33}

// ParseAspectRatios parses a comma separated list of width/height ratios in [0.75, 1.8].
func ParseAspectRatios(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("aspect ratio %q: %w", part, err)
		}
		if r < 0.75 || r > 1.8 {
			return nil, fmt.Errorf("aspect ratio %v outside 0.75..1.8", r)
		}
		out = append(out, r)
	}
	return out, nil
}

type Options struct {
	Features []Feature
	// SmartCropsAspectRatios are width/height ratios between 0.75 and 1.8.
	SmartCropsAspectRatios []float64
	Language               string
	GenderNeutralCaption   bool
	ModelVersion           string
}

func (o Options) query() map[string][]string {
	q := map[string][]string{"api-version": {analyzeAPIVersion}}
	feats := make([]string, 0, len(o.Features))
	for _, f := range o.Features {
		feats = append(feats, string(f))
	}
	q["features"] = feats
	if len(o.SmartCropsAspectRatios) > 0 {
		ratios := make([]string, 0, len(o.SmartCropsAspectRatios))
		for _, r := range o.SmartCropsAspectRatios {
			ratios = append(ratios, strconv.FormatFloat(r, 'f', -1, 64))
		}
		q["smartcrops-aspect-ratios"] = ratios
	}
	if o.Language != "" {
		q["language"] = []string{o.Language}
	}
	if o.GenderNeutralCaption {
		q["gender-neutral-caption"] = []string{"true"}
	}
	if o.ModelVersion != "" {
		q["model-version"] = []string{o.ModelVersion}
	}
	return q
}

type Analyzer struct {
	inv      *invoker.Client
	endpoint string
	key      string
}

func NewAnalyzer(inv *invoker.Client, endpoint, key string) *Analyzer {
	return &Analyzer{inv: inv, endpoint: endpoint, key: key}
}

// AnalyzeURL has the service fetch imageURL itself.
func (a *Analyzer) AnalyzeURL(ctx context.Context, imageURL string, opts Options) (*Result, error) {
	return a.analyze(ctx, "analyze url", invoker.ImageURL(imageURL), opts)
}

// AnalyzeImage uploads img.
func (a *Analyzer) AnalyzeImage(ctx context.Context, img []byte, opts Options) (*Result, error) {
	return a.analyze(ctx, "analyze image", invoker.RawBytes(img), opts)
}

func (a *Analyzer) analyze(ctx context.Context, op string, payload invoker.Payload, opts Options) (*Result, error) {
	if len(opts.Features) == 0 {
		return nil, &invoker.Fault{Kind: invoker.KindConfiguration, Op: op, Message: "at least one visual feature is required"}
	}
	resp, err := a.inv.Invoke(ctx, invoker.Request{
		Op:         op,
		Endpoint:   invoker.JoinEndpoint(a.endpoint, "computervision/imageanalysis:analyze"),
		AuthHeader: subscriptionKeyHeader,
		AuthValue:  a.key,
		Payload:    payload,
		Query:      opts.query(),
	})
	if err != nil {
		return nil, err
	}
	var raw wireResponse
	if err := resp.DecodeJSON(&raw); err != nil {
		return nil, err
	}
	return raw.toResult(), nil
}
