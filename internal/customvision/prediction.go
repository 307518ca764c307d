// Package customvision talks to the Custom Vision prediction and training APIs.
package customvision

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"vision-lab/internal/invoker"
)

const predictionKeyHeader = "Prediction-Key"

// Prediction is one tag scored by a published classification or detection iteration.
type Prediction struct {
	Label       string
	Probability float64
	TagID       string
	// Box is set only by object detection projects; coordinates are normalised to [0,1].
	Box *NormalizedBox
}

type NormalizedBox struct {
	Left, Top, Width, Height float64
}

// Percent is the probability rounded to an integer percentage.
func (p Prediction) Percent() int {
	return int(math.Round(p.Probability * 100))
}

func (p Prediction) String() string {
	return fmt.Sprintf("%s: %d%%", p.Label, p.Percent())
}

type Predictor struct {
	inv      *invoker.Client
	endpoint string
	key      string
	project  string
	model    string
}

func NewPredictor(inv *invoker.Client, endpoint, key, projectID, publishedModel string) *Predictor {
	return &Predictor{
		inv:      inv,
		endpoint: endpoint,
		key:      key,
		project:  projectID,
		model:    publishedModel,
	}
}

type predictionResponse struct {
	ID          string `json:"id"`
	Project     string `json:"project"`
	Iteration   string `json:"iteration"`
	Predictions []struct {
		Probability float64 `json:"probability"`
		TagID       string  `json:"tagId"`
		TagName     string  `json:"tagName"`
		BoundingBox *struct {
			Left   float64 `json:"left"`
			Top    float64 `json:"top"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"boundingBox"`
	} `json:"predictions"`
}

// ClassifyImage posts raw image bytes to the published classification iteration.
func (p *Predictor) ClassifyImage(ctx context.Context, img []byte) ([]Prediction, error) {
	return p.predict(ctx, "classify image", "classify", "image", invoker.RawBytes(img))
}

// ClassifyURL asks the service to fetch imageURL and classify it.
func (p *Predictor) ClassifyURL(ctx context.Context, imageURL string) ([]Prediction, error) {
	return p.predict(ctx, "classify url", "classify", "url", invoker.ImageURL(imageURL))
}

// DetectImage runs a published object detection iteration on raw bytes.
func (p *Predictor) DetectImage(ctx context.Context, img []byte) ([]Prediction, error) {
	return p.predict(ctx, "detect image", "detect", "image", invoker.RawBytes(img))
}

// DetectURL runs a published object detection iteration on a remote image.
func (p *Predictor) DetectURL(ctx context.Context, imageURL string) ([]Prediction, error) {
	return p.predict(ctx, "detect url", "detect", "url", invoker.ImageURL(imageURL))
}

func (p *Predictor) predict(ctx context.Context, op, kind, source string, payload invoker.Payload) ([]Prediction, error) {
	endpoint := invoker.JoinEndpoint(p.endpoint,
		"customvision/v3.0/Prediction",
		url.PathEscape(p.project),
		kind, "iterations",
		url.PathEscape(p.model),
		source,
	)
	resp, err := p.inv.Invoke(ctx, invoker.Request{
		Op:         op,
		Endpoint:   endpoint,
		AuthHeader: predictionKeyHeader,
		AuthValue:  p.key,
		Payload:    payload,
		URLField:   "Url",
	})
	if err != nil {
		return nil, err
	}
	var raw predictionResponse
	if err := resp.DecodeJSON(&raw); err != nil {
		return nil, err
	}
	return mapPredictions(raw), nil
}

func mapPredictions(raw predictionResponse) []Prediction {
	out := make([]Prediction, 0, len(raw.Predictions))
	for _, pr := range raw.Predictions {
		p := Prediction{Label: pr.TagName, Probability: clamp01(pr.Probability), TagID: pr.TagID}
		if b := pr.BoundingBox; b != nil {
			p.Box = &NormalizedBox{Left: b.Left, Top: b.Top, Width: b.Width, Height: b.Height}
		}
		out = append(out, p)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
