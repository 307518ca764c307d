// Package face calls the Face API detect operation.
package face

import (
	"context"
	"fmt"

	"vision-lab/internal/invoker"
)

const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// Attribute is a face attribute the detect call can return.
type Attribute string

const (
	AttrOcclusion Attribute = "occlusion"
	AttrBlur      Attribute = "blur"
	AttrGlasses   Attribute = "glasses"
)

// DefaultAttributes is what detect-faces asks for.
var DefaultAttributes = []Attribute{AttrOcclusion, AttrBlur, AttrGlasses}

type Rectangle struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Blur struct {
	Level string  `json:"blurLevel"`
	Value float64 `json:"value"`
}

type Occlusion struct {
	ForeheadOccluded bool `json:"foreheadOccluded"`
	EyeOccluded      bool `json:"eyeOccluded"`
	MouthOccluded    bool `json:"mouthOccluded"`
}

// Attributes holds only what was requested; unrequested parts stay nil or empty.
type Attributes struct {
	Blur      *Blur      `json:"blur"`
	Occlusion *Occlusion `json:"occlusion"`
	Glasses   string     `json:"glasses"`
}

type Face struct {
	Rectangle  Rectangle  `json:"faceRectangle"`
	Attributes Attributes `json:"faceAttributes"`
}

type Detector struct {
	inv      *invoker.Client
	endpoint string
	key      string
}

func NewDetector(inv *invoker.Client, endpoint, key string) *Detector {
	return &Detector{inv: inv, endpoint: endpoint, key: key}
}

// Detect uploads img and returns every face found, in service order.
func (d *Detector) Detect(ctx context.Context, img []byte, attrs ...Attribute) ([]Face, error) {
	q := map[string][]string{"returnFaceId": {"false"}}
	if len(attrs) > 0 {
		names := make([]string, len(attrs))
		for i, a := range attrs {
			names[i] = string(a)
		}
		q["returnFaceAttributes"] = names
	}
	resp, err := d.inv.Invoke(ctx, invoker.Request{
		Op:         "detect faces",
		Endpoint:   invoker.JoinEndpoint(d.endpoint, "face/v1.0/detect"),
		AuthHeader: subscriptionKeyHeader,
		AuthValue:  d.key,
		Payload:    invoker.RawBytes(img),
		Query:      q,
	})
	if err != nil {
		return nil, err
	}
	var faces []Face
	if err := resp.DecodeJSON(&faces); err != nil {
		return nil, err
	}
	if faces == nil {
		return nil, invoker.DecodeFault("detect faces", fmt.Errorf("expected a JSON array of faces"))
	}
	return faces, nil
}
