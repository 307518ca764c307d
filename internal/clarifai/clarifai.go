// Package clarifai asks a Clarifai image recognition model for concepts and builds keyword captions.
package clarifai

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strconv"
	"strings"

	"vision-lab/internal/invoker"
)

// statusSuccess is Clarifai's in-body success code; anything else is a failure even under HTTP 200.
const statusSuccess = 10000

type Concept struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Client struct {
	inv      *invoker.Client
	modelURL string
	pat      string

	// MinValue drops concepts scored below it from captions.
	MinValue float64
}

// New returns a client for the model outputs endpoint modelURL, authenticating with a personal access token.
func New(inv *invoker.Client, modelURL, pat string) *Client {
	return &Client{inv: inv, modelURL: modelURL, pat: pat}
}

type status struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

type outputsRequest struct {
	Inputs []input `json:"inputs"`
}

type input struct {
	Data struct {
		Image struct {
			Base64 string `json:"base64,omitempty"`
			URL    string `json:"url,omitempty"`
		} `json:"image"`
	} `json:"data"`
}

type outputsResponse struct {
	Status  *status `json:"status"`
	Outputs []struct {
		Status *status `json:"status"`
		Data   struct {
			Concepts []Concept `json:"concepts"`
		} `json:"data"`
	} `json:"outputs"`
}

// Concepts uploads img and returns the model's concepts, most likely first.
func (c *Client) Concepts(ctx context.Context, img []byte) ([]Concept, error) {
	var in input
	in.Data.Image.Base64 = base64.StdEncoding.EncodeToString(img)
	return c.concepts(ctx, "clarifai concepts", len(img) > 0, in)
}

// ConceptsURL has Clarifai fetch imageURL itself.
func (c *Client) ConceptsURL(ctx context.Context, imageURL string) ([]Concept, error) {
	var in input
	in.Data.Image.URL = imageURL
	return c.concepts(ctx, "clarifai concepts url", strings.TrimSpace(imageURL) != "", in)
}

func (c *Client) concepts(ctx context.Context, op string, hasImage bool, in input) ([]Concept, error) {
	if !hasImage {
		return nil, &invoker.Fault{Kind: invoker.KindConfiguration, Op: op, Message: "image is empty"}
	}
	auth := ""
	if strings.TrimSpace(c.pat) != "" {
		auth = "Key " + c.pat
	}
	resp, err := c.inv.Invoke(ctx, invoker.Request{
		Op:         op,
		Endpoint:   c.modelURL,
		AuthHeader: "Authorization",
		AuthValue:  auth,
		Payload:    invoker.Document(outputsRequest{Inputs: []input{in}}),
	})
	if err != nil {
		return nil, err
	}
	var raw outputsResponse
	if err := resp.DecodeJSON(&raw); err != nil {
		return nil, err
	}
	if s := raw.Status; s != nil && s.Code != statusSuccess {
		return nil, statusFault(op, resp.StatusCode, s)
	}
	if len(raw.Outputs) == 0 {
		return nil, invoker.DecodeFault(op, errors.New("response has no outputs"))
	}
	out := raw.Outputs[0]
	if s := out.Status; s != nil && s.Code != statusSuccess {
		return nil, statusFault(op, resp.StatusCode, s)
	}
	concepts := out.Data.Concepts
	sort.SliceStable(concepts, func(i, j int) bool { return concepts[i].Value > concepts[j].Value })
	return concepts, nil
}

func statusFault(op string, httpStatus int, s *status) error {
	msg := s.Description
	if s.Details != "" {
		msg += " (" + s.Details + ")"
	}
	return invoker.ServiceFault(op, httpStatus, strconv.Itoa(s.Code), msg)
}

// Caption is Concepts followed by the package level Caption over the concepts at or above MinValue.
func (c *Client) Caption(ctx context.Context, img []byte) (string, error) {
	concepts, err := c.Concepts(ctx, img)
	if err != nil {
		return "", err
	}
	return Caption(Above(concepts, c.MinValue)), nil
}

// CaptionURL is Caption for an image Clarifai fetches itself.
func (c *Client) CaptionURL(ctx context.Context, imageURL string) (string, error) {
	concepts, err := c.ConceptsURL(ctx, imageURL)
	if err != nil {
		return "", err
	}
	return Caption(Above(concepts, c.MinValue)), nil
}

func (c *Client) Name() string { return "clarifai" }

// Caption joins concept names with ", ".
func Caption(concepts []Concept) string {
	names := make([]string, 0, len(concepts))
	for _, c := range concepts {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ", ")
}

// Above keeps concepts whose value is at least min.
func Above(concepts []Concept, min float64) []Concept {
	var out []Concept
	for _, c := range concepts {
		if c.Value >= min {
			out = append(out, c)
		}
	}
	return out
}
