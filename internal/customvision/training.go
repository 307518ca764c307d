package customvision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"vision-lab/internal/invoker"
)

const trainingKeyHeader = "Training-Key"

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Tag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageCount int    `json:"imageCount"`
}

type Iteration struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"` // "Training" | "Completed" | "Failed"
}

type UploadSummary struct {
	IsBatchSuccessful bool `json:"isBatchSuccessful"`
	Images            []struct {
		SourceURL string `json:"sourceUrl"`
		Status    string `json:"status"` // "OK" | "OKDuplicate" | ...
	} `json:"images"`
}

// Trainer wraps the Custom Vision training API for one project.
type Trainer struct {
	inv      *invoker.Client
	endpoint string
	key      string
	project  string
}

func NewTrainer(inv *invoker.Client, endpoint, key, projectID string) *Trainer {
	return &Trainer{inv: inv, endpoint: endpoint, key: key, project: projectID}
}

func (t *Trainer) call(ctx context.Context, op, method string, payload invoker.Payload, query map[string][]string, out any, path ...string) error {
	parts := append([]string{"customvision/v3.3/Training/projects", url.PathEscape(t.project)}, path...)
	resp, err := t.inv.Invoke(ctx, invoker.Request{
		Op:         op,
		Method:     method,
		Endpoint:   invoker.JoinEndpoint(t.endpoint, parts...),
		AuthHeader: trainingKeyHeader,
		AuthValue:  t.key,
		Payload:    payload,
		Query:      query,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

func (t *Trainer) Project(ctx context.Context) (Project, error) {
	var p Project
	err := t.call(ctx, "get project", http.MethodGet, invoker.NoBody(), nil, &p)
	return p, err
}

func (t *Trainer) Tags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := t.call(ctx, "get tags", http.MethodGet, invoker.NoBody(), nil, &tags, "tags")
	return tags, err
}

// UploadImage adds one image to the project, tagged with tagIDs.
func (t *Trainer) UploadImage(ctx context.Context, img []byte, tagIDs ...string) (UploadSummary, error) {
	var s UploadSummary
	q := map[string][]string{"tagIds": tagIDs}
	err := t.call(ctx, "upload image", http.MethodPost, invoker.RawBytes(img), q, &s, "images")
	if err != nil || s.IsBatchSuccessful {
		return s, err
	}
	for _, im := range s.Images {
		if im.Status != "OK" && im.Status != "OKDuplicate" {
			return s, fmt.Errorf("upload image: status %s", im.Status)
		}
	}
	if len(s.Images) == 0 {
		return s, errors.New("upload image: batch not successful and no image status returned")
	}
	return s, nil
}

// Train starts a new training iteration.
func (t *Trainer) Train(ctx context.Context) (Iteration, error) {
	var it Iteration
	err := t.call(ctx, "train", http.MethodPost, invoker.NoBody(), nil, &it, "train")
	return it, err
}

func (t *Trainer) Iteration(ctx context.Context, id string) (Iteration, error) {
	var it Iteration
	err := t.call(ctx, "get iteration", http.MethodGet, invoker.NoBody(), nil, &it, "iterations", url.PathEscape(id))
	return it, err
}

var ErrTrainingFailed = errors.New("training failed")

// WaitTrained polls the iteration every interval until it reports Completed.
// onStatus, when non-nil, sees every polled status.
func (t *Trainer) WaitTrained(ctx context.Context, it Iteration, interval time.Duration, onStatus func(string)) (Iteration, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		switch it.Status {
		case "Completed":
			return it, nil
		case "Failed":
			return it, fmt.Errorf("iteration %s: %w", it.ID, ErrTrainingFailed)
		}
		select {
		case <-ctx.Done():
			return it, ctx.Err()
		case <-ticker.C:
		}
		next, err := t.Iteration(ctx, it.ID)
		if err != nil {
			return it, err
		}
		it = next
		if onStatus != nil {
			onStatus(it.Status)
		}
	}
}
