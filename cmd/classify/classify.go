package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"vision-lab/internal/annotate"
	"vision-lab/internal/customvision"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

// job scores one local file and one remote image with the same published iteration.
type job struct {
	predictor *customvision.Predictor
	imagePath string
	imageURL  string

	// detect switches to the object detection endpoints; boxes above minProbability
	// are drawn on the local image and saved to boxesOut.
	detect         bool
	minProbability float64
	boxesOut       string
}

// run issues the two calls independently. Each writes its block to w whole, in completion order,
// and a fault in one never affects the other.
func (j job) run(ctx context.Context, w io.Writer) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	emit := func(b *bytes.Buffer) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = w.Write(b.Bytes())
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		var b bytes.Buffer
		j.local(ctx, &b)
		emit(&b)
	}()
	go func() {
		defer wg.Done()
		var b bytes.Buffer
		j.remote(ctx, &b)
		emit(&b)
	}()
	wg.Wait()
}

func (j job) local(ctx context.Context, b *bytes.Buffer) {
	img, err := util.ReadImageFile(j.imagePath)
	if err != nil {
		report.Fault(b, "local image", err)
		return
	}
	classify := j.predictor.ClassifyImage
	if j.detect {
		classify = j.predictor.DetectImage
	}
	preds, err := classify(ctx, img)
	if err != nil {
		report.Fault(b, "local image", err)
		return
	}
	b.WriteString("Local image predictions:\n")
	report.Predictions(b, preds)
	if j.detect {
		j.drawBoxes(b, img, preds)
	}
}

func (j job) remote(ctx context.Context, b *bytes.Buffer) {
	classify := j.predictor.ClassifyURL
	if j.detect {
		classify = j.predictor.DetectURL
	}
	preds, err := classify(ctx, j.imageURL)
	if err != nil {
		report.Fault(b, "image url", err)
		return
	}
	b.WriteString("URL image predictions:\n")
	report.Predictions(b, preds)
}

func (j job) drawBoxes(b *bytes.Buffer, img []byte, preds []customvision.Prediction) {
	canvas, err := annotate.DecodeCanvas(img)
	if err != nil {
		report.Fault(b, j.imagePath, err)
		return
	}
	for _, p := range preds {
		if p.Box == nil || p.Probability < j.minProbability {
			continue
		}
		r := annotate.Normalized(canvas.Bounds(), p.Box.Left, p.Box.Top, p.Box.Width, p.Box.Height)
		canvas.Box(r, fmt.Sprintf("%s %d%%", p.Label, p.Percent()), annotate.Magenta)
	}
	if err := annotate.SaveJPEG(j.boxesOut, canvas.Image()); err != nil {
		report.Fault(b, j.boxesOut, err)
		return
	}
	report.Saved(b, j.boxesOut)
}
