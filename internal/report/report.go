// Package report renders vision results as console text.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"vision-lab/internal/customvision"
	"vision-lab/internal/face"
	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/invoker"
	"vision-lab/internal/store"
)

// Fault writes exactly one line describing err, whatever it contains.
func Fault(w io.Writer, what string, err error) {
	msg := oneLine(err.Error())
	var f *invoker.Fault
	if errors.As(err, &f) && f.Kind == invoker.KindConfiguration {
		msg += " (check the settings file or environment)"
	}
	if what == "" {
		fmt.Fprintf(w, "Error: %s\n", msg)
		return
	}
	fmt.Fprintf(w, "Error: %s: %s\n", what, msg)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func Predictions(w io.Writer, preds []customvision.Prediction) {
	for _, p := range preds {
		fmt.Fprintln(w, p.String())
	}
}

func box(b imageanalysis.BoundingBox) string {
	return fmt.Sprintf("[x=%d, y=%d, w=%d, h=%d]", b.X, b.Y, b.Width, b.Height)
}

func polygon(pts []imageanalysis.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = fmt.Sprintf("(%d, %d)", p.X, p.Y)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Record writes one analysis record. Text blocks take several lines, everything else one.
func Record(w io.Writer, r imageanalysis.Record) {
	switch v := r.(type) {
	case imageanalysis.Caption:
		fmt.Fprintf(w, "Caption: %s (confidence: %.2f)\n", v.Text, v.Confidence)
	case imageanalysis.DenseCaption:
		fmt.Fprintf(w, "Dense caption: %s (confidence: %.2f) %s\n", v.Text, v.Confidence, box(v.Box))
	case imageanalysis.Tag:
		fmt.Fprintf(w, "Tag: %s (confidence: %.2f)\n", v.Name, v.Confidence)
	case imageanalysis.DetectedObject:
		name := v.Name()
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(w, "Object: %s (confidence: %.2f) %s\n", name, v.Confidence(), box(v.Box))
	case imageanalysis.DetectedPerson:
		fmt.Fprintf(w, "Person: %s (confidence: %.2f)\n", box(v.Box), v.Confidence)
	case imageanalysis.TextBlock:
		for _, l := range v.Lines {
			fmt.Fprintf(w, "Line: %s\n", l.Text)
			if len(l.Polygon) > 0 {
				fmt.Fprintf(w, "  Bounding polygon: %s\n", polygon(l.Polygon))
			}
			for _, wd := range l.Words {
				fmt.Fprintf(w, "    Word: '%s', Bounding polygon: %s, Confidence: %.4f\n", wd.Text, polygon(wd.Polygon), wd.Confidence)
			}
		}
	case imageanalysis.SmartCrop:
		fmt.Fprintf(w, "Smart crop: aspect ratio %.2f %s\n", v.AspectRatio, box(v.Box))
	}
}

// Analysis writes every record of res in feature order.
func Analysis(w io.Writer, res *imageanalysis.Result) {
	for _, r := range res.Records() {
		Record(w, r)
	}
}

// Faces writes the attributes of each face, numbered from 1.
func Faces(w io.Writer, faces []face.Face) {
	fmt.Fprintf(w, "%d faces detected.\n", len(faces))
	for i, f := range faces {
		fmt.Fprintf(w, "Face number %d\n", i+1)
		if b := f.Attributes.Blur; b != nil {
			fmt.Fprintf(w, " - Blur: %s (%.2f)\n", b.Level, b.Value)
		}
		if o := f.Attributes.Occlusion; o != nil {
			fmt.Fprintf(w, " - Occlusion: forehead %t, eye %t, mouth %t\n", o.ForeheadOccluded, o.EyeOccluded, o.MouthOccluded)
		}
		if f.Attributes.Glasses != "" {
			fmt.Fprintf(w, " - Glasses: %s\n", f.Attributes.Glasses)
		}
	}
}

// Journal lists journaled calls, one per line: time, source, op, status, duration and fault.
func Journal(w io.Writer, entries []store.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No calls journaled yet.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s %s %d %dms", e.CreatedAt.UTC().Format("2006-01-02 15:04:05"), e.Source, e.Op, e.StatusCode, e.Duration.Milliseconds())
		if e.FaultKind != "" {
			fmt.Fprintf(w, " %s fault", e.FaultKind)
		}
		fmt.Fprintln(w)
	}
}

// Saved notes a written output file.
func Saved(w io.Writer, path string) {
	fmt.Fprintf(w, "Results saved in %s\n", path)
}
