// Command read-text extracts printed or handwritten text with the Image Analysis read feature and
// outlines every word in text.jpg.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"vision-lab/internal/annotate"
	"vision-lab/internal/app"
	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

var menu = []app.MenuItem{
	{Key: "1", Label: "Use Read API for image (Lincoln.jpg)", Value: filepath.Join("images", "Lincoln.jpg")},
	{Key: "2", Label: "Read handwriting (Note.jpg)", Value: filepath.Join("images", "Note.jpg")},
}

func main() {
	choice := flag.String("choice", "", "menu entry to run without prompting")
	flag.Parse()

	ctx := context.Background()
	a, err := app.Setup(ctx, "read-text")
	if err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	defer a.Close()

	v := a.Config.Vision
	if err := v.Validate(); err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}

	var (
		item app.MenuItem
		ok   bool
	)
	if *choice != "" {
		item, ok = app.Pick(menu, *choice)
	} else if item, ok, err = app.Menu(menu); err != nil {
		report.Fault(os.Stdout, "menu", err)
		return
	}
	if !ok {
		return
	}
	readText(ctx, os.Stdout, imageanalysis.NewAnalyzer(a.Invoker, v.Endpoint, v.Key), item.Value, "text.jpg")
}

// readText prints each line of text found in imageFile once and saves the outlined words to out.
func readText(ctx context.Context, w io.Writer, an *imageanalysis.Analyzer, imageFile, out string) {
	img, err := util.ReadImageFile(imageFile)
	if err != nil {
		report.Fault(w, imageFile, err)
		return
	}
	res, err := an.AnalyzeImage(ctx, img, imageanalysis.Options{Features: []imageanalysis.Feature{imageanalysis.FeatureRead}})
	if err != nil {
		report.Fault(w, "read", err)
		return
	}
	if len(res.Read) == 0 {
		fmt.Fprintln(w, "No text found.")
		return
	}

	fmt.Fprintln(w, "Text:")
	canvas, err := annotate.DecodeCanvas(img)
	if err != nil {
		report.Fault(w, imageFile, err)
		return
	}
	for _, blk := range res.Read {
		report.Record(w, blk)
		for _, line := range blk.Lines {
			// words are outlined when present; the line polygon only as a fallback
			if len(line.Words) == 0 {
				canvas.Polygon(points(line.Polygon), annotate.Cyan, annotate.DefaultWidth)
			}
			for _, word := range line.Words {
				canvas.Polygon(points(word.Polygon), annotate.Cyan, annotate.DefaultWidth)
			}
		}
	}

	if err := annotate.SaveJPEG(out, canvas.Image()); err != nil {
		report.Fault(w, out, err)
		return
	}
	report.Saved(w, out)
}

func points(in []imageanalysis.Point) []image.Point {
	out := make([]image.Point, len(in))
	for i, p := range in {
		out[i] = image.Pt(p.X, p.Y)
	}
	return out
}
