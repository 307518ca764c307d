// Command detect-people boxes every person detected with confidence above a threshold.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"vision-lab/internal/annotate"
	"vision-lab/internal/app"
	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

func main() {
	minConfidence := flag.Float64("min-confidence", 0.5, "draw people detected with confidence above this")
	flag.Parse()

	imageFile := "images/people.jpg"
	if flag.NArg() > 0 {
		imageFile = flag.Arg(0)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, "detect-people")
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
	img, err := util.ReadImageFile(imageFile)
	if err != nil {
		report.Fault(os.Stdout, imageFile, err)
		return
	}

	fmt.Printf("Analyzing %s\n", imageFile)
	an := imageanalysis.NewAnalyzer(a.Invoker, v.Endpoint, v.Key)
	res, err := an.AnalyzeImage(ctx, img, imageanalysis.Options{Features: []imageanalysis.Feature{imageanalysis.FeaturePeople}})
	if err != nil {
		report.Fault(os.Stdout, "people", err)
		return
	}
	if !res.Has(imageanalysis.FeaturePeople) {
		fmt.Println("No people section in the response.")
		return
	}

	canvas, err := annotate.DecodeCanvas(img)
	if err != nil {
		report.Fault(os.Stdout, imageFile, err)
		return
	}
	fmt.Println("People in image:")
	for _, p := range res.PeopleAbove(*minConfidence) {
		report.Record(os.Stdout, p)
		b := p.Box
		canvas.Rect(annotate.XYWH(b.X, b.Y, b.Width, b.Height), annotate.Cyan, annotate.DefaultWidth)
	}

	const out = "detected_people.jpg"
	if err := annotate.SaveJPEG(out, canvas.Image()); err != nil {
		report.Fault(os.Stdout, out, err)
		return
	}
	report.Saved(os.Stdout, out)
}
