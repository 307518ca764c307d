// Command detect-faces reports blur, occlusion and glasses for each face and outlines them in detected_faces.jpg.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"vision-lab/internal/annotate"
	"vision-lab/internal/app"
	"vision-lab/internal/face"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

var menu = []app.MenuItem{
	{Key: "1", Label: "Detect faces", Value: filepath.Join("images", "people.jpg")},
}

func main() {
	choice := flag.String("choice", "", "menu entry to run without prompting")
	flag.Parse()

	ctx := context.Background()
	a, err := app.Setup(ctx, "detect-faces")
	if err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	defer a.Close()

	fc := a.Config.Face
	if err := fc.Validate(); err != nil {
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
	if flag.NArg() > 0 {
		item.Value = flag.Arg(0)
	}
	detectFaces(ctx, face.NewDetector(a.Invoker, fc.Endpoint, fc.Key), item.Value)
}

func detectFaces(ctx context.Context, d *face.Detector, imageFile string) {
	fmt.Printf("Detecting faces in %s\n", imageFile)
	img, err := util.ReadImageFile(imageFile)
	if err != nil {
		report.Fault(os.Stdout, imageFile, err)
		return
	}
	faces, err := d.Detect(ctx, img, face.DefaultAttributes...)
	if err != nil {
		report.Fault(os.Stdout, "detect faces", err)
		return
	}
	report.Faces(os.Stdout, faces)
	if len(faces) == 0 {
		return
	}

	canvas, err := annotate.DecodeCanvas(img)
	if err != nil {
		report.Fault(os.Stdout, imageFile, err)
		return
	}
	for i, f := range faces {
		r := f.Rectangle
		canvas.Box(annotate.XYWH(r.Left, r.Top, r.Width, r.Height), fmt.Sprintf("Face number %d", i+1), annotate.LightGreen)
	}
	const out = "detected_faces.jpg"
	if err := annotate.SaveJPEG(out, canvas.Image()); err != nil {
		report.Fault(os.Stdout, out, err)
		return
	}
	report.Saved(os.Stdout, out)
}
