// Command analyze runs every Image Analysis feature on a local or remote image, draws the detected
// objects and people, and then removes the background (or builds a foreground matte).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"vision-lab/internal/annotate"
	"vision-lab/internal/app"
	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

func main() {
	mode := flag.String("mode", string(imageanalysis.ModeBackgroundRemoval), "segmentation mode: backgroundRemoval or foregroundMatting")
	imageURL := flag.String("url", "", "analyze this remote image instead of the local one")
	features := flag.String("features", joinFeatures(imageanalysis.AllFeatures), "comma separated visual features")
	ratios := flag.String("aspect-ratios", "0.9,1.33", "comma separated smart crop aspect ratios")
	flag.Parse()

	imageFile := "images/street.jpg"
	if flag.NArg() > 0 {
		imageFile = flag.Arg(0)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, "analyze")
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
	feats, err := imageanalysis.ParseFeatures(*features)
	if err != nil {
		report.Fault(os.Stdout, "features", err)
		return
	}
	aspect, err := imageanalysis.ParseAspectRatios(*ratios)
	if err != nil {
		report.Fault(os.Stdout, "aspect ratios", err)
		return
	}
	segMode, err := imageanalysis.ParseMode(*mode)
	if err != nil {
		report.Fault(os.Stdout, "mode", err)
		return
	}
	opts := imageanalysis.Options{Features: feats, SmartCropsAspectRatios: aspect, GenderNeutralCaption: true}
	analyzer := imageanalysis.NewAnalyzer(a.Invoker, v.Endpoint, v.Key)
	seg := imageanalysis.NewSegmenter(a.Invoker, v.Endpoint, v.Key)

	var (
		upload []byte
		res    *imageanalysis.Result
		png    []byte
	)
	if *imageURL != "" {
		fmt.Printf("Analyzing %s\n", *imageURL)
		if res, err = analyzer.AnalyzeURL(ctx, *imageURL, opts); err == nil {
			// boxes are drawn on a local copy of the remote image
			var derr error
			if upload, _, derr = util.Download(ctx, &http.Client{Timeout: a.Config.HTTPTimeout}, *imageURL); derr != nil {
				report.Fault(os.Stdout, "download", derr)
			}
		}
	} else {
		var img []byte
		if img, err = util.ReadImageFile(imageFile); err != nil {
			report.Fault(os.Stdout, imageFile, err)
			return
		}
		if upload, err = util.DownscaleBytes(img, a.Config.MaxImageDim); err != nil {
			report.Fault(os.Stdout, imageFile, err)
			return
		}
		fmt.Printf("Analyzing %s\n", imageFile)
		res, err = analyzer.AnalyzeImage(ctx, upload, opts)
	}
	if err != nil {
		report.Fault(os.Stdout, "analyze", err)
	} else {
		report.Analysis(os.Stdout, res)
		if upload != nil {
			drawResults(upload, res)
		}
	}

	fmt.Println("Background removal:")
	if *imageURL != "" {
		png, err = seg.SegmentURL(ctx, *imageURL, segMode)
	} else {
		png, err = seg.SegmentImage(ctx, upload, segMode)
	}
	if err != nil {
		report.Fault(os.Stdout, "segment", err)
		return
	}
	out := segMode.OutputName()
	if err := imageanalysis.SaveBinary(out, png); err != nil {
		report.Fault(os.Stdout, out, err)
		return
	}
	report.Saved(os.Stdout, out)
}

func joinFeatures(fs []imageanalysis.Feature) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}

// drawResults writes objects.jpg and persons.jpg when the analysis found any.
// Box coordinates refer to the uploaded (possibly downscaled) image.
func drawResults(img []byte, res *imageanalysis.Result) {
	if len(res.Objects) > 0 {
		c, err := annotate.DecodeCanvas(img)
		if err != nil {
			report.Fault(os.Stdout, "objects.jpg", err)
			return
		}
		for _, o := range res.Objects {
			b := o.Box
			c.Box(annotate.XYWH(b.X, b.Y, b.Width, b.Height), o.Name(), annotate.Cyan)
		}
		save("objects.jpg", c)
	}
	if len(res.People) > 0 {
		c, err := annotate.DecodeCanvas(img)
		if err != nil {
			report.Fault(os.Stdout, "persons.jpg", err)
			return
		}
		for _, p := range res.People {
			b := p.Box
			c.Rect(annotate.XYWH(b.X, b.Y, b.Width, b.Height), annotate.Cyan, annotate.DefaultWidth)
		}
		save("persons.jpg", c)
	}
}

func save(path string, c *annotate.Canvas) {
	if err := annotate.SaveJPEG(path, c.Image()); err != nil {
		report.Fault(os.Stdout, path, err)
		return
	}
	report.Saved(os.Stdout, path)
}
