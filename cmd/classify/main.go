// Command classify scores a local image and a remote image against a published Custom Vision iteration.
// With -detect it uses an object detection iteration instead and draws the boxes found on the local image.
package main

import (
	"context"
	"flag"
	"os"

	"vision-lab/internal/app"
	"vision-lab/internal/customvision"
	"vision-lab/internal/report"
)

func main() {
	image := flag.String("image", "test-images/IMG_TEST_2.jpg", "local image to classify")
	imageURL := flag.String("url", "https://concepto.de/wp-content/uploads/2023/01/avion.jpg", "remote image to classify")
	detect := flag.Bool("detect", false, "use the object detection endpoints and draw boxes")
	minProb := flag.Float64("min-probability", 0.5, "detect: draw boxes at or above this probability")
	flag.Parse()

	ctx := context.Background()
	a, err := app.Setup(ctx, "classify")
	if err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	defer a.Close()

	cv := a.Config.CustomVision
	if err := cv.Validate(); err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	job{
		predictor:      customvision.NewPredictor(a.Invoker, cv.PredictionEndpoint, cv.PredictionKey, cv.ProjectID, cv.PublishedModelName),
		imagePath:      *image,
		imageURL:       *imageURL,
		detect:         *detect,
		minProbability: *minProb,
		boxesOut:       "detected_objects.jpg",
	}.run(ctx, os.Stdout)
}
