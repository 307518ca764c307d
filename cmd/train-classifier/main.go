// Command train-classifier uploads <folder>/<tag>/* for every tag of the project, then trains a new iteration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"vision-lab/internal/app"
	"vision-lab/internal/customvision"
	"vision-lab/internal/report"
	"vision-lab/internal/util"
)

func main() {
	folder := flag.String("folder", "training-images", "folder with one sub-folder per tag")
	interval := flag.Duration("poll", 5*time.Second, "training status poll interval")
	flag.Parse()

	ctx := context.Background()
	a, err := app.Setup(ctx, "train-classifier")
	if err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	defer a.Close()

	tc := a.Config.Training
	if err := tc.Validate(); err != nil {
		report.Fault(os.Stdout, "configuration", err)
		return
	}
	t := customvision.NewTrainer(a.Invoker, tc.Endpoint, tc.Key, tc.ProjectID)

	project, err := t.Project(ctx)
	if err != nil {
		report.Fault(os.Stdout, "project", err)
		return
	}
	fmt.Println(project.Name)

	if !uploadImages(ctx, t, *folder) {
		return
	}

	fmt.Println("Training ...")
	it, err := t.Train(ctx)
	if err != nil {
		report.Fault(os.Stdout, "train", err)
		return
	}
	it, err = t.WaitTrained(ctx, it, *interval, func(status string) { fmt.Println(status) })
	if err != nil {
		report.Fault(os.Stdout, "train", err)
		return
	}
	fmt.Printf("Model trained! Iteration %s\n", it.Name)
}

// uploadImages sends every image file under folder/<tag name> tagged with that tag.
// It reports false when the run should stop.
func uploadImages(ctx context.Context, t *customvision.Trainer, folder string) bool {
	fmt.Println("Uploading images...")
	tags, err := t.Tags(ctx)
	if err != nil {
		report.Fault(os.Stdout, "tags", err)
		return false
	}
	for _, tag := range tags {
		fmt.Println(tag.Name)
		files, err := filepath.Glob(filepath.Join(folder, tag.Name, "*"))
		if err != nil {
			report.Fault(os.Stdout, tag.Name, err)
			return false
		}
		sort.Strings(files)
		for _, f := range files {
			if !util.IsImageName(f) {
				continue
			}
			img, err := util.ReadImageFile(f)
			if err != nil {
				report.Fault(os.Stdout, f, err)
				continue
			}
			if _, err := t.UploadImage(ctx, img, tag.ID); err != nil {
				report.Fault(os.Stdout, f, err)
				return false
			}
		}
	}
	return true
}
