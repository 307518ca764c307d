package imageanalysis

import "math"

// Wire shapes of the Image Analysis 4.0 analyze response. Every feature section is a pointer
// so absence survives decoding.
type wireResponse struct {
	ModelVersion string `json:"modelVersion"`
	Metadata     *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"metadata"`
	CaptionResult *struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"captionResult"`
	DenseCaptionsResult *struct {
		Values []struct {
			Text        string   `json:"text"`
			Confidence  float64  `json:"confidence"`
			BoundingBox *wireBox `json:"boundingBox"`
		} `json:"values"`
	} `json:"denseCaptionsResult"`
	TagsResult *struct {
		Values []wireTag `json:"values"`
	} `json:"tagsResult"`
	ObjectsResult *struct {
		Values []struct {
			BoundingBox *wireBox  `json:"boundingBox"`
			Tags        []wireTag `json:"tags"`
		} `json:"values"`
	} `json:"objectsResult"`
	PeopleResult *struct {
		Values []struct {
			BoundingBox *wireBox `json:"boundingBox"`
			Confidence  float64  `json:"confidence"`
		} `json:"values"`
	} `json:"peopleResult"`
	ReadResult *struct {
		Blocks []struct {
			Lines []struct {
				Text            string      `json:"text"`
				BoundingPolygon []wirePoint `json:"boundingPolygon"`
				Words           []struct {
					Text            string      `json:"text"`
					BoundingPolygon []wirePoint `json:"boundingPolygon"`
					Confidence      float64     `json:"confidence"`
				} `json:"words"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
	SmartCropsResult *struct {
		Values []struct {
			AspectRatio float64  `json:"aspectRatio"`
			BoundingBox *wireBox `json:"boundingBox"`
		} `json:"values"`
	} `json:"smartCropsResult"`
}

type wireBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type wireTag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type wirePoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (b *wireBox) box() BoundingBox {
	if b == nil {
		return BoundingBox{}
	}
	return BoundingBox{X: b.X, Y: b.Y, Width: b.W, Height: b.H}
}

func points(in []wirePoint) []Point {
	if len(in) == 0 {
		return nil
	}
	out := make([]Point, len(in))
	for i, p := range in {
		out[i] = Point{X: p.X, Y: p.Y}
	}
	return out
}

func confidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func tags(in []wireTag) []Tag {
	out := make([]Tag, 0, len(in))
	for _, t := range in {
		if t.Name == "" {
			continue
		}
		out = append(out, Tag{Name: t.Name, Confidence: confidence(t.Confidence)})
	}
	return out
}

// toResult maps each present section field by field. Empty text and nameless tags are dropped.
func (w *wireResponse) toResult() *Result {
	r := &Result{ModelVersion: w.ModelVersion}
	if w.Metadata != nil {
		r.Metadata = &Metadata{Width: w.Metadata.Width, Height: w.Metadata.Height}
	}
	if c := w.CaptionResult; c != nil && c.Text != "" {
		r.Caption = &Caption{Text: c.Text, Confidence: confidence(c.Confidence)}
	}
	if d := w.DenseCaptionsResult; d != nil {
		r.DenseCaptions = make([]DenseCaption, 0, len(d.Values))
		for _, v := range d.Values {
			if v.Text == "" {
				continue
			}
			r.DenseCaptions = append(r.DenseCaptions, DenseCaption{
				Text: v.Text, Confidence: confidence(v.Confidence), Box: v.BoundingBox.box(),
			})
		}
	}
	if t := w.TagsResult; t != nil {
		r.Tags = tags(t.Values)
	}
	if o := w.ObjectsResult; o != nil {
		r.Objects = make([]DetectedObject, 0, len(o.Values))
		for _, v := range o.Values {
			r.Objects = append(r.Objects, DetectedObject{Tags: tags(v.Tags), Box: v.BoundingBox.box()})
		}
	}
	if p := w.PeopleResult; p != nil {
		r.People = make([]DetectedPerson, 0, len(p.Values))
		for _, v := range p.Values {
			r.People = append(r.People, DetectedPerson{Confidence: confidence(v.Confidence), Box: v.BoundingBox.box()})
		}
	}
	if rd := w.ReadResult; rd != nil {
		r.Read = make([]TextBlock, 0, len(rd.Blocks))
		for _, b := range rd.Blocks {
			var blk TextBlock
			for _, l := range b.Lines {
				line := Line{Text: l.Text, Polygon: points(l.BoundingPolygon)}
				for _, wd := range l.Words {
					line.Words = append(line.Words, Word{
						Text: wd.Text, Confidence: confidence(wd.Confidence), Polygon: points(wd.BoundingPolygon),
					})
				}
				blk.Lines = append(blk.Lines, line)
			}
			r.Read = append(r.Read, blk)
		}
	}
	if s := w.SmartCropsResult; s != nil {
		r.SmartCrops = make([]SmartCrop, 0, len(s.Values))
		for _, v := range s.Values {
			r.SmartCrops = append(r.SmartCrops, SmartCrop{AspectRatio: v.AspectRatio, Box: v.BoundingBox.box()})
		}
	}
	return r
}
