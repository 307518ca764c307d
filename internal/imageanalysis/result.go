package imageanalysis

// BoundingBox is in pixels of the analysed image.
type BoundingBox struct {
	X, Y, Width, Height int
}

type Point struct {
	X, Y int
}

type Metadata struct {
	Width, Height int
}

type Caption struct {
	Text       string
	Confidence float64
}

type DenseCaption struct {
	Text       string
	Confidence float64
	Box        BoundingBox
}

type Tag struct {
	Name       string
	Confidence float64
}

// DetectedObject carries the tags the service attached to one box; the first tag is the best one.
type DetectedObject struct {
	Tags []Tag
	Box  BoundingBox
}

// Name is the top tag name, or "" when the service sent none.
func (o DetectedObject) Name() string {
	if len(o.Tags) == 0 {
		return ""
	}
	return o.Tags[0].Name
}

// Confidence of the top tag.
func (o DetectedObject) Confidence() float64 {
	if len(o.Tags) == 0 {
		return 0
	}
	return o.Tags[0].Confidence
}

type DetectedPerson struct {
	Confidence float64
	Box        BoundingBox
}

type Word struct {
	Text       string
	Confidence float64
	Polygon    []Point
}

type Line struct {
	Text    string
	Polygon []Point
	Words   []Word
}

type TextBlock struct {
	Lines []Line
}

type SmartCrop struct {
	AspectRatio float64
	Box         BoundingBox
}

// Result holds whatever features the service returned. A nil pointer or nil slice means the
// feature was absent from the response; an empty non-nil slice means it was present with no values.
type Result struct {
	ModelVersion  string
	Metadata      *Metadata
	Caption       *Caption
	DenseCaptions []DenseCaption
	Tags          []Tag
	Objects       []DetectedObject
	People        []DetectedPerson
	Read          []TextBlock
	SmartCrops    []SmartCrop
}

// Has reports whether f was present in the response.
func (r *Result) Has(f Feature) bool {
	switch f {
	case FeatureCaption:
		return r.Caption != nil
	case FeatureDenseCaptions:
		return r.DenseCaptions != nil
	case FeatureTags:
		return r.Tags != nil
	case FeatureObjects:
		return r.Objects != nil
	case FeaturePeople:
		return r.People != nil
	case FeatureRead:
		return r.Read != nil
	case FeatureSmartCrops:
		return r.SmartCrops != nil
	}
	return false
}

// Record is one of Caption, DenseCaption, Tag, DetectedObject, DetectedPerson, TextBlock or SmartCrop.
type Record interface {
	Feature() Feature
}

func (Caption) Feature() Feature        { return FeatureCaption }
func (DenseCaption) Feature() Feature   { return FeatureDenseCaptions }
func (Tag) Feature() Feature            { return FeatureTags }
func (DetectedObject) Feature() Feature { return FeatureObjects }
func (DetectedPerson) Feature() Feature { return FeaturePeople }
func (TextBlock) Feature() Feature      { return FeatureRead }
func (SmartCrop) Feature() Feature      { return FeatureSmartCrops }

// Records flattens the result in a fixed feature order: caption, dense captions, tags,
// objects, people, read, smart crops.
func (r *Result) Records() []Record {
	var out []Record
	if r.Caption != nil {
		out = append(out, *r.Caption)
	}
	for _, v := range r.DenseCaptions {
		out = append(out, v)
	}
	for _, v := range r.Tags {
		out = append(out, v)
	}
	for _, v := range r.Objects {
		out = append(out, v)
	}
	for _, v := range r.People {
		out = append(out, v)
	}
	for _, v := range r.Read {
		out = append(out, v)
	}
	for _, v := range r.SmartCrops {
		out = append(out, v)
	}
	return out
}

// PeopleAbove returns people detected with confidence strictly greater than min.
func (r *Result) PeopleAbove(min float64) []DetectedPerson {
	var out []DetectedPerson
	for _, p := range r.People {
		if p.Confidence > min {
			out = append(out, p)
		}
	}
	return out
}
