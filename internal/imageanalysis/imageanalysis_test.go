package imageanalysis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vision-lab/internal/invoker"
)

const fullResponse = `{
  "modelVersion": "2023-10-01",
  "metadata": {"width": 800, "height": 600},
  "captionResult": {"text": "a man pointing at a screen", "confidence": 0.7756},
  "denseCaptionsResult": {"values": [
    {"text": "a man in a shirt", "confidence": 0.71, "boundingBox": {"x": 10, "y": 20, "w": 30, "h": 40}}
  ]},
  "tagsResult": {"values": [{"name": "person", "confidence": 0.99}, {"name": "", "confidence": 0.5}]},
  "objectsResult": {"values": [
    {"boundingBox": {"x": 1, "y": 2, "w": 3, "h": 4}, "tags": [{"name": "person", "confidence": 0.9}]}
  ]},
  "peopleResult": {"values": [
    {"boundingBox": {"x": 5, "y": 6, "w": 7, "h": 8}, "confidence": 0.94},
    {"boundingBox": {"x": 0, "y": 0, "w": 1, "h": 1}, "confidence": 0.0012}
  ]},
  "readResult": {"blocks": [{"lines": [{
    "text": "Hello", "boundingPolygon": [{"x": 1, "y": 1}, {"x": 9, "y": 1}, {"x": 9, "y": 5}, {"x": 1, "y": 5}],
    "words": [{"text": "Hello", "confidence": 0.99, "boundingPolygon": [{"x": 1, "y": 1}, {"x": 9, "y": 5}]}]
  }]}]},
  "smartCropsResult": {"values": [{"aspectRatio": 0.9, "boundingBox": {"x": 0, "y": 0, "w": 540, "h": 600}}]}
}`

func newAnalyzer(t *testing.T, h http.HandlerFunc) *Analyzer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAnalyzer(invoker.NewWithHTTPClient(srv.Client()), srv.URL+"/", "vk")
}

func TestAnalyzeURLSendsQueryAndMapsEveryFeature(t *testing.T) {
	var gotQuery, gotPath, gotKey string
	var gotBody []byte
	a := newAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, fullResponse)
	})
	res, err := a.AnalyzeURL(context.Background(), "https://example.com/building.jpg", Options{
		Features:               AllFeatures,
		SmartCropsAspectRatios: []float64{0.9, 1.33},
		GenderNeutralCaption:   true,
	})
	if err != nil {
		t.Fatalf("AnalyzeURL() error = %v", err)
	}
	if gotPath != "/computervision/imageanalysis:analyze" {
		t.Errorf("path = %q", gotPath)
	}
	wantQuery := "api-version=2024-02-01" +
		"&features=caption%2CdenseCaptions%2Cobjects%2Cpeople%2Cread%2CsmartCrops%2Ctags" +
		"&gender-neutral-caption=true&smartcrops-aspect-ratios=0.9%2C1.33"
	if gotQuery != wantQuery {
		t.Errorf("query = %q\nwant    %q", gotQuery, wantQuery)
	}
	if gotKey != "vk" {
		t.Errorf("key header = %q", gotKey)
	}
	if string(gotBody) != `{"url":"https://example.com/building.jpg"}` {
		t.Errorf("body = %s", gotBody)
	}

	want := &Result{
		ModelVersion:  "2023-10-01",
		Metadata:      &Metadata{Width: 800, Height: 600},
		Caption:       &Caption{Text: "a man pointing at a screen", Confidence: 0.7756},
		DenseCaptions: []DenseCaption{{Text: "a man in a shirt", Confidence: 0.71, Box: BoundingBox{10, 20, 30, 40}}},
		Tags:          []Tag{{Name: "person", Confidence: 0.99}},
		Objects:       []DetectedObject{{Tags: []Tag{{Name: "person", Confidence: 0.9}}, Box: BoundingBox{1, 2, 3, 4}}},
		People: []DetectedPerson{
			{Confidence: 0.94, Box: BoundingBox{5, 6, 7, 8}},
			{Confidence: 0.0012, Box: BoundingBox{0, 0, 1, 1}},
		},
		Read: []TextBlock{{Lines: []Line{{
			Text:    "Hello",
			Polygon: []Point{{1, 1}, {9, 1}, {9, 5}, {1, 5}},
			Words:   []Word{{Text: "Hello", Confidence: 0.99, Polygon: []Point{{1, 1}, {9, 5}}}},
		}}}},
		SmartCrops: []SmartCrop{{AspectRatio: 0.9, Box: BoundingBox{0, 0, 540, 600}}},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
	if got := res.PeopleAbove(0.5); len(got) != 1 || got[0].Confidence != 0.94 {
		t.Errorf("PeopleAbove(0.5) = %+v", got)
	}
}

func TestTagsOnlyResponseYieldsOnlyTagRecords(t *testing.T) {
	a := newAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"modelVersion":"2023-10-01","tagsResult":{"values":[
			{"name":"sky","confidence":0.98},{"name":"building","confidence":0.95}]}}`)
	})
	res, err := a.AnalyzeImage(context.Background(), []byte{0x89, 'P', 'N', 'G'}, Options{Features: []Feature{FeatureTags}})
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	recs := res.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %+v, want 2 tags", recs)
	}
	for _, r := range recs {
		if _, ok := r.(Tag); !ok {
			t.Errorf("record %T, want Tag", r)
		}
	}
	for _, f := range AllFeatures {
		if f != FeatureTags && res.Has(f) {
			t.Errorf("Has(%s) = true for a tags-only response", f)
		}
	}
}

func TestPresentButEmptySectionIsDistinctFromAbsent(t *testing.T) {
	a := newAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"peopleResult":{"values":[]}}`)
	})
	res, err := a.AnalyzeURL(context.Background(), "https://example.com/a.jpg", Options{Features: []Feature{FeaturePeople}})
	if err != nil {
		t.Fatalf("AnalyzeURL() error = %v", err)
	}
	if !res.Has(FeaturePeople) || len(res.People) != 0 {
		t.Errorf("people = %#v, want present and empty", res.People)
	}
	if res.Has(FeatureObjects) {
		t.Error("objects should be absent")
	}
}

func TestAnalyzeRequiresFeatures(t *testing.T) {
	called := false
	a := newAnalyzer(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	_, err := a.AnalyzeURL(context.Background(), "https://example.com/a.jpg", Options{})
	if !invoker.IsKind(err, invoker.KindConfiguration) {
		t.Fatalf("KindOf(err) = %v, want configuration", invoker.KindOf(err))
	}
	if called {
		t.Error("no request should be sent without features")
	}
}

func TestAnalyzeInvalidKeyIsServiceFault(t *testing.T) {
	a := newAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`)
	})
	res, err := a.AnalyzeURL(context.Background(), "https://example.com/a.jpg", Options{Features: []Feature{FeatureCaption}})
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	var f *invoker.Fault
	if !errors.As(err, &f) || f.Kind != invoker.KindService || f.StatusCode != 401 {
		t.Fatalf("err = %v, want 401 service fault", err)
	}
}

func TestParseFeatures(t *testing.T) {
	got, err := ParseFeatures("Caption, tags,,READ")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Feature{FeatureCaption, FeatureTags, FeatureRead}, got); diff != "" {
		t.Errorf("features (-want +got):\n%s", diff)
	}
	if _, err := ParseFeatures("faces"); err == nil {
		t.Error("expected error for unknown feature")
	}
}

func TestSegmentSavesBodyByteForByte(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\xff\x00binary")
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	s := NewSegmenter(invoker.NewWithHTTPClient(srv.Client()), srv.URL, "vk")
	body, err := s.SegmentURL(context.Background(), "https://example.com/a.jpg", ModeBackgroundRemoval)
	if err != nil {
		t.Fatalf("SegmentURL() error = %v", err)
	}
	if gotQuery != "api-version=2023-02-01-preview&mode=backgroundRemoval" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAccept != "image/png" {
		t.Errorf("Accept = %q", gotAccept)
	}

	path := filepath.Join(t.TempDir(), "out", "background.png")
	if err := SaveBinary(path, body); err != nil {
		t.Fatalf("SaveBinary() error = %v", err)
	}
	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, png) {
		t.Errorf("saved file differs from response body")
	}
}

func TestSegmentRejectsUnknownMode(t *testing.T) {
	s := NewSegmenter(invoker.New(0), "https://example.cognitiveservices.azure.com", "vk")
	_, err := s.SegmentImage(context.Background(), []byte("img"), Mode("blur"))
	if !invoker.IsKind(err, invoker.KindConfiguration) {
		t.Fatalf("KindOf(err) = %v, want configuration", invoker.KindOf(err))
	}
}

func TestModeOutputName(t *testing.T) {
	if got := ModeBackgroundRemoval.OutputName(); got != "background.png" {
		t.Errorf("background removal output = %q", got)
	}
	if got := ModeForegroundMatting.OutputName(); got != "matte.png" {
		t.Errorf("matting output = %q", got)
	}
}

func TestParseAspectRatios(t *testing.T) {
	got, err := ParseAspectRatios(" 0.9, 1.33 ,")
	if err != nil {
		t.Fatalf("ParseAspectRatios() error = %v", err)
	}
	if diff := cmp.Diff(DefaultAspectRatios, got); diff != "" {
		t.Errorf("ratios (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"wide", "0.5", "2"} {
		if _, err := ParseAspectRatios(bad); err == nil {
			t.Errorf("ParseAspectRatios(%q) accepted", bad)
		}
	}
}
