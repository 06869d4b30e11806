package renderpayload

import (
	"encoding/json"
	"reflect"
	"testing"

	v1 "tixel/internal/contracts/renderer/v1"
	"tixel/internal/pkg/errors"
)

// validInput returns a minimal valid single-series parameter bag:
// 100x50mm artwork, five tickets starting at A001.
func validInput() Input {
	return Input{
		JobID:                 "j1",
		DocumentID:            "d1",
		ObjectWidthMm:         100.0,
		ObjectHeightMm:        50.0,
		SeriesStart:           "A001",
		SeriesCount:           5.0,
		SeriesXMm:             10.0,
		SeriesYMm:             10.0,
		SeriesFontFamily:      "Arial",
		SeriesFontSizeMm:      4.0,
		SeriesLetterSpacingMm: 0.0,
		SeriesRotationDeg:     0.0,
		SeriesColor:           "#000",
	}
}

func validListEntry() SeriesInput {
	return SeriesInput{
		Start:           "A1",
		Count:           3.0,
		FontFamily:      "Arial",
		FontSizeMm:      4.0,
		XMm:             1.0,
		YMm:             1.0,
		LetterSpacingMm: 0.0,
		RotationDeg:     0.0,
		Color:           "#000",
	}
}

func errField(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	field, _ := errors.GetField(err, "field").(string)
	if field == "" {
		t.Fatalf("expected error to name a field, got: %v", err)
	}
	return field
}

func TestBuildSingularSeries(t *testing.T) {
	req, err := Build(validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.JobID != "j1" {
		t.Errorf("expected job_id 'j1', got %q", req.JobID)
	}
	if req.SVGS3Key != "documents/raw/d1.svg" {
		t.Errorf("expected derived svg key, got %q", req.SVGS3Key)
	}
	if req.Series == nil {
		t.Fatal("expected singular series")
	}
	if req.Series.Count != 5 {
		t.Errorf("expected series count 5, got %d", req.Series.Count)
	}
	if req.Series.AnchorSpace != v1.AnchorSpaceObjectMM {
		t.Errorf("expected anchor space %q, got %q", v1.AnchorSpaceObjectMM, req.Series.AnchorSpace)
	}
	if req.Series.Step != nil {
		t.Errorf("expected no step for default increment, got %d", *req.Series.Step)
	}
	if req.SeriesList != nil {
		t.Error("expected no series_list on the singular path")
	}
	if req.CustomFonts != nil {
		t.Error("expected no custom_fonts")
	}
	if req.Overlays != nil {
		t.Error("expected no overlays")
	}
}

func TestBuildRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
		code   errors.Code
	}{
		{"missing job id", func(in *Input) { in.JobID = nil }, "job_id", errors.CodeValidation},
		{"blank job id", func(in *Input) { in.JobID = "   " }, "job_id", errors.CodeValidation},
		{"missing document id", func(in *Input) { in.DocumentID = "" }, "document_id", errors.CodeValidation},
		{"missing width", func(in *Input) { in.ObjectWidthMm = nil }, "object_mm.w", errors.CodeValidation},
		{"zero width", func(in *Input) { in.ObjectWidthMm = 0.0 }, "object_mm.w", errors.CodeOutOfRange},
		{"negative width", func(in *Input) { in.ObjectWidthMm = -5.0 }, "object_mm.w", errors.CodeOutOfRange},
		{"garbage width", func(in *Input) { in.ObjectWidthMm = "wide" }, "object_mm.w", errors.CodeValidation},
		{"missing height", func(in *Input) { in.ObjectHeightMm = nil }, "object_mm.h", errors.CodeValidation},
		{"zero height", func(in *Input) { in.ObjectHeightMm = 0.0 }, "object_mm.h", errors.CodeOutOfRange},
		{"negative cut margin", func(in *Input) { in.CutMarginMm = -1.0 }, "object_mm.cut_margin_mm", errors.CodeOutOfRange},
		{"missing series start", func(in *Input) { in.SeriesStart = nil }, "series.start", errors.CodeValidation},
		{"missing series count", func(in *Input) { in.SeriesCount = nil }, "series.count", errors.CodeValidation},
		{"zero series count", func(in *Input) { in.SeriesCount = 0.0 }, "series.count", errors.CodeOutOfRange},
		{"fractional count below one", func(in *Input) { in.SeriesCount = 0.5 }, "series.count", errors.CodeOutOfRange},
		{"missing series x", func(in *Input) { in.SeriesXMm = nil }, "series.x_mm", errors.CodeValidation},
		{"missing series y", func(in *Input) { in.SeriesYMm = nil }, "series.y_mm", errors.CodeValidation},
		{"missing font family", func(in *Input) { in.SeriesFontFamily = " " }, "series.font_family", errors.CodeValidation},
		{"missing font size", func(in *Input) { in.SeriesFontSizeMm = nil }, "series.font_size_mm", errors.CodeValidation},
		{"zero font size", func(in *Input) { in.SeriesFontSizeMm = 0.0 }, "series.font_size_mm", errors.CodeOutOfRange},
		{"missing letter spacing", func(in *Input) { in.SeriesLetterSpacingMm = nil }, "series.letter_spacing_mm", errors.CodeValidation},
		{"missing rotation", func(in *Input) { in.SeriesRotationDeg = "spin" }, "series.rotation_deg", errors.CodeValidation},
		{"missing color", func(in *Input) { in.SeriesColor = "  " }, "series.color", errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			req, err := Build(in)
			if req != nil {
				t.Fatal("expected no payload on validation failure")
			}
			if got := errField(t, err); got != tt.field {
				t.Errorf("expected error field %q, got %q", tt.field, got)
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
		})
	}
}

func TestBuildFractionalCountTruncates(t *testing.T) {
	in := validInput()
	in.SeriesCount = 5.9

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Series.Count != 5 {
		t.Errorf("expected count 5, got %d", req.Series.Count)
	}

	e := validListEntry()
	e.Count = 3.7
	s, ok := seriesFromListEntry(e)
	if !ok {
		t.Fatal("expected valid entry")
	}
	if s.Count != 3 {
		t.Errorf("expected count 3, got %d", s.Count)
	}
}

func TestBuildValidationOrder(t *testing.T) {
	// With everything missing, failures must surface in the documented order.
	in := Input{}

	order := []struct {
		field  string
		supply func(*Input)
	}{
		{"job_id", func(i *Input) { i.JobID = "j1" }},
		{"document_id", func(i *Input) { i.DocumentID = "d1" }},
		{"object_mm.w", func(i *Input) { i.ObjectWidthMm = 100.0 }},
		{"object_mm.h", func(i *Input) { i.ObjectHeightMm = 50.0 }},
		{"series.start", func(i *Input) { i.SeriesStart = "A001" }},
		{"series.count", func(i *Input) { i.SeriesCount = 5.0 }},
		{"series.x_mm", func(i *Input) { i.SeriesXMm = 10.0 }},
		{"series.y_mm", func(i *Input) { i.SeriesYMm = 10.0 }},
		{"series.font_family", func(i *Input) { i.SeriesFontFamily = "Arial" }},
		{"series.font_size_mm", func(i *Input) { i.SeriesFontSizeMm = 4.0 }},
		{"series.letter_spacing_mm", func(i *Input) { i.SeriesLetterSpacingMm = 0.0 }},
		{"series.rotation_deg", func(i *Input) { i.SeriesRotationDeg = 0.0 }},
		{"series.color", func(i *Input) { i.SeriesColor = "#000" }},
	}

	for _, step := range order {
		_, err := Build(in)
		if got := errField(t, err); got != step.field {
			t.Fatalf("expected next failure on %q, got %q", step.field, got)
		}
		step.supply(&in)
	}

	if _, err := Build(in); err != nil {
		t.Fatalf("expected fully supplied input to build, got: %v", err)
	}
}

func TestBuildSeriesListWins(t *testing.T) {
	in := Input{
		JobID:          "j1",
		DocumentID:     "d1",
		ObjectWidthMm:  100.0,
		ObjectHeightMm: 50.0,
		// Invalid flat fields: ignored entirely once the list has a
		// surviving entry.
		SeriesStart: "",
		SeriesCount: -3.0,
		SeriesList:  []SeriesInput{validListEntry()},
	}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(req.SeriesList) != 1 {
		t.Fatalf("expected series_list of length 1, got %d", len(req.SeriesList))
	}
	if req.Series == nil {
		t.Fatal("expected legacy series mirror")
	}
	if !reflect.DeepEqual(*req.Series, req.SeriesList[0]) {
		t.Errorf("expected series to mirror the first list entry, got %+v vs %+v", *req.Series, req.SeriesList[0])
	}
	if req.Series.Start != "A1" || req.Series.Count != 3 {
		t.Errorf("unexpected mirrored entry: %+v", *req.Series)
	}
}

func TestBuildSeriesListPruning(t *testing.T) {
	bad := validListEntry()
	bad.Count = 0.0

	in := Input{
		JobID:          "j1",
		DocumentID:     "d1",
		ObjectWidthMm:  100.0,
		ObjectHeightMm: 50.0,
		SeriesList:     []SeriesInput{bad, validListEntry()},
	}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("expected invalid list entries to be pruned, not fatal: %v", err)
	}
	if len(req.SeriesList) != 1 {
		t.Fatalf("expected exactly the valid entry to survive, got %d entries", len(req.SeriesList))
	}
	if req.SeriesList[0].Count != 3 {
		t.Errorf("wrong surviving entry: %+v", req.SeriesList[0])
	}
}

func TestBuildSeriesListEntryValidity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SeriesInput)
	}{
		{"empty start", func(e *SeriesInput) { e.Start = "" }},
		{"zero count", func(e *SeriesInput) { e.Count = 0.0 }},
		{"fractional count below one", func(e *SeriesInput) { e.Count = 0.5 }},
		{"zero font size", func(e *SeriesInput) { e.FontSizeMm = 0.0 }},
		{"missing x", func(e *SeriesInput) { e.XMm = nil }},
		{"missing y", func(e *SeriesInput) { e.YMm = "tall" }},
		{"blank font family", func(e *SeriesInput) { e.FontFamily = "  " }},
		{"blank color", func(e *SeriesInput) { e.Color = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validListEntry()
			tt.mutate(&e)

			if _, ok := seriesFromListEntry(e); ok {
				t.Error("expected entry to be dropped")
			}
		})
	}
}

func TestBuildAllListEntriesInvalidFallsBack(t *testing.T) {
	bad := validListEntry()
	bad.FontSizeMm = -1.0

	in := validInput()
	in.SeriesList = []SeriesInput{bad}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SeriesList != nil {
		t.Error("expected no series_list when every entry is invalid")
	}
	if req.Series == nil || req.Series.Start != "A001" {
		t.Errorf("expected fallback to the flat singular series, got %+v", req.Series)
	}
}

func TestBuildIsPure(t *testing.T) {
	in := validInput()
	in.SeriesList = []SeriesInput{validListEntry()}
	in.CustomFonts = []FontInput{{Family: "Gotham", DataURL: "data:font/woff2;base64,AAA", Mime: "font/woff2"}}

	first, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("expected structurally identical output for identical input")
	}
}

func TestBuildDerivedKey(t *testing.T) {
	in := validInput()
	in.DocumentID = "abc123"

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SVGS3Key != "documents/raw/abc123.svg" {
		t.Errorf("expected 'documents/raw/abc123.svg', got %q", req.SVGS3Key)
	}
}

func TestBuildOmitsEmptyCollections(t *testing.T) {
	req, err := Build(validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"custom_fonts", "overlays", "series_list"} {
		if _, present := wire[key]; present {
			t.Errorf("expected %q to be omitted from the wire payload", key)
		}
	}
	if _, present := wire["series"]; !present {
		t.Error("expected series to be present")
	}
}

func TestBuildStepOmission(t *testing.T) {
	t.Run("default increment omitted", func(t *testing.T) {
		in := validInput()
		in.SeriesStep = 1.0

		req, err := Build(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Series.Step != nil {
			t.Errorf("expected no step for increment 1, got %d", *req.Series.Step)
		}
	})

	t.Run("explicit increment kept", func(t *testing.T) {
		in := validInput()
		in.SeriesStep = 2.0

		req, err := Build(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Series.Step == nil || *req.Series.Step != 2 {
			t.Errorf("expected step 2, got %v", req.Series.Step)
		}
	})

	t.Run("fractional step truncating to zero omitted", func(t *testing.T) {
		in := validInput()
		in.SeriesStep = 0.5

		req, err := Build(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Series.Step != nil {
			t.Errorf("expected no step when the increment truncates to 0, got %d", *req.Series.Step)
		}
	})

	t.Run("list entry step", func(t *testing.T) {
		e := validListEntry()
		e.Step = 10.0

		s, ok := seriesFromListEntry(e)
		if !ok {
			t.Fatal("expected valid entry")
		}
		if s.Step == nil || *s.Step != 10 {
			t.Errorf("expected step 10, got %v", s.Step)
		}
	})
}

func TestBuildOverlayOrdering(t *testing.T) {
	in := validInput()
	in.Overlays = []RasterOverlayInput{{
		DataURL:     "data:image/png;base64,AAA",
		Mime:        "image/png",
		XMm:         5.0,
		YMm:         5.0,
		WMm:         20.0,
		HMm:         10.0,
		RotationDeg: 0.0,
	}}
	in.SVGOverlays = []VectorOverlayInput{{
		Type:        "svg",
		XMm:         1.0,
		YMm:         1.0,
		Scale:       1.0,
		RotationDeg: 0.0,
		SVGS3Key:    "overlays/x.svg",
	}}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Overlays) != 2 {
		t.Fatalf("expected 2 overlays, got %d", len(req.Overlays))
	}

	raster, ok := req.Overlays[0].(v1.RasterOverlay)
	if !ok {
		t.Fatalf("expected raster overlay first, got %T", req.Overlays[0])
	}
	if raster.WMm != 20 || raster.HMm != 10 {
		t.Errorf("unexpected raster overlay: %+v", raster)
	}

	vector, ok := req.Overlays[1].(v1.VectorOverlay)
	if !ok {
		t.Fatalf("expected vector overlay second, got %T", req.Overlays[1])
	}
	if vector.Type != "svg" {
		t.Errorf("expected vector type 'svg', got %q", vector.Type)
	}
	if vector.SVGS3Key != "overlays/x.svg" {
		t.Errorf("unexpected vector overlay key: %q", vector.SVGS3Key)
	}
}

func TestBuildOverlayPruning(t *testing.T) {
	in := validInput()
	in.Overlays = []RasterOverlayInput{
		{DataURL: "data:image/png;base64,AAA", WMm: 0.0, HMm: 10.0},  // zero width
		{DataURL: "", WMm: 20.0, HMm: 10.0},                          // no source
		{DataURL: "data:image/png;base64,BBB", WMm: 20.0, HMm: 10.0}, // valid
	}
	in.SVGOverlays = []VectorOverlayInput{
		{SVGS3Key: "overlays/a.svg", Scale: 0.0}, // zero scale
		{SVGS3Key: "", Scale: 1.0},               // no key
	}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("expected invalid overlays to be pruned, not fatal: %v", err)
	}
	if len(req.Overlays) != 1 {
		t.Fatalf("expected 1 surviving overlay, got %d", len(req.Overlays))
	}
	if _, ok := req.Overlays[0].(v1.RasterOverlay); !ok {
		t.Errorf("expected the surviving overlay to be raster, got %T", req.Overlays[0])
	}
}

func TestBuildFontPruning(t *testing.T) {
	in := validInput()
	in.CustomFonts = []FontInput{
		{Family: "", DataURL: "data:font/woff2;base64,AAA"},
		{Family: "Gotham", DataURL: ""},
		{Family: "Gotham", DataURL: "data:font/woff2;base64,BBB", Mime: "font/woff2"},
	}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.CustomFonts) != 1 {
		t.Fatalf("expected 1 surviving font, got %d", len(req.CustomFonts))
	}
	if req.CustomFonts[0].Family != "Gotham" {
		t.Errorf("wrong surviving font: %+v", req.CustomFonts[0])
	}
}

func TestBuildPerLetterSizes(t *testing.T) {
	in := validInput()
	in.SeriesPerLetterFontSizeMm = []any{4.0, "5.5", "tall", -1.0, nil, 0.0}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{4, 5.5}
	if !reflect.DeepEqual(req.Series.PerLetterFontSizeMm, want) {
		t.Errorf("expected per-letter sizes %v, got %v", want, req.Series.PerLetterFontSizeMm)
	}

	in.SeriesPerLetterFontSizeMm = []any{"x", -2.0}
	req, err = Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Series.PerLetterFontSizeMm != nil {
		t.Errorf("expected per-letter sizes omitted when all are invalid, got %v", req.Series.PerLetterFontSizeMm)
	}
}

func TestBuildNumbersAsStrings(t *testing.T) {
	in := Input{
		JobID:                 "j1",
		DocumentID:            "d1",
		ObjectWidthMm:         "100",
		ObjectHeightMm:        "50",
		CutMarginMm:           "2",
		SeriesStart:           "A001",
		SeriesCount:           "5",
		SeriesXMm:             "10",
		SeriesYMm:             "10.5",
		SeriesFontFamily:      "Arial",
		SeriesFontSizeMm:      "4",
		SeriesLetterSpacingMm: "0",
		SeriesRotationDeg:     "90",
		SeriesColor:           "#000",
	}

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ObjectMM.W != 100 || req.ObjectMM.H != 50 {
		t.Errorf("unexpected object dimensions: %+v", req.ObjectMM)
	}
	if req.ObjectMM.CutMarginMm != 2 {
		t.Errorf("expected cut margin 2, got %v", req.ObjectMM.CutMarginMm)
	}
	if req.Series.Count != 5 || req.Series.YMm != 10.5 || req.Series.RotationDeg != 90 {
		t.Errorf("unexpected series: %+v", req.Series)
	}
}

func TestBuildSeriesStartVerbatim(t *testing.T) {
	in := validInput()
	in.SeriesStart = " A 01 "

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Series.Start != " A 01 " {
		t.Errorf("expected series text preserved verbatim, got %q", req.Series.Start)
	}
}

func TestBuildObjectDefaults(t *testing.T) {
	in := validInput()
	in.Alignment = " LEFT "
	in.KeepProportions = "true" // truthy string is not a bool
	in.RotationDeg = "sideways"

	req, err := Build(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.ObjectMM.Alignment != v1.AlignLeft {
		t.Errorf("expected alignment left, got %q", req.ObjectMM.Alignment)
	}
	if req.ObjectMM.KeepProportions {
		t.Error("expected keep_proportions false for non-bool input")
	}
	if req.ObjectMM.RotationDeg != 0 {
		t.Errorf("expected rotation fallback 0, got %v", req.ObjectMM.RotationDeg)
	}
	if req.ObjectMM.XMm != nil || req.ObjectMM.YMm != nil {
		t.Error("expected auto-position (null x/y) when unset")
	}

	raw, _ := json.Marshal(req.ObjectMM)
	var wire map[string]any
	_ = json.Unmarshal(raw, &wire)
	if v, present := wire["x_mm"]; !present || v != nil {
		t.Errorf("expected x_mm to serialize as null, got %v (present=%v)", v, present)
	}
}
