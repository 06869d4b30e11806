// Package renderpayload builds the canonical render payload from the editor's
// freeform parameter bag. Build is the single point where client state is
// normalized into the versioned renderer contract and where submission
// invariants are enforced.
//
// Two failure channels exist and must not be merged: missing or out-of-range
// required fields abort the whole build with a coded error naming the field,
// while malformed entries inside optional collections (fonts, overlays,
// series-list entries) are silently dropped from the output.
package renderpayload

import (
	"strings"

	v1 "tixel/internal/contracts/renderer/v1"
	"tixel/internal/pkg/errors"
)

// Build normalizes, validates, and assembles a render payload. It is pure:
// no I/O, no mutation of the input, same output for the same input.
func Build(in Input) (*v1.RenderJobRequest, error) {
	jobID := strings.TrimSpace(Str(in.JobID))
	if jobID == "" {
		return nil, errors.ValidationField("job_id", "job_id is required")
	}

	documentID := strings.TrimSpace(Str(in.DocumentID))
	if documentID == "" {
		return nil, errors.ValidationField("document_id", "document_id is required")
	}

	object, err := buildObjectMM(in)
	if err != nil {
		return nil, err
	}

	req := &v1.RenderJobRequest{
		JobID:    jobID,
		SVGS3Key: v1.SVGObjectKey(documentID),
		ObjectMM: *object,
	}

	if fonts := filterFonts(in.CustomFonts); len(fonts) > 0 {
		req.CustomFonts = fonts
	}
	if overlays := filterOverlays(in.Overlays, in.SVGOverlays); len(overlays) > 0 {
		req.Overlays = overlays
	}

	// The series list is authoritative when at least one entry survives
	// filtering. The legacy series field then mirrors the first surviving
	// entry, and the flat singular fields are ignored entirely, even when
	// they are individually invalid.
	if list := filterSeriesList(in.SeriesList); len(list) > 0 {
		req.SeriesList = list
		first := list[0]
		req.Series = &first
		return req, nil
	}

	series, err := buildSingularSeries(in)
	if err != nil {
		return nil, err
	}
	req.Series = series

	return req, nil
}

func buildObjectMM(in Input) (*v1.ObjectMM, error) {
	w := NumOrNull(in.ObjectWidthMm)
	if w == nil {
		return nil, errors.ValidationField("object_mm.w", "object width is required")
	}
	if *w <= 0 {
		return nil, errors.OutOfRangeField("object_mm.w", "object width must be > 0")
	}

	h := NumOrNull(in.ObjectHeightMm)
	if h == nil {
		return nil, errors.ValidationField("object_mm.h", "object height is required")
	}
	if *h <= 0 {
		return nil, errors.OutOfRangeField("object_mm.h", "object height must be > 0")
	}

	cutMargin := NumOr(in.CutMarginMm, 0)
	if cutMargin < 0 {
		return nil, errors.OutOfRangeField("object_mm.cut_margin_mm", "cut margin must be >= 0")
	}

	return &v1.ObjectMM{
		W:               *w,
		H:               *h,
		XMm:             NumOrNull(in.ObjectXMm),
		YMm:             NumOrNull(in.ObjectYMm),
		Alignment:       AlignmentOf(in.Alignment),
		RotationDeg:     NumOr(in.RotationDeg, 0),
		KeepProportions: BoolStrict(in.KeepProportions),
		CutMarginMm:     cutMargin,
	}, nil
}

// buildSingularSeries validates the flat single-series fields. Check order is
// part of the contract: start, count, coordinates, font family, font size,
// letter spacing, rotation, color.
func buildSingularSeries(in Input) (*v1.Series, error) {
	// Series text is user content: spaces are meaningful, no trimming.
	start := Str(in.SeriesStart)
	if start == "" {
		return nil, errors.ValidationField("series.start", "series start is required")
	}

	countNum := NumOrNull(in.SeriesCount)
	if countNum == nil {
		return nil, errors.ValidationField("series.count", "series count is required")
	}
	// Counts are whole numbers on the wire. Validate after truncation so a
	// fractional value below 1 cannot slip through as count 0.
	count := int(*countNum)
	if count <= 0 {
		return nil, errors.OutOfRangeField("series.count", "series count must be > 0")
	}

	x := NumOrNull(in.SeriesXMm)
	if x == nil {
		return nil, errors.ValidationField("series.x_mm", "series x position is required")
	}
	y := NumOrNull(in.SeriesYMm)
	if y == nil {
		return nil, errors.ValidationField("series.y_mm", "series y position is required")
	}

	fontFamily := strings.TrimSpace(Str(in.SeriesFontFamily))
	if fontFamily == "" {
		return nil, errors.ValidationField("series.font_family", "series font family is required")
	}

	fontSize := NumOrNull(in.SeriesFontSizeMm)
	if fontSize == nil {
		return nil, errors.ValidationField("series.font_size_mm", "series font size is required")
	}
	if *fontSize <= 0 {
		return nil, errors.OutOfRangeField("series.font_size_mm", "series font size must be > 0")
	}

	letterSpacing := NumOrNull(in.SeriesLetterSpacingMm)
	if letterSpacing == nil {
		return nil, errors.ValidationField("series.letter_spacing_mm", "series letter spacing must be a finite number")
	}

	rotation := NumOrNull(in.SeriesRotationDeg)
	if rotation == nil {
		return nil, errors.ValidationField("series.rotation_deg", "series rotation must be a finite number")
	}

	color := strings.TrimSpace(Str(in.SeriesColor))
	if color == "" {
		return nil, errors.ValidationField("series.color", "series color is required")
	}

	s := &v1.Series{
		Start:           start,
		Count:           count,
		FontFamily:      fontFamily,
		FontSizeMm:      *fontSize,
		AnchorSpace:     v1.AnchorSpaceObjectMM,
		XMm:             *x,
		YMm:             *y,
		LetterSpacingMm: *letterSpacing,
		RotationDeg:     *rotation,
		Color:           color,
		Step:            stepOf(in.SeriesStep),
	}
	if sizes := filterPerLetterSizes(in.SeriesPerLetterFontSizeMm); len(sizes) > 0 {
		s.PerLetterFontSizeMm = sizes
	}

	return s, nil
}

// filterSeriesList maps the editor's series list onto wire entries, dropping
// invalid entries independently instead of failing the request.
func filterSeriesList(entries []SeriesInput) []v1.Series {
	if len(entries) == 0 {
		return nil
	}

	out := make([]v1.Series, 0, len(entries))
	for _, e := range entries {
		s, ok := seriesFromListEntry(e)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func seriesFromListEntry(e SeriesInput) (v1.Series, bool) {
	start := Str(e.Start)
	fontFamily := strings.TrimSpace(Str(e.FontFamily))
	color := strings.TrimSpace(Str(e.Color))
	if start == "" || fontFamily == "" || color == "" {
		return v1.Series{}, false
	}

	countNum := NumOrNull(e.Count)
	if countNum == nil {
		return v1.Series{}, false
	}
	count := int(*countNum)
	if count <= 0 {
		return v1.Series{}, false
	}

	fontSize := NumOrNull(e.FontSizeMm)
	if fontSize == nil || *fontSize <= 0 {
		return v1.Series{}, false
	}

	x := NumOrNull(e.XMm)
	y := NumOrNull(e.YMm)
	if x == nil || y == nil {
		return v1.Series{}, false
	}

	s := v1.Series{
		Start:           start,
		Count:           count,
		FontFamily:      fontFamily,
		FontSizeMm:      *fontSize,
		AnchorSpace:     v1.AnchorSpaceObjectMM,
		XMm:             *x,
		YMm:             *y,
		LetterSpacingMm: NumOr(e.LetterSpacingMm, 0),
		RotationDeg:     NumOr(e.RotationDeg, 0),
		Color:           color,
		Step:            stepOf(e.Step),
	}
	if sizes := filterPerLetterSizes(e.PerLetterFontSizeMm); len(sizes) > 0 {
		s.PerLetterFontSizeMm = sizes
	}

	return s, true
}

// stepOf returns the increment only when explicitly supplied and different
// from the implicit default of 1, keeping the default wire payload minimal.
// A value truncating to 0 is not a usable increment and is treated as absent.
func stepOf(v any) *int {
	n := NumOrNull(v)
	if n == nil {
		return nil
	}
	step := int(*n)
	if step == 0 || step == 1 {
		return nil
	}
	return &step
}

// filterPerLetterSizes keeps only finite positive per-character sizes. The
// renderer zips the result with the series text by index and falls back to
// font_size_mm past its length.
func filterPerLetterSizes(vals []any) []float64 {
	if len(vals) == 0 {
		return nil
	}

	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		n := NumOrNull(v)
		if n == nil || *n <= 0 {
			continue
		}
		out = append(out, *n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func filterFonts(fonts []FontInput) []v1.CustomFont {
	if len(fonts) == 0 {
		return nil
	}

	out := make([]v1.CustomFont, 0, len(fonts))
	for _, f := range fonts {
		family := strings.TrimSpace(Str(f.Family))
		dataURL := Str(f.DataURL)
		if family == "" || dataURL == "" {
			continue
		}
		out = append(out, v1.CustomFont{
			Family:  family,
			DataURL: dataURL,
			Mime:    strings.TrimSpace(Str(f.Mime)),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// filterOverlays concatenates raster overlays before vector overlays,
// dropping entries with non-positive dimensions or missing sources.
func filterOverlays(rasters []RasterOverlayInput, vectors []VectorOverlayInput) []v1.Overlay {
	out := make([]v1.Overlay, 0, len(rasters)+len(vectors))

	for _, o := range rasters {
		dataURL := Str(o.DataURL)
		w := NumOrNull(o.WMm)
		h := NumOrNull(o.HMm)
		if dataURL == "" || w == nil || *w <= 0 || h == nil || *h <= 0 {
			continue
		}
		out = append(out, v1.RasterOverlay{
			DataURL:     dataURL,
			Mime:        strings.TrimSpace(Str(o.Mime)),
			XMm:         NumOr(o.XMm, 0),
			YMm:         NumOr(o.YMm, 0),
			WMm:         *w,
			HMm:         *h,
			RotationDeg: NumOr(o.RotationDeg, 0),
		})
	}

	for _, o := range vectors {
		key := strings.TrimSpace(Str(o.SVGS3Key))
		scale := NumOrNull(o.Scale)
		if key == "" || scale == nil || *scale <= 0 {
			continue
		}
		out = append(out, v1.VectorOverlay{
			Type:        "svg",
			XMm:         NumOr(o.XMm, 0),
			YMm:         NumOr(o.YMm, 0),
			Scale:       *scale,
			RotationDeg: NumOr(o.RotationDeg, 0),
			SVGS3Key:    key,
		})
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
