package renderpayload

// Input is the flat parameter bag submitted by the browser editor on a
// "generate output" action. Fields typed any may arrive as numbers, strings
// holding numbers, or be missing entirely; the coercion helpers normalize
// them. The flat series* fields describe the legacy single-series shape and
// are ignored whenever SeriesList yields at least one valid entry.
type Input struct {
	JobID      any `json:"jobId"`
	DocumentID any `json:"documentId"`

	ObjectWidthMm   any `json:"objectWidthMm"`
	ObjectHeightMm  any `json:"objectHeightMm"`
	ObjectXMm       any `json:"objectXMm"`
	ObjectYMm       any `json:"objectYMm"`
	Alignment       any `json:"alignment"`
	RotationDeg     any `json:"rotationDeg"`
	KeepProportions any `json:"keepProportions"`
	CutMarginMm     any `json:"cutMarginMm"`

	SeriesStart               any   `json:"seriesStart"`
	SeriesCount               any   `json:"seriesCount"`
	SeriesXMm                 any   `json:"seriesXMm"`
	SeriesYMm                 any   `json:"seriesYMm"`
	SeriesFontFamily          any   `json:"seriesFontFamily"`
	SeriesFontSizeMm          any   `json:"seriesFontSizeMm"`
	SeriesLetterSpacingMm     any   `json:"seriesLetterSpacingMm"`
	SeriesRotationDeg         any   `json:"seriesRotationDeg"`
	SeriesColor               any   `json:"seriesColor"`
	SeriesStep                any   `json:"seriesStep"`
	SeriesPerLetterFontSizeMm []any `json:"seriesPerLetterFontSizeMm"`

	SeriesList []SeriesInput `json:"seriesList"`

	CustomFonts []FontInput          `json:"customFonts"`
	Overlays    []RasterOverlayInput `json:"overlays"`
	SVGOverlays []VectorOverlayInput `json:"svgOverlays"`
}

// SeriesInput is one entry of the editor's series list (the current,
// multi-slot shape).
type SeriesInput struct {
	Start               any   `json:"start"`
	Count               any   `json:"count"`
	FontFamily          any   `json:"fontFamily"`
	FontSizeMm          any   `json:"fontSizeMm"`
	PerLetterFontSizeMm []any `json:"perLetterFontSizeMm"`
	XMm                 any   `json:"xMm"`
	YMm                 any   `json:"yMm"`
	LetterSpacingMm     any   `json:"letterSpacingMm"`
	RotationDeg         any   `json:"rotationDeg"`
	Color               any   `json:"color"`
	Step                any   `json:"step"`
}

// FontInput is one uploaded custom font as the font collaborator returns it.
type FontInput struct {
	Family  any `json:"family"`
	DataURL any `json:"dataUrl"`
	Mime    any `json:"mime"`
}

// RasterOverlayInput is an inline bitmap overlay placement.
type RasterOverlayInput struct {
	DataURL     any `json:"dataUrl"`
	Mime        any `json:"mime"`
	XMm         any `json:"xMm"`
	YMm         any `json:"yMm"`
	WMm         any `json:"wMm"`
	HMm         any `json:"hMm"`
	RotationDeg any `json:"rotationDeg"`
}

// VectorOverlayInput is an SVG overlay placement referencing an object
// already uploaded to storage.
type VectorOverlayInput struct {
	Type        any `json:"type"`
	XMm         any `json:"xMm"`
	YMm         any `json:"yMm"`
	Scale       any `json:"scale"`
	RotationDeg any `json:"rotationDeg"`
	SVGS3Key    any `json:"svgS3Key"`
}
