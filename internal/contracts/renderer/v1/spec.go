// Package v1 defines the wire contract between the editor backend and the
// renderer HTTP service. A RenderJobRequest is built once per "generate"
// action, serialized exactly once, and consumed by the renderer; field names
// and the documents/raw key convention are frozen; changing either is a
// breaking wire-format change.
package v1

import "fmt"

// AnchorSpaceObjectMM is the only coordinate frame series positions are
// expressed in: relative to object_mm, never the raw page.
const AnchorSpaceObjectMM = "object_mm"

// Alignment tags accepted in ObjectMM.Alignment.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// SVGObjectKey returns the deterministic storage key for a source document.
// The renderer and the storage service both rely on this convention.
func SVGObjectKey(documentID string) string {
	return fmt.Sprintf("documents/raw/%s.svg", documentID)
}

// RenderJobRequest is the canonical render payload. Optional collections are
// omitted entirely when empty to keep the wire payload minimal.
//
// Series and SeriesList may both be present: SeriesList is authoritative and
// Series then mirrors its first entry for consumers not yet migrated to the
// plural shape.
type RenderJobRequest struct {
	JobID       string       `json:"job_id"`
	SVGS3Key    string       `json:"svg_s3_key"`
	CustomFonts []CustomFont `json:"custom_fonts,omitempty"`
	Overlays    []Overlay    `json:"overlays,omitempty"`
	ObjectMM    ObjectMM     `json:"object_mm"`
	Series      *Series      `json:"series,omitempty"`
	SeriesList  []Series     `json:"series_list,omitempty"`
}

// CustomFont is a font embedded inline for the renderer.
type CustomFont struct {
	Family  string `json:"family"`
	DataURL string `json:"data_url"`
	Mime    string `json:"mime,omitempty"`
}

// ObjectMM is the physical placement rectangle of the artwork on the output
// medium, in millimeters. XMm/YMm are null when the renderer should
// auto-position the artwork.
type ObjectMM struct {
	W               float64  `json:"w"`
	H               float64  `json:"h"`
	XMm             *float64 `json:"x_mm"`
	YMm             *float64 `json:"y_mm"`
	Alignment       string   `json:"alignment"`
	RotationDeg     float64  `json:"rotation_deg"`
	KeepProportions bool     `json:"keep_proportions"`
	CutMarginMm     float64  `json:"cut_margin_mm"`
}

// Series describes one auto-incrementing text run placed per output unit.
// Step is emitted only when the increment differs from the implicit default
// of 1. PerLetterFontSizeMm, when present, is zipped with the text by index;
// the renderer falls back to FontSizeMm past its length.
type Series struct {
	Start               string    `json:"start"`
	Count               int       `json:"count"`
	FontFamily          string    `json:"font_family"`
	FontSizeMm          float64   `json:"font_size_mm"`
	PerLetterFontSizeMm []float64 `json:"per_letter_font_size_mm,omitempty"`
	AnchorSpace         string    `json:"anchor_space"`
	XMm                 float64   `json:"x_mm"`
	YMm                 float64   `json:"y_mm"`
	LetterSpacingMm     float64   `json:"letter_spacing_mm"`
	RotationDeg         float64   `json:"rotation_deg"`
	Color               string    `json:"color"`
	Step                *int      `json:"step,omitempty"`
}

// Overlay is the tagged union of the two overlay kinds composited onto the
// output in addition to the base artwork. Raster overlays always precede
// vector overlays in RenderJobRequest.Overlays.
type Overlay interface {
	overlay()
}

// RasterOverlay is an inline bitmap overlay.
type RasterOverlay struct {
	DataURL     string  `json:"data_url"`
	Mime        string  `json:"mime,omitempty"`
	XMm         float64 `json:"x_mm"`
	YMm         float64 `json:"y_mm"`
	WMm         float64 `json:"w_mm"`
	HMm         float64 `json:"h_mm"`
	RotationDeg float64 `json:"rotation_deg"`
}

func (RasterOverlay) overlay() {}

// VectorOverlay references an SVG overlay already uploaded to storage.
// Type is always "svg".
type VectorOverlay struct {
	Type        string  `json:"type"`
	XMm         float64 `json:"x_mm"`
	YMm         float64 `json:"y_mm"`
	Scale       float64 `json:"scale"`
	RotationDeg float64 `json:"rotation_deg"`
	SVGS3Key    string  `json:"svg_s3_key"`
}

func (VectorOverlay) overlay() {}
