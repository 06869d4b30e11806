package models

import "time"

// Document is one uploaded ticket/label design. The raw SVG lives in object
// storage under the key derived from the document id; render jobs reference
// the document, never the key, and re-derive it at submission time.
type Document struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	SVGKey    string     `json:"svg_key"`
	Mime      string     `json:"mime"`
	SizeBytes int64      `json:"size_bytes"`
	Provider  string     `json:"provider"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
