package processor

import (
	"fmt"
	"strings"
)

// OutputKeys holds the object keys the renderer writes its results to.
type OutputKeys struct {
	PDF     string
	Preview string
}

// GenerateOutputKeys derives the per-job output locations: the print-ready
// PDF and a raster preview of the first ticket.
func GenerateOutputKeys(jobID string) *OutputKeys {
	return &OutputKeys{
		PDF:     fmt.Sprintf("renders/%s/ticket.pdf", jobID),
		Preview: fmt.Sprintf("renders/%s/preview.png", jobID),
	}
}

// NullIfEmpty returns nil for blank strings, for nullable DB columns.
func NullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
