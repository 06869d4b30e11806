package processor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobPayload is the stored render payload as built at submission time. The
// worker never rebuilds it; it only guards the envelope and forwards the raw
// document to the renderer with an output block attached.
type JobPayload struct {
	JobID    string
	SVGS3Key string
	Raw      map[string]any
}

// HasSeries reports whether the payload carries at least one series in
// either shape.
func (p *JobPayload) HasSeries() bool {
	if list, ok := p.Raw["series_list"].([]any); ok && len(list) > 0 {
		return true
	}
	if s, ok := p.Raw["series"].(map[string]any); ok && len(s) > 0 {
		return true
	}
	return false
}

// ParsePayload unmarshals payload_json and verifies the envelope fields the
// renderer cannot work without. Payloads are validated fully at submission,
// so a failure here means the stored row was tampered with or predates the
// current contract.
func ParsePayload(payloadJSON string) (*JobPayload, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &raw); err != nil {
		return nil, fmt.Errorf("invalid payload_json: %w", err)
	}

	p := &JobPayload{Raw: raw}

	if s, ok := raw["job_id"].(string); ok {
		p.JobID = strings.TrimSpace(s)
	}
	if p.JobID == "" {
		return nil, fmt.Errorf("payload missing job_id")
	}

	if s, ok := raw["svg_s3_key"].(string); ok {
		p.SVGS3Key = strings.TrimSpace(s)
	}
	if p.SVGS3Key == "" {
		return nil, fmt.Errorf("payload missing svg_s3_key")
	}

	if !p.HasSeries() {
		return nil, fmt.Errorf("payload has no series")
	}

	return p, nil
}
