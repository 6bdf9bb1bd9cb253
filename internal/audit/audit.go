// Package audit records one event per moderation request for operator
// review: the verdict, the scores behind it, and which collaborators
// degraded. Delivery is asynchronous and must never block or fail the
// request path.
package audit

import (
	"time"

	"github.com/seemly-ai/seemly/internal/pipeline"
	"github.com/seemly-ai/seemly/internal/policy"
)

// TimingMs carries per-stage latencies.
type TimingMs struct {
	OCR   float64 `json:"ocr"`
	Text  float64 `json:"text"`
	Image float64 `json:"image"`
	Total float64 `json:"total"`
}

// Event is the canonical audit payload, one per request.
type Event struct {
	Version   string             `json:"version"`
	Timestamp time.Time          `json:"timestamp"`
	RequestID string             `json:"request_id"`
	ProjectID string             `json:"project_id,omitempty"`
	Outcome   string             `json:"outcome"`
	Reasons   []string           `json:"reasons"`
	Scores    map[string]float32 `json:"scores,omitempty"`
	Degraded  []string           `json:"degraded,omitempty"`
	TimingMs  TimingMs           `json:"timing_ms"`
}

// BuildEvent assembles the audit event for one completed moderation.
func BuildEvent(requestID, projectID string, res pipeline.Result) *Event {
	reasons := res.Verdict.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return &Event{
		Version:   "1",
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		ProjectID: projectID,
		Outcome:   string(res.Verdict.Outcome),
		Reasons:   reasons,
		Scores:    res.Signals.Scores(),
		Degraded:  res.Degraded,
		TimingMs: TimingMs{
			OCR:   res.Timings.OCRMs,
			Text:  res.Timings.TextMs,
			Image: res.Timings.ImageMs,
			Total: res.Timings.TotalMs,
		},
	}
}

// Unsafe reports whether the recorded outcome was UNSAFE.
func (e *Event) Unsafe() bool {
	return e != nil && e.Outcome == string(policy.OutcomeUnsafe)
}
