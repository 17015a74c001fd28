package testutil

import (
	"time"

	"github.com/entropix/entropy-certify/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building
// CreateValidationJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateValidationJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults:
// a suite_a validation over the last hour submitted by "tester".
func NewJobRequest() *JobRequestBuilder {
	end := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	return &JobRequestBuilder{
		req: &model.CreateValidationJobRequest{
			Type:        model.ValidationTypeSuiteA,
			WindowStart: end.Add(-time.Hour),
			WindowEnd:   end,
			CreatedBy:   "tester",
		},
	}
}

// WithType sets the validation type.
func (b *JobRequestBuilder) WithType(vt model.ValidationType) *JobRequestBuilder {
	b.req.Type = vt
	return b
}

// WithWindow sets the sample window.
func (b *JobRequestBuilder) WithWindow(start, end time.Time) *JobRequestBuilder {
	b.req.WindowStart = start
	b.req.WindowEnd = end
	return b
}

// WithSubmitter sets the submitting identity.
func (b *JobRequestBuilder) WithSubmitter(submitter string) *JobRequestBuilder {
	b.req.CreatedBy = submitter
	return b
}

// Build returns the constructed request.
func (b *JobRequestBuilder) Build() *model.CreateValidationJobRequest {
	return b.req
}

// SampleBuilder seeds deterministic entropy sample rows for window tests.
type SampleBuilder struct {
	capturedAt time.Time
	interval   time.Duration
	fill       byte
}

// NewSamples creates a SampleBuilder starting at the given time, emitting one
// sample per second.
func NewSamples(start time.Time) *SampleBuilder {
	return &SampleBuilder{capturedAt: start, interval: time.Second, fill: 0xA5}
}

// WithInterval sets the spacing between consecutive samples.
func (b *SampleBuilder) WithInterval(d time.Duration) *SampleBuilder {
	b.interval = d
	return b
}

// WithFill sets the payload fill byte.
func (b *SampleBuilder) WithFill(fill byte) *SampleBuilder {
	b.fill = fill
	return b
}

// Build returns n samples with fixed-size payloads and increasing capture times.
func (b *SampleBuilder) Build(n int) []*model.EntropySample {
	samples := make([]*model.EntropySample, 0, n)
	for i := 0; i < n; i++ {
		payload := make([]byte, model.SamplePayloadBytes)
		for j := range payload {
			payload[j] = b.fill ^ byte(i)
		}
		samples = append(samples, &model.EntropySample{
			CapturedAt: b.capturedAt.Add(time.Duration(i) * b.interval),
			Payload:    payload,
		})
	}
	return samples
}
