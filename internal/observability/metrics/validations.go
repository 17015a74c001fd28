// Package metrics emits standardised validation lifecycle metrics.
package metrics

import (
	"time"

	obserrors "github.com/entropix/entropy-certify/internal/observability/errors"
	"github.com/entropix/entropy-certify/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// ValidationMetric captures details about a validation lifecycle event.
type ValidationMetric struct {
	ValidationType string
	Transition     string
	Result         string
	Duration       time.Duration
	Err            error
}

// EmitValidationLifecycle emits a transition counter and, when a duration is
// known, a timing metric with the same tags.
func EmitValidationLifecycle(sink statsd.Sink, in ValidationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"validation_type": in.ValidationType,
		"transition":      in.Transition,
		"result":          in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("validation.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("validation.duration", in.Duration, CloneTags(tags))
	}
}

// EmitChunkProgress records per-chunk progress for a running validation.
func EmitChunkProgress(sink statsd.Sink, validationType string, currentChunk, totalChunks int) {
	if sink == nil || totalChunks <= 0 {
		return
	}
	sink.Gauge("validation.chunk_progress", float64(currentChunk*100/totalChunks), map[string]string{
		"validation_type": validationType,
	})
}

// CloneTags creates a shallow copy of a tag map, filtering out nothing.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
