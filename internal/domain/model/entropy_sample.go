package model

import "time"

// SamplePayloadBytes is the fixed payload size of one entropy measurement record.
const SamplePayloadBytes = 32

// EntropySample is one raw physical-entropy measurement. Samples are produced
// by the ingestion pipeline (out of scope here) and read back as validation input.
type EntropySample struct {
	ID         int64     `json:"id"          db:"id"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
	Payload    []byte    `json:"payload"     db:"payload"`
}
