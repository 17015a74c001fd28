// Package chunker splits a concatenated bitstream buffer into bounded-size
// pieces sized to satisfy an external test engine's input constraints.
package chunker

import (
	"errors"
	"fmt"
)

// Policy bounds the chunks produced for one validation type.
type Policy struct {
	// MaxChunkBytes is the largest chunk the executor accepts.
	MaxChunkBytes int
	// MinChunkBytes is the smallest acceptable trailing chunk of a multi-chunk
	// split. A single-chunk result may be smaller.
	MinChunkBytes int
	// MinBits is the smallest total sample the executor will evaluate.
	MinBits int
}

// Validate checks the policy for internal consistency. A policy whose maximum
// chunk cannot hold the minimum usable sample can never produce an acceptable
// chunk, so splitting must not be attempted.
func (p Policy) Validate() error {
	if p.MaxChunkBytes <= 0 {
		return errors.New("max chunk bytes must be positive")
	}
	if p.MinChunkBytes < 0 {
		return errors.New("min chunk bytes must not be negative")
	}
	if p.MinChunkBytes > p.MaxChunkBytes {
		return fmt.Errorf("min chunk bytes %d exceeds max chunk bytes %d", p.MinChunkBytes, p.MaxChunkBytes)
	}
	if p.MaxChunkBytes*8 < p.MinBits {
		return fmt.Errorf("max chunk of %d bytes holds fewer than the minimum %d bits", p.MaxChunkBytes, p.MinBits)
	}
	return nil
}

// Split partitions data into ordered slices whose concatenation equals data
// exactly. Every slice is at most MaxChunkBytes long, and whenever data is
// longer than MaxChunkBytes the final slice is at least MinChunkBytes long:
// a full-size chunk that would leave a sub-minimum tail is shrunk so the tail
// is pushed up to the minimum instead. Slices alias the input buffer.
func Split(data []byte, p Policy) ([][]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if len(data) <= p.MaxChunkBytes {
		return [][]byte{data}, nil
	}

	chunks := make([][]byte, 0, (len(data)+p.MaxChunkBytes-1)/p.MaxChunkBytes)
	for offset := 0; offset < len(data); {
		remaining := len(data) - offset
		chunkSize := min(p.MaxChunkBytes, remaining)
		if remaining > p.MaxChunkBytes && remaining-chunkSize < p.MinChunkBytes {
			chunkSize = remaining - p.MinChunkBytes
		}
		chunks = append(chunks, data[offset:offset+chunkSize])
		offset += chunkSize
	}
	return chunks, nil
}
