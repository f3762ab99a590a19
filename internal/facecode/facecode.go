// Package facecode implements the interchange encoding for face embeddings:
// 128 little-endian IEEE-754 float64 values (1024 bytes) wrapped in standard
// base64. The layout is a compatibility contract with previously stored data
// and must round-trip bit for bit.
package facecode

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// Dim is the embedding dimensionality.
	Dim = 128
	// ByteLen is the raw payload size: Dim float64 values.
	ByteLen = Dim * 8
)

var (
	// ErrInvalidEncoding means the payload is not valid base64.
	ErrInvalidEncoding = errors.New("embedding encoding is not valid base64")

	// ErrBadLength means the decoded payload is not exactly ByteLen bytes.
	ErrBadLength = errors.New("embedding payload has wrong length")
)

// Marshal packs an embedding into the interchange text form.
func Marshal(embedding []float64) (string, error) {
	if len(embedding) != Dim {
		return "", fmt.Errorf("%w: %d values, want %d", ErrBadLength, len(embedding), Dim)
	}
	buf := make([]byte, ByteLen)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Unmarshal unpacks the interchange text form into an embedding.
func Unmarshal(encoded string) ([]float64, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(buf) != ByteLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadLength, len(buf), ByteLen)
	}
	out := make([]float64, Dim)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}
