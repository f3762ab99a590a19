package facecode

import (
	"encoding/base64"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestRoundTrip_RandomVectors(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 1000; n++ {
		in := make([]float64, Dim)
		for i := range in {
			// NormFloat64 covers sign, magnitude and subnormal-adjacent
			// values better than Float64's [0,1) range.
			in[i] = rng.NormFloat64() * math.Pow(10, float64(rng.Intn(7)-3))
		}

		encoded, err := Marshal(in)
		if err != nil {
			t.Fatalf("Marshal failed on vector %d: %v", n, err)
		}
		out, err := Unmarshal(encoded)
		if err != nil {
			t.Fatalf("Unmarshal failed on vector %d: %v", n, err)
		}
		for i := range in {
			if math.Float64bits(in[i]) != math.Float64bits(out[i]) {
				t.Fatalf("vector %d component %d: %x != %x after round trip",
					n, i, math.Float64bits(in[i]), math.Float64bits(out[i]))
			}
		}
	}
}

func TestRoundTrip_SpecialValues(t *testing.T) {
	in := make([]float64, Dim)
	in[0] = math.Inf(1)
	in[1] = math.Inf(-1)
	in[2] = math.NaN()
	in[3] = math.Copysign(0, -1)
	in[4] = math.SmallestNonzeroFloat64
	in[5] = math.MaxFloat64

	encoded, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out, err := Unmarshal(encoded)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for i := range in {
		if math.Float64bits(in[i]) != math.Float64bits(out[i]) {
			t.Errorf("component %d not bit-identical after round trip", i)
		}
	}
}

func TestMarshal_WrongDimension(t *testing.T) {
	if _, err := Marshal(make([]float64, 64)); !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength for short vector, got %v", err)
	}
	if _, err := Marshal(nil); !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength for nil vector, got %v", err)
	}
}

func TestUnmarshal_WrongByteLength(t *testing.T) {
	short := base64.StdEncoding.EncodeToString(make([]byte, 512))
	if _, err := Unmarshal(short); !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength for 512-byte payload, got %v", err)
	}

	long := base64.StdEncoding.EncodeToString(make([]byte, ByteLen+8))
	if _, err := Unmarshal(long); !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength for oversized payload, got %v", err)
	}
}

func TestUnmarshal_InvalidBase64(t *testing.T) {
	if _, err := Unmarshal("!!! not base64 !!!"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestKnownLayout(t *testing.T) {
	// 1.0 is 0x3FF0000000000000; little-endian puts the zero bytes first.
	in := make([]float64, Dim)
	in[0] = 1.0

	encoded, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if len(raw) != ByteLen {
		t.Fatalf("payload is %d bytes, want %d", len(raw), ByteLen)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F}
	for i, b := range want {
		if raw[i] != b {
			t.Fatalf("byte %d = %#x, want %#x (little-endian float64)", i, raw[i], b)
		}
	}
}
