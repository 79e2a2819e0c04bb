package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// elementSize is the width of one float32 element at rest.
const elementSize = 4

// BlobFormat selects how an Embedding is laid out as an opaque blob.
type BlobFormat int

const (
	// FormatRaw is a bare little-endian float32 array. The dimensionality is
	// the blob length divided by 4. sqlite-vec uses the same layout.
	FormatRaw BlobFormat = iota

	// FormatPrefixed is a little-endian uint32 element count followed by that
	// many little-endian float32 values. Blobs written by the legacy embedding
	// scripts use this layout.
	FormatPrefixed
)

func (f BlobFormat) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatPrefixed:
		return "prefixed"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// ParseBlobFormat parses a configured blob format name. An empty name selects
// FormatRaw.
func ParseBlobFormat(s string) (BlobFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return FormatRaw, nil
	case "prefixed":
		return FormatPrefixed, nil
	default:
		return 0, fmt.Errorf("%w: unknown blob format %q (available: raw, prefixed)", ErrInvalidArgument, s)
	}
}

// Encode serializes e into a blob in format f.
func (f BlobFormat) Encode(e Embedding) []byte {
	offset := 0
	if f == FormatPrefixed {
		offset = 4
	}

	buf := make([]byte, offset+len(e)*elementSize)
	if f == FormatPrefixed {
		binary.LittleEndian.PutUint32(buf, uint32(len(e)))
	}
	for i, v := range e {
		binary.LittleEndian.PutUint32(buf[offset+i*elementSize:], math.Float32bits(v))
	}
	return buf
}

// Decode parses a blob written in format f. Malformed blobs fail with
// ErrDecode; they are never truncated or padded.
func (f BlobFormat) Decode(b []byte) (Embedding, error) {
	switch f {
	case FormatRaw:
		return decodeFloats(b)

	case FormatPrefixed:
		if len(b) < 4 {
			return nil, fmt.Errorf("%w: prefixed blob too short: %d bytes", ErrDecode, len(b))
		}
		n := uint64(binary.LittleEndian.Uint32(b))
		if want := 4 + n*elementSize; uint64(len(b)) != want {
			return nil, fmt.Errorf("%w: prefixed blob declares %d elements (%d bytes), got %d bytes",
				ErrDecode, n, want, len(b))
		}
		return decodeFloats(b[4:])

	default:
		return nil, fmt.Errorf("%w: unknown blob format %d", ErrDecode, int(f))
	}
}

func decodeFloats(b []byte) (Embedding, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty embedding blob", ErrDecode)
	}
	if len(b)%elementSize != 0 {
		return nil, fmt.Errorf("%w: invalid embedding blob length %d: must be divisible by %d",
			ErrDecode, len(b), elementSize)
	}

	e := make(Embedding, len(b)/elementSize)
	for i := range e {
		e[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*elementSize:]))
	}
	if err := e.CheckFinite(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return e, nil
}
