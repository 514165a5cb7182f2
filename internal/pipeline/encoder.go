package pipeline

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	EncodingUTF8 = "utf8"
	EncodingCBOR = "cbor"
)

// Encoder turns the content hash into the bytes handed to the consumer.
type Encoder interface {
	Encode(contentHash string) ([]byte, error)
	Name() string
}

// UTF8Encoder emits the raw UTF-8 bytes of the hash. The response carries
// nothing else, so the consumer decodes it with a plain bytes-to-string cast.
type UTF8Encoder struct{}

func (UTF8Encoder) Encode(contentHash string) ([]byte, error) {
	if contentHash == "" {
		return nil, malformedError(StageEncoding, "empty content hash")
	}
	return []byte(contentHash), nil
}

func (UTF8Encoder) Name() string { return EncodingUTF8 }

// CBOREncoder emits a CBOR text string (major type 3), which carries its own
// length prefix.
type CBOREncoder struct{}

func (CBOREncoder) Encode(contentHash string) ([]byte, error) {
	if contentHash == "" {
		return nil, malformedError(StageEncoding, "empty content hash")
	}
	out, err := cbor.Marshal(contentHash)
	if err != nil {
		return nil, fmt.Errorf("cbor encode content hash: %w", err)
	}
	return out, nil
}

func (CBOREncoder) Name() string { return EncodingCBOR }

// NewEncoder resolves an encoding name; empty selects utf8.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", EncodingUTF8:
		return UTF8Encoder{}, nil
	case EncodingCBOR:
		return CBOREncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported result encoding %q", name)
	}
}
