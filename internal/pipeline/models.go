package pipeline

import "encoding/hex"

// Request is one fulfillment request. RequestID is an opaque correlation
// token and is forwarded verbatim into the pin metadata.
type Request struct {
	RequestID string `json:"requestId"`
	Location  string `json:"location"`
	Keyword   string `json:"keyword"`
}

// Credentials are resolved per run and must never be logged.
type Credentials struct {
	ImageAPIKey   string
	PinningAPIKey string
}

// GeneratedImage lives only between the generation and publication stages.
type GeneratedImage struct {
	URL string
}

// Result is the successful outcome of a run.
type Result struct {
	RequestID   string
	ContentHash string
	Encoded     []byte
}

// Hex renders the encoded result as a 0x-prefixed hex string, the form the
// job sink and the CLI hand to on-chain tooling.
func (r *Result) Hex() string {
	return "0x" + hex.EncodeToString(r.Encoded)
}
