package grassapi

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const bufferTag = "Buffer"

type proofEntry struct {
	Data json.RawMessage `json:"data"`
}

// typedBuffer is the Node.js Buffer JSON form: {"type":"Buffer","data":[...]}.
type typedBuffer struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// positionalBuffer is the older tuple-like form: {"0":"Buffer","1":"<payload>"}.
type positionalBuffer struct {
	Tag     string `json:"0"`
	Payload string `json:"1"`
}

// DecodeProof turns the receipt's claimProof JSON into ordered 32-byte nodes.
// Well-formed buffers with another tag or length are dropped. Any entry that
// does not have a buffer shape makes the whole proof empty.
func DecodeProof(claimProof string) [][32]byte {
	var entries []proofEntry
	if err := json.Unmarshal([]byte(claimProof), &entries); err != nil {
		return [][32]byte{}
	}
	out := make([][32]byte, 0, len(entries))
	for _, e := range entries {
		b, tag, ok := decodeBuffer(e.Data)
		if !ok {
			return [][32]byte{}
		}
		if tag != bufferTag || len(b) != 32 {
			continue
		}
		out = append(out, [32]byte(b))
	}
	return out
}

// decodeBuffer returns the tag and payload of one entry, ok=false when the
// entry matches neither buffer form.
func decodeBuffer(raw json.RawMessage) ([]byte, string, bool) {
	if len(raw) == 0 {
		return nil, "", false
	}

	var tb typedBuffer
	if err := json.Unmarshal(raw, &tb); err == nil && tb.Type != "" {
		b, ok := byteValues(tb.Data)
		return b, tb.Type, ok
	}

	var pb positionalBuffer
	if err := json.Unmarshal(raw, &pb); err == nil && pb.Tag != "" {
		b, ok := decodeStringPayload(pb.Payload)
		return b, pb.Tag, ok
	}
	return nil, "", false
}

// byteValues accepts only a JSON array of integers in [0, 255].
func byteValues(raw json.RawMessage) ([]byte, bool) {
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, false
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, false
		}
		out[i] = byte(v)
	}
	return out, true
}

func decodeStringPayload(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(strings.TrimPrefix(s, "0x")); err == nil {
		return b, true
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}
