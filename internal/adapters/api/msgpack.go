package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// dateExtID is the msgpack extension the backend uses for datetimes: a
// big-endian float64 of seconds since the epoch.
const dateExtID int8 = 0x30

func init() {
	msgpack.RegisterExt(dateExtID, (*packedTime)(nil))
}

type packedTime struct {
	time.Time
}

func (t *packedTime) MarshalMsgpack() ([]byte, error) {
	seconds := float64(t.UnixNano()) / float64(time.Second)
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(seconds))
	return buf, nil
}

func (t *packedTime) UnmarshalMsgpack(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("decode packed date: want 8 bytes, got %d", len(b))
	}
	seconds := math.Float64frombits(binary.BigEndian.Uint64(b))
	t.Time = time.UnixMilli(int64(math.Round(seconds * 1000))).UTC()
	return nil
}

// MarshalJSON hands packed dates to the JSON domain decoder in the same
// shape the JSON API uses.
func (t packedTime) MarshalJSON() ([]byte, error) {
	return domain.NewTimestamp(t.Time).MarshalJSON()
}

// decodeMsgpackEnvelope normalizes a msgpack body into the JSON envelope.
// The msgpack API reports errors under "__error__" and may send the payload
// unwrapped.
func decodeMsgpackEnvelope(raw []byte) (envelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return envelope{}, errEmptyResponse
	}

	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return envelope{}, fmt.Errorf("decode msgpack response: %w", err)
	}

	for _, key := range []string{"error", "__error__"} {
		if msg, ok := body[key].(string); ok && msg != "" {
			return envelope{Error: msg}, nil
		}
	}

	var payload any = body
	if wrapped, ok := body["payload"]; ok {
		payload = wrapped
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("normalize msgpack payload: %w", err)
	}
	return envelope{Payload: encoded}, nil
}

// EncodeMsgpack packs v with the backend's extensions registered. The
// fake backend uses it to serve the msgpack API.
func EncodeMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackTime wraps t so EncodeMsgpack emits the backend's date extension.
func PackTime(t time.Time) any {
	return &packedTime{Time: t}
}
