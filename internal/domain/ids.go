package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ObjectID is an opaque backend identifier. On the wire it is either the
// relaxed extended-JSON form {"$oid": "..."} or a bare string.
type ObjectID string

type oidSchema struct {
	OID string `json:"$oid"`
}

func (id ObjectID) String() string {
	return string(id)
}

func (id ObjectID) IsZero() bool {
	return id == ""
}

func (id ObjectID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(oidSchema{OID: string(id)})
}

func (id *ObjectID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("decode object id: %w", err)
		}
		*id = ObjectID(raw)
		return nil
	}

	var wrapped oidSchema
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return fmt.Errorf("decode object id: %w", err)
	}
	*id = ObjectID(wrapped.OID)
	return nil
}

// Timestamp accepts {"$date": "<RFC3339>"}, {"$date": <epoch ms>},
// {"$date": {"$numberLong": "<ms>"}} and bare RFC3339 strings.
type Timestamp struct {
	time.Time
}

var errUnsupportedDate = errors.New("unsupported date encoding")

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Date string `json:"$date"`
	}{Date: t.UTC().Format(time.RFC3339Nano)})
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if trimmed[0] == '{' {
		var wrapped struct {
			Date json.RawMessage `json:"$date"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		trimmed = bytes.TrimSpace(wrapped.Date)
	}

	parsed, err := parseDate(trimmed)
	if err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}

func parseDate(raw []byte) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, nil
	}

	switch raw[0] {
	case '"':
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, value)
	case '{':
		var long struct {
			NumberLong string `json:"$numberLong"`
		}
		if err := json.Unmarshal(raw, &long); err != nil {
			return time.Time{}, err
		}
		ms, err := strconv.ParseInt(long.NumberLong, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		var ms json.Number
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, errUnsupportedDate
		}
		if whole, err := ms.Int64(); err == nil {
			return time.UnixMilli(whole).UTC(), nil
		}
		fractional, err := ms.Float64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(int64(fractional)).UTC(), nil
	}
}
