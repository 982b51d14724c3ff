package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Event struct {
	ID      ObjectID  `json:"_id"`
	Time    Timestamp `json:"time"`
	Key     string    `json:"key"`
	Inserts []Insert  `json:"inserts"`
}

type InsertKind string

const (
	InsertPlayer   InsertKind = "player"
	InsertCurrency InsertKind = "currency"
	InsertBundle   InsertKind = "bundle"
	// InsertRaw holds anything that did not decode into one of the known
	// kinds. Tag keeps the unrecognized kind name, if there was one.
	InsertRaw InsertKind = "raw"
)

// Insert is one template parameter of an event. Exactly the field matching
// Kind is meaningful.
type Insert struct {
	Kind      InsertKind
	PlayerID  ObjectID
	Amount    int64
	BundleKey string
	Tag       string
	Value     json.RawMessage
}

func PlayerInsert(id ObjectID) Insert {
	return Insert{Kind: InsertPlayer, PlayerID: id}
}

func CurrencyInsert(amount int64) Insert {
	return Insert{Kind: InsertCurrency, Amount: amount}
}

func BundleInsert(key string) Insert {
	return Insert{Kind: InsertBundle, BundleKey: key}
}

func RawInsert(tag string, value json.RawMessage) Insert {
	return Insert{Kind: InsertRaw, Tag: tag, Value: value}
}

func (in Insert) MarshalJSON() ([]byte, error) {
	switch in.Kind {
	case InsertPlayer:
		return json.Marshal([]any{string(InsertPlayer), in.PlayerID})
	case InsertCurrency:
		return json.Marshal([]any{string(InsertCurrency), in.Amount})
	case InsertBundle:
		return json.Marshal([]any{string(InsertBundle), in.BundleKey})
	default:
		value := in.Value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		if in.Tag == "" {
			return value, nil
		}
		return json.Marshal([]any{in.Tag, value})
	}
}

// UnmarshalJSON never fails on well-formed JSON: shapes it does not
// recognize become raw inserts so rendering can degrade instead of crash.
func (in *Insert) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return fmt.Errorf("decode event insert: invalid json")
	}

	*in = decodeInsert(trimmed)
	return nil
}

func decodeInsert(data []byte) Insert {
	raw := Insert{Kind: InsertRaw, Value: append(json.RawMessage(nil), data...)}
	if len(data) == 0 || data[0] != '[' {
		return raw
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
		return raw
	}

	var tag string
	if err := json.Unmarshal(pair[0], &tag); err != nil {
		return raw
	}
	value := append(json.RawMessage(nil), bytes.TrimSpace(pair[1])...)
	fallback := RawInsert(tag, value)

	switch InsertKind(tag) {
	case InsertPlayer:
		var id ObjectID
		if err := json.Unmarshal(value, &id); err != nil || id == "" {
			return fallback
		}
		return PlayerInsert(id)

	case InsertCurrency:
		var amount json.Number
		if err := json.Unmarshal(value, &amount); err != nil {
			return fallback
		}
		whole, err := amount.Int64()
		if err != nil {
			return fallback
		}
		return CurrencyInsert(whole)

	case InsertBundle:
		var key string
		if err := json.Unmarshal(value, &key); err != nil {
			return fallback
		}
		return BundleInsert(key)

	default:
		return fallback
	}
}
