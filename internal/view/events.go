package view

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
)

const DisconnectedPlayer = "disconnected"

var placeholderPattern = regexp.MustCompile(`\{(\d+)\}`)

type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentPlayer   SegmentKind = "player"
	SegmentCurrency SegmentKind = "currency"
	SegmentBundle   SegmentKind = "bundle"
	SegmentRaw      SegmentKind = "raw"
	SegmentMissing  SegmentKind = "missing"
)

// Segment is one run of formatted event text. Renderers style by Kind.
type Segment struct {
	Kind SegmentKind
	Text string
}

type LogLine struct {
	ID       domain.ObjectID
	Time     time.Time
	Key      string
	Text     string
	Segments []Segment
}

// EventSegments splits an event into literal text and rendered inserts.
// It never fails: an unknown key renders as the key and a placeholder
// without a matching insert renders empty.
func EventSegments(s store.State, event domain.Event) []Segment {
	template, ok := s.Preflight.Text(event.Key)
	if !ok {
		return []Segment{{Kind: SegmentText, Text: event.Key}}
	}

	var segments []Segment
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		if loc[0] > last {
			segments = append(segments, Segment{Kind: SegmentText, Text: template[last:loc[0]]})
		}
		last = loc[1]

		idx, err := strconv.Atoi(template[loc[2]:loc[3]])
		if err != nil || idx >= len(event.Inserts) {
			segments = append(segments, Segment{Kind: SegmentMissing})
			continue
		}
		segments = append(segments, renderInsert(s, event.Inserts[idx]))
	}
	if last < len(template) {
		segments = append(segments, Segment{Kind: SegmentText, Text: template[last:]})
	}

	return segments
}

func FormatEvent(s store.State, event domain.Event) string {
	var b strings.Builder
	for _, segment := range EventSegments(s, event) {
		b.WriteString(segment.Text)
	}
	return b.String()
}

// EventLog renders the event list newest first.
func EventLog(s store.State) []LogLine {
	lines := make([]LogLine, 0, len(s.Events))
	for i := len(s.Events) - 1; i >= 0; i-- {
		event := s.Events[i]
		segments := EventSegments(s, event)

		var b strings.Builder
		for _, segment := range segments {
			b.WriteString(segment.Text)
		}

		lines = append(lines, LogLine{
			ID:       event.ID,
			Time:     event.Time.Time,
			Key:      event.Key,
			Text:     b.String(),
			Segments: segments,
		})
	}
	return lines
}

// FormatAmount prefixes amount with the lobby's currency symbol.
func FormatAmount(s store.State, amount int64) string {
	return string(currencySymbol(s)) + strconv.FormatInt(amount, 10)
}

func currencySymbol(s store.State) domain.Currency {
	if s.Lobby == nil || s.Lobby.Options.Currency == "" {
		return domain.CurrencyDollars
	}
	return s.Lobby.Options.Currency
}

func renderInsert(s store.State, insert domain.Insert) Segment {
	switch insert.Kind {
	case domain.InsertPlayer:
		if s.Lobby != nil {
			if player, ok := s.Lobby.Player(insert.PlayerID); ok {
				return Segment{Kind: SegmentPlayer, Text: player.Name}
			}
		}
		return Segment{Kind: SegmentPlayer, Text: DisconnectedPlayer}

	case domain.InsertCurrency:
		return Segment{Kind: SegmentCurrency, Text: FormatAmount(s, insert.Amount)}

	case domain.InsertBundle:
		if text, ok := s.Preflight.Text(insert.BundleKey); ok {
			return Segment{Kind: SegmentBundle, Text: text}
		}
		return Segment{Kind: SegmentBundle, Text: insert.BundleKey}

	default:
		return Segment{Kind: SegmentRaw, Text: rawText(insert.Value)}
	}
}

// rawText renders a raw insert as compact JSON, so a string keeps its
// quotes. A missing value renders nothing.
func rawText(value json.RawMessage) string {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return ""
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}
