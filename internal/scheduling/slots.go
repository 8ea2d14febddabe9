package scheduling

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// ErrMalformedSlots is returned when the free-slots payload is not a JSON object.
var ErrMalformedSlots = errors.New("scheduling: malformed free-slots payload")

// SlotTimestamp is an ISO-8601 start time with an explicit UTC offset, kept
// exactly as the remote service sent it.
type SlotTimestamp string

// SlotMap maps calendar days to their slot start times in remote order.
type SlotMap map[DayKey][]SlotTimestamp

// HasSlots treats a missing day and an empty day the same.
func (m SlotMap) HasSlots(day DayKey) bool {
	return len(m[day]) > 0
}

// SlotsFor returns the slots of day, never nil.
func (m SlotMap) SlotsFor(day DayKey) []SlotTimestamp {
	if slots := m[day]; len(slots) > 0 {
		return slots
	}
	return []SlotTimestamp{}
}

// Days returns the day keys that have at least one slot, sorted.
func (m SlotMap) Days() []DayKey {
	days := make([]DayKey, 0, len(m))
	for day, slots := range m {
		if len(slots) > 0 {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// NormalizeSlots converts the remote per-day listing into a SlotMap.
//
// Day bucketing is trusted from the payload; keys that are not YYYY-MM-DD
// (traceId and friends) are skipped. A slot entry may be a bare string or an
// object with a "slot" field.
func NormalizeSlots(raw []byte) (SlotMap, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrMalformedSlots
	}
	var days map[string]json.RawMessage
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, errors.Join(ErrMalformedSlots, err)
	}

	out := make(SlotMap, len(days))
	for key, value := range days {
		day, ok := ParseDayKey(key)
		if !ok {
			continue
		}
		out[day] = decodeDaySlots(value)
	}
	return out, nil
}

func decodeDaySlots(value json.RawMessage) []SlotTimestamp {
	value = bytes.TrimSpace(value)
	var entries []json.RawMessage
	switch {
	case len(value) == 0:
	case value[0] == '[':
		_ = json.Unmarshal(value, &entries)
	case value[0] == '{':
		var day struct {
			Slots []json.RawMessage `json:"slots"`
		}
		if err := json.Unmarshal(value, &day); err == nil {
			entries = day.Slots
		}
	}

	slots := make([]SlotTimestamp, 0, len(entries))
	for _, entry := range entries {
		if ts := decodeSlot(entry); ts != "" {
			slots = append(slots, ts)
		}
	}
	return slots
}

func decodeSlot(entry json.RawMessage) SlotTimestamp {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return SlotTimestamp(s)
	}
	var obj struct {
		Slot string `json:"slot"`
	}
	if err := json.Unmarshal(entry, &obj); err == nil {
		return SlotTimestamp(obj.Slot)
	}
	return ""
}
