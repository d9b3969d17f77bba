package entity

import (
	"encoding/json"
	"time"
)

type StatusHistoryEntry struct {
	Status    BookingStatus `json:"status"`
	Actor     string        `json:"actor"`
	Timestamp time.Time     `json:"timestamp"`
	Reason    string        `json:"reason,omitempty"`
	Comments  string        `json:"comments,omitempty"`
}

// StatusHistory is the append-only ledger of a booking's status changes.
// Entries are never mutated or removed once appended, and callers only
// ever receive copies of them.
type StatusHistory struct {
	entries []StatusHistoryEntry
}

// RestoreStatusHistory rebuilds a ledger from persisted entries.
func RestoreStatusHistory(entries []StatusHistoryEntry) StatusHistory {
	cp := make([]StatusHistoryEntry, len(entries))
	copy(cp, entries)
	return StatusHistory{entries: cp}
}

func (h *StatusHistory) Append(entry StatusHistoryEntry) {
	entry.Timestamp = entry.Timestamp.UTC()
	// full slice expression forces a fresh backing array, so clones never share appends
	h.entries = append(h.entries[:len(h.entries):len(h.entries)], entry)
}

func (h StatusHistory) Last() (StatusHistoryEntry, bool) {
	if len(h.entries) == 0 {
		return StatusHistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h StatusHistory) Len() int {
	return len(h.entries)
}

func (h StatusHistory) Entries() []StatusHistoryEntry {
	cp := make([]StatusHistoryEntry, len(h.entries))
	copy(cp, h.entries)
	return cp
}

func (h StatusHistory) MarshalJSON() ([]byte, error) {
	if h.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.entries)
}

func (h *StatusHistory) UnmarshalJSON(data []byte) error {
	var entries []StatusHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	h.entries = entries
	return nil
}
