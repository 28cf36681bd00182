package bridge

import "encoding/json"

// ExceptionHistory is the in-memory form of a record's serialised
// exception_history mapping: message text to occurrence count.
type ExceptionHistory map[string]int

// DecodeExceptionHistory parses the persisted JSON form, treating an empty
// string as an empty history.
func DecodeExceptionHistory(raw string) ExceptionHistory {
	h := ExceptionHistory{}
	if raw == "" {
		return h
	}
	_ = json.Unmarshal([]byte(raw), &h)
	return h
}

// Encode serialises the history back to its persisted JSON form.
func (h ExceptionHistory) Encode() string {
	if len(h) == 0 {
		return ""
	}
	b, err := json.Marshal(h)
	if err != nil {
		return ""
	}
	return string(b)
}

// Record increments the counter for message, truncating it to
// MaxExceptionMessageLen and evicting the lowest-count entry once the map
// reaches MaxExceptionHistory distinct messages.
func (h ExceptionHistory) Record(message string) ExceptionHistory {
	if len(message) > MaxExceptionMessageLen {
		message = message[:MaxExceptionMessageLen]
	}
	if _, ok := h[message]; !ok && len(h) >= MaxExceptionHistory {
		// Evict the lowest-count entry to make room, keeping the map bounded.
		var evictKey string
		evictCount := -1
		for k, c := range h {
			if evictCount == -1 || c < evictCount {
				evictKey, evictCount = k, c
			}
		}
		if evictKey != "" {
			delete(h, evictKey)
		}
	}
	h[message]++
	return h
}

// Sum totals all counts, used to derive a record's attempt count.
func (h ExceptionHistory) Sum() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}
