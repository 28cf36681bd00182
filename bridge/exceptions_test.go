package bridge

import "testing"

func TestExceptionHistoryRoundTrip(t *testing.T) {
	h := ExceptionHistory{}
	h = h.Record("broken pipe")
	h = h.Record("broken pipe")
	h = h.Record("timeout")

	if h.Sum() != 3 {
		t.Fatalf("Sum() = %d, want 3", h.Sum())
	}

	encoded := h.Encode()
	decoded := DecodeExceptionHistory(encoded)
	if decoded.Sum() != 3 || decoded["broken pipe"] != 2 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestExceptionHistoryCap(t *testing.T) {
	h := ExceptionHistory{}
	for i := 0; i < MaxExceptionHistory+10; i++ {
		h = h.Record(string(rune('a' + i%26)) + "-distinct-message-" + string(rune(i)))
	}
	if len(h) > MaxExceptionHistory {
		t.Fatalf("len(h) = %d, want <= %d", len(h), MaxExceptionHistory)
	}
}

func TestExceptionMessageTruncated(t *testing.T) {
	long := make([]byte, MaxExceptionMessageLen*2)
	for i := range long {
		long[i] = 'x'
	}
	h := ExceptionHistory{}
	h = h.Record(string(long))
	for k := range h {
		if len(k) > MaxExceptionMessageLen {
			t.Fatalf("key length %d exceeds cap %d", len(k), MaxExceptionMessageLen)
		}
	}
}

func TestDecodeEmptyHistory(t *testing.T) {
	h := DecodeExceptionHistory("")
	if len(h) != 0 {
		t.Fatalf("expected empty history, got %+v", h)
	}
}
