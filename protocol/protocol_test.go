package protocol

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestParseDateValid(t *testing.T) {
	cases := []string{
		"2011-10-13T10:09:23",
		"2011-10-13 10:09:23",
		"2011-09-30T15:49:35.417693+00:00",
		"2011-09-30 15:49:35.417693-05:00",
	}
	for _, c := range cases {
		if _, err := ParseDate(c); err != nil {
			t.Errorf("ParseDate(%q) failed: %v", c, err)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	cases := []string{
		"",
		"not a date",
		"2011-10-13",
		"2011-10-13T10:09",
		"2011-09-30T15:49:35.417693", // fraction requires an offset
		"2011-09-30T15:49:35+00:00",  // offset requires a fraction
		"13-10-2011T10:09:23",
	}
	for _, c := range cases {
		if _, err := ParseDate(c); err == nil {
			t.Errorf("ParseDate(%q) should have failed", c)
		}
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	orig := time.Date(2024, 3, 7, 18, 30, 12, 345678000, time.UTC)
	formatted := FormatDate(orig)

	parsed, err := ParseDate(formatted)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", formatted, err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("round trip changed the instant: %v != %v", parsed, orig)
	}
}

func TestFormatDateSortable(t *testing.T) {
	earlier := FormatDate(time.Date(2024, 3, 7, 18, 30, 12, 0, time.UTC))
	later := FormatDate(time.Date(2024, 3, 7, 18, 30, 12, 1000, time.UTC))
	if !(earlier < later) {
		t.Errorf("formatted dates are not lexicographically ordered: %q >= %q", earlier, later)
	}
	if !(NullDate < earlier) {
		t.Errorf("null date must sort before any real date")
	}
}

func TestMessageIDDerivableToEpoch(t *testing.T) {
	at := time.Date(2024, 3, 7, 18, 30, 12, 345678000, time.UTC)
	id := MessageID(at)

	raw, ok := strings.CutPrefix(id, "message.")
	if !ok {
		t.Fatalf("unexpected id shape: %q", id)
	}
	epoch, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		t.Fatalf("id %q is not derivable to a float epoch: %v", id, err)
	}
	if got := int64(epoch); got != at.Unix() {
		t.Errorf("epoch seconds = %d, want %d", got, at.Unix())
	}
}

func TestMessageIDOrdering(t *testing.T) {
	base := time.Date(2024, 3, 7, 18, 30, 12, 0, time.UTC)
	a := MessageID(base)
	b := MessageID(base.Add(time.Microsecond))
	if a == b {
		t.Fatal("distinct microseconds produced the same id")
	}
	if !(a < b) {
		t.Errorf("ids not ordered: %q >= %q", a, b)
	}
}
