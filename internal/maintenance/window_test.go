package maintenance

import (
	"testing"
	"time"
)

func at(hh, mm, ss int) time.Time {
	return time.Date(2025, 8, 18, hh, mm, ss, 0, time.UTC)
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"04:20", Clock{4, 20}, false},
		{"4:05", Clock{4, 5}, false},
		{" 23:59 ", Clock{23, 59}, false},
		{"24:00", Clock{}, true},
		{"12:60", Clock{}, true},
		{"12:5", Clock{}, true},
		{"noon", Clock{}, true},
		{"", Clock{}, true},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q): want error, got %v", c.in, got)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("ParseClock(%q)=%v,%v want %v", c.in, got, err, c.want)
		}
	}
}

func TestWindow_ContainsInclusiveBounds(t *testing.T) {
	w, err := ParseWindow("04:20", "04:25")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(4, 19, 59), false},
		{at(4, 20, 0), true},
		{at(4, 22, 30), true},
		{at(4, 25, 0), true},
		{at(4, 25, 1), false},
		{at(16, 22, 0), false},
	}
	for _, c := range cases {
		if got := w.Contains(c.now); got != c.want {
			t.Fatalf("Contains(%s)=%v want %v", c.now.Format(time.TimeOnly), got, c.want)
		}
	}
}

func TestWindow_UsesTimestampLocation(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	w, _ := ParseWindow("04:20", "04:25")

	// 02:22 UTC is 04:22 in Zurich during summer time.
	now := time.Date(2025, 8, 18, 2, 22, 0, 0, time.UTC)
	if w.Contains(now) {
		t.Fatalf("UTC wall clock should be outside the window")
	}
	if !w.Contains(now.In(zurich)) {
		t.Fatalf("Zurich wall clock should be inside the window")
	}
}

func TestWindow_OvernightNeverMatches(t *testing.T) {
	w, _ := ParseWindow("23:00", "01:00")
	if !w.Overnight() {
		t.Fatalf("expected overnight window")
	}
	for _, now := range []time.Time{at(23, 30, 0), at(0, 30, 0), at(12, 0, 0)} {
		if w.Contains(now) {
			t.Fatalf("overnight window matched %s", now.Format(time.TimeOnly))
		}
	}
}

func TestIsWithinWindow_BadBounds(t *testing.T) {
	if _, err := IsWithinWindow("4h", "05:00", at(4, 0, 0)); err == nil {
		t.Fatalf("expected parse error")
	}
	ok, err := IsWithinWindow("04:00", "05:00", at(4, 30, 0))
	if err != nil || !ok {
		t.Fatalf("want inside, got %v %v", ok, err)
	}
}
