package ingest

import (
	"testing"
	"time"

	"github.com/hallamw/commlog/internal/store"
)

func TestExtractFields_Marker(t *testing.T) {
	f := ExtractFields("From: +9607777472 Ahmed", nil)
	if f.Phone != "+9607777472" {
		t.Errorf("unexpected phone %q", f.Phone)
	}
	if f.Name != "Ahmed" {
		t.Errorf("unexpected name %q", f.Name)
	}
	if f.MarkerDirection != store.DirectionFrom {
		t.Errorf("unexpected marker direction %q", f.MarkerDirection)
	}
	if f.Content() != "" {
		t.Errorf("expected empty content, got %q", f.Content())
	}
}

func TestExtractFields_TextBeforeMarker(t *testing.T) {
	f := ExtractFields("message waiting To: 7771234 Ahmed Didi", nil)
	if f.Phone != "7771234" || f.Name != "Ahmed Didi" {
		t.Errorf("unexpected phone/name: %q / %q", f.Phone, f.Name)
	}
	if f.MarkerDirection != store.DirectionTo {
		t.Errorf("unexpected marker direction %q", f.MarkerDirection)
	}
	if f.Content() != "message waiting" {
		t.Errorf("unexpected content %q", f.Content())
	}
}

func TestExtractFields_NoMarker(t *testing.T) {
	f := ExtractFields("just some event text", nil)
	if f.Phone != "" || f.Name != "" {
		t.Errorf("expected no phone/name, got %q / %q", f.Phone, f.Name)
	}
	if f.Content() != "just some event text" {
		t.Errorf("unexpected content %q", f.Content())
	}
}

func TestExtractFields_TimeToken(t *testing.T) {
	f := ExtractFields("From: 7771234", []string{
		"05:07:40(UTC+0) Hello there",
		"second line",
	})
	if !f.HasTime {
		t.Fatal("expected a time-of-day")
	}
	want := 5*time.Hour + 7*time.Minute + 40*time.Second
	if f.TimeOfDay != want {
		t.Errorf("unexpected time-of-day %v", f.TimeOfDay)
	}
	if f.Content() != "Hello there second line" {
		t.Errorf("unexpected content %q", f.Content())
	}
}

func TestExtractFields_FirstTimeTokenWins(t *testing.T) {
	f := ExtractFields("", []string{
		"05:07:40(UTC+0) first",
		"09:00:00(UTC+0) second stays verbatim",
	})
	want := 5*time.Hour + 7*time.Minute + 40*time.Second
	if f.TimeOfDay != want {
		t.Errorf("unexpected time-of-day %v", f.TimeOfDay)
	}
	if f.Content() != "first 09:00:00(UTC+0) second stays verbatim" {
		t.Errorf("unexpected content %q", f.Content())
	}
}

func TestExtractFields_AttachmentAndLocation(t *testing.T) {
	f := ExtractFields("From: 7771234", []string{
		"05:07:40(UTC+0)",
		"Attachment: IMG_0042.jpg",
		"Location: Male' North Harbour",
		"caption text",
	})
	if f.Attachment != "IMG_0042.jpg" {
		t.Errorf("unexpected attachment %q", f.Attachment)
	}
	if f.Location != "Male' North Harbour" {
		t.Errorf("unexpected location %q", f.Location)
	}
	if f.Content() != "caption text" {
		t.Errorf("unexpected content %q", f.Content())
	}
}

func TestExtractFields_FragmentsJoinInOrder(t *testing.T) {
	f := ExtractFields("intro To: 7771234", []string{
		"  one  ",
		"two",
		"05:07:40(UTC+0) three",
	})
	if f.Content() != "intro one two three" {
		t.Errorf("unexpected content %q", f.Content())
	}
}
