package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hallamw/commlog/internal/store"
)

// RecordParser turns a reassembled record into a ParsedMessage. One
// implementation per record type, dispatched by the start line's type
// token. Parse returns an error when the start line matched the coarse
// type+date grammar but the type's detailed field grammar does not hold;
// the engine logs it and moves on.
type RecordParser interface {
	Type() store.MessageType
	Parse(rec *RawRecord) (*ParsedMessage, error)
}

// ParserFor returns the parser for a start-line type token, or nil for an
// unknown token (cannot happen for records produced by ScanRecords).
func ParserFor(typeToken string) RecordParser {
	switch typeToken {
	case "SMS":
		return smsParser{}
	case "Instant":
		return instantParser{}
	case "Call Log":
		return callParser{}
	case "Calendar":
		return calendarParser{}
	}
	return nil
}

// dateRE matches the day/month/year date token.
var dateRE = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)

// parseDate parses a day/month/year token. Two-digit years are taken as
// 2000-based.
func parseDate(token string) (time.Time, error) {
	m := dateRE.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, fmt.Errorf("malformed date token %q", token)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date token %q out of range", token)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// clockRE matches a 12-hour clock with AM/PM on calendar start lines,
// seconds optional.
var clockRE = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(AM|PM)\b`)

// parseClock extracts a 12-hour time-of-day from text, returning the
// duration since midnight and the text with the token removed.
func parseClock(text string) (time.Duration, string, bool) {
	m := clockRE.FindStringSubmatch(text)
	if m == nil {
		return 0, text, false
	}
	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if hour < 1 || hour > 12 || min > 59 || sec > 59 {
		return 0, text, false
	}
	if hour == 12 {
		hour = 0
	}
	if m[4] == "PM" {
		hour += 12
	}
	d := time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second
	return d, strings.TrimSpace(clockRE.ReplaceAllString(text, "")), true
}

// direction resolves the message direction for phone-bearing record
// types: the start-line token wins, then the From:/To: marker, then FROM
// when a phone number was extracted, else UNKNOWN.
func direction(rec *RawRecord, f *Fields) store.Direction {
	switch rec.Direction {
	case "From":
		return store.DirectionFrom
	case "To":
		return store.DirectionTo
	}
	if f.MarkerDirection != "" {
		return f.MarkerDirection
	}
	if f.Phone != "" {
		return store.DirectionFrom
	}
	return store.DirectionUnknown
}

// buildPhoneMessage is the shared SMS/Call/Instant assembly: direction
// logic, sender/receiver assignment by direction, date + continuation
// time-of-day timestamp.
func buildPhoneMessage(rec *RawRecord, t store.MessageType, defaultContent string) (*ParsedMessage, error) {
	date, err := parseDate(rec.DateToken)
	if err != nil {
		return nil, err
	}

	f := ExtractFields(rec.Rest, rec.Extra)

	pm := &ParsedMessage{
		Type:       t,
		Direction:  direction(rec, f),
		Timestamp:  date.Add(f.TimeOfDay),
		Content:    f.Content(),
		Attachment: f.Attachment,
		Location:   f.Location,
		Raw:        rec.Raw,
		StartLine:  rec.StartLine,
	}
	if pm.Content == "" {
		pm.Content = defaultContent
	}

	switch pm.Direction {
	case store.DirectionFrom:
		pm.SenderNumber = f.Phone
		pm.SenderName = f.Name
	case store.DirectionTo:
		pm.ReceiverNumber = f.Phone
		pm.ReceiverName = f.Name
	}

	return pm, nil
}

type smsParser struct{}

func (smsParser) Type() store.MessageType { return store.TypeSMS }

func (smsParser) Parse(rec *RawRecord) (*ParsedMessage, error) {
	return buildPhoneMessage(rec, store.TypeSMS, "")
}

type instantParser struct{}

func (instantParser) Type() store.MessageType { return store.TypeInstant }

func (instantParser) Parse(rec *RawRecord) (*ParsedMessage, error) {
	return buildPhoneMessage(rec, store.TypeInstant, "")
}

type callParser struct{}

func (callParser) Type() store.MessageType { return store.TypeCall }

// Parse builds a call record. Call logs carry no textual content; the
// content is always the fixed literal "Call".
func (callParser) Parse(rec *RawRecord) (*ParsedMessage, error) {
	pm, err := buildPhoneMessage(rec, store.TypeCall, "Call")
	if err != nil {
		return nil, err
	}
	pm.Content = "Call"
	return pm, nil
}

type calendarParser struct{}

func (calendarParser) Type() store.MessageType { return store.TypeCalendar }

// Parse builds a calendar record: direction always UNKNOWN, no
// phone/name, content is the event description, and the time-of-day is a
// 12-hour AM/PM clock on the start line rather than the continuation-line
// time marker.
func (calendarParser) Parse(rec *RawRecord) (*ParsedMessage, error) {
	date, err := parseDate(rec.DateToken)
	if err != nil {
		return nil, err
	}

	timeOfDay, rest, _ := parseClock(rec.Rest)

	fragments := make([]string, 0, 1+len(rec.Extra))
	if s := strings.TrimSpace(rest); s != "" {
		fragments = append(fragments, s)
	}
	for _, line := range rec.Extra {
		if s := strings.TrimSpace(line); s != "" {
			fragments = append(fragments, s)
		}
	}

	return &ParsedMessage{
		Type:      store.TypeCalendar,
		Direction: store.DirectionUnknown,
		Timestamp: date.Add(timeOfDay),
		Content:   strings.Join(fragments, " "),
		Raw:       rec.Raw,
		StartLine: rec.StartLine,
	}, nil
}
