package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hallamw/commlog/internal/store"
)

var (
	// markerRE matches a "From:"/"To:" marker followed by the phone token
	// and optional trailing display name.
	markerRE = regexp.MustCompile(`\b(From|To):\s*(\S+)[ \t]*(.*)$`)

	// timeTokenRE matches the continuation-line time marker, e.g.
	// "05:07:40(UTC+0)".
	timeTokenRE = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})\(UTC[+-]\d{1,2}\)`)
)

// Fields holds everything the extractor pulled out of a record's free text.
type Fields struct {
	Phone           string
	Name            string
	MarkerDirection store.Direction // direction implied by the From:/To: marker
	TimeOfDay       time.Duration
	HasTime         bool
	Attachment      string
	Location        string

	fragments []string
}

// Content joins all fragments, in order of appearance, with single spaces.
func (f *Fields) Content() string {
	return strings.Join(f.fragments, " ")
}

func (f *Fields) addFragment(s string) {
	s = strings.TrimSpace(s)
	if s != "" {
		f.fragments = append(f.fragments, s)
	}
}

// ExtractFields pulls phone number, display name, time-of-day, and content
// fragments out of a record's free text: the start-line remainder plus all
// continuation lines.
//
// The start-line remainder is searched for a From:/To: marker; the token
// after it is the phone number and any trailing text the display name,
// while text before the marker becomes the first content fragment. Without
// a marker the whole remainder is content. The first continuation line
// carrying a HH:MM:SS(UTC+0) token supplies the time-of-day; Attachment:
// and Location: lines populate those fields; every other continuation
// line is appended verbatim as a content fragment.
func ExtractFields(rest string, extra []string) *Fields {
	f := &Fields{}

	if loc := markerRE.FindStringSubmatchIndex(rest); loc != nil {
		m := markerRE.FindStringSubmatch(rest)
		f.addFragment(rest[:loc[0]])
		if m[1] == "From" {
			f.MarkerDirection = store.DirectionFrom
		} else {
			f.MarkerDirection = store.DirectionTo
		}
		f.Phone = m[2]
		f.Name = strings.TrimSpace(m[3])
	} else {
		f.addFragment(rest)
	}

	for _, line := range extra {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Attachment:"):
			if f.Attachment == "" {
				f.Attachment = strings.TrimSpace(strings.TrimPrefix(trimmed, "Attachment:"))
				continue
			}
		case strings.HasPrefix(trimmed, "Location:"):
			if f.Location == "" {
				f.Location = strings.TrimSpace(strings.TrimPrefix(trimmed, "Location:"))
				continue
			}
		}

		if !f.HasTime {
			if m := timeTokenRE.FindStringSubmatch(trimmed); m != nil {
				h, _ := strconv.Atoi(m[1])
				min, _ := strconv.Atoi(m[2])
				sec, _ := strconv.Atoi(m[3])
				if h < 24 && min < 60 && sec < 60 {
					f.TimeOfDay = time.Duration(h)*time.Hour +
						time.Duration(min)*time.Minute +
						time.Duration(sec)*time.Second
					f.HasTime = true
					f.addFragment(timeTokenRE.ReplaceAllString(trimmed, ""))
					continue
				}
			}
		}

		f.addFragment(trimmed)
	}

	return f
}
