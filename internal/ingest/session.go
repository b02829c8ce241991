package ingest

// Session is the per-run mutable import context: a phone-to-contact cache,
// the last resolved contact (the fallback receiver for outgoing records
// without one), and the run's statistics. Sessions live for exactly one
// import run and are never persisted.
//
// Carrying this explicitly instead of as ambient state keeps runs
// isolated and testable.
type Session struct {
	contactCache  map[string]int64 // canonical phone -> contact id
	lastContactID int64            // 0 = no contact resolved yet
	Stats         Stats
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{contactCache: make(map[string]int64)}
}

// CachedContact looks up a canonical phone number in the session cache.
func (s *Session) CachedContact(canonical string) (int64, bool) {
	id, ok := s.contactCache[canonical]
	return id, ok
}

// Remember records a resolution in the cache and makes the contact the
// session's fallback. Called on every resolution regardless of whether
// the contact acted as sender or receiver.
func (s *Session) Remember(canonical string, id int64) {
	s.contactCache[canonical] = id
	s.lastContactID = id
}

// LastContactID returns the most recently resolved contact, 0 if none.
func (s *Session) LastContactID() int64 {
	return s.lastContactID
}
