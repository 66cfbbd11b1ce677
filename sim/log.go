package sim

import (
	"time"
)

// Kind classifies a log entry.
type Kind string

const (
	KindSystem Kind = "system" // scheduler lifecycle notices
	KindOutput Kind = "output" // sketch serial output
	KindError  Kind = "error"  // compile or runtime failures
)

// Entry is one line of the append-only session log.
type Entry struct {
	Time    time.Time
	Kind    Kind
	Message string
}

// LogFunc observes every entry synchronously as it is appended.
type LogFunc func(Entry)

func (s *Session) log(kind Kind, message string) {
	entry := Entry{Time: time.Now(), Kind: kind, Message: message}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	fn := s.onLog
	s.mu.Unlock()

	if fn != nil {
		fn(entry)
	}
}

// Log returns a copy of the session log, oldest first.
func (s *Session) Log() (entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(entries, s.entries...)
}
