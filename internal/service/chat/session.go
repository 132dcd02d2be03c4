package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/lumen-chat/backend/internal/model/chat"
)

// Session is one browser's isolated state: the transcript and the theme flag.
// Append, Clear and ToggleTheme are the only mutators.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	lastSeen   time.Time
	transcript []chat.Entry
	darkMode   bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Append adds entries to the end of the transcript.
func (s *Session) Append(entries ...chat.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = s.now().UTC()
		}
		s.transcript = append(s.transcript, entry)
	}
}

// RecordExchange appends the user's side of a successful dispatch followed by the reply.
// Text is stored trimmed; whitespace-only text adds no entry.
func (s *Session) RecordExchange(text string, hasImage bool, reply string) {
	entries := make([]chat.Entry, 0, 3)
	if text = strings.TrimSpace(text); text != "" {
		entries = append(entries, chat.Entry{Speaker: chat.SpeakerUser, Message: text})
	}
	if hasImage {
		entries = append(entries, chat.Entry{Speaker: chat.SpeakerUser, Message: chat.ImagePlaceholder})
	}
	entries = append(entries, chat.Entry{Speaker: chat.SpeakerBot, Message: reply})
	s.Append(entries...)
}

// Clear empties the transcript.
func (s *Session) Clear() {
	s.mu.Lock()
	s.transcript = make([]chat.Entry, 0, 16)
	s.mu.Unlock()
}

// ToggleTheme flips the dark mode flag and returns the new value.
func (s *Session) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	return s.darkMode
}

// DarkMode reports the theme flag.
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// Transcript returns a copy of the transcript in append order.
func (s *Session) Transcript() []chat.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]chat.Entry, len(s.transcript))
	copy(copied, s.transcript)
	return copied
}

// Snapshot copies the whole session for rendering.
func (s *Session) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]chat.Entry, len(s.transcript))
	copy(copied, s.transcript)
	return chat.Snapshot{
		ID:         s.id,
		DarkMode:   s.darkMode,
		Transcript: copied,
		CreatedAt:  s.createdAt,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
