package chat

// Effect is the set of store changes produced by one operation. Removals
// are applied before appends.
type Effect struct {
	Remove []Type
	Append []Message
}

// Then concatenates two effects.
func (e Effect) Then(next Effect) Effect {
	return Effect{
		Remove: append(append([]Type(nil), e.Remove...), next.Remove...),
		Append: append(append([]Message(nil), e.Append...), next.Append...),
	}
}

// Empty reports whether applying e would change nothing.
func (e Effect) Empty() bool {
	return len(e.Remove) == 0 && len(e.Append) == 0
}

// Say is shorthand for an effect that appends messages.
func Say(msgs ...Message) Effect {
	return Effect{Append: msgs}
}

// Store is the ordered conversation log. Append is the only outward
// mutation; removal exists for ephemeral forms and always works by type.
// Store is not safe for concurrent use; its owner serializes access.
type Store struct {
	messages []Message
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds msg. Appending an ephemeral form first removes any visible
// form so that at most one is ever present.
func (s *Store) Append(msg Message) {
	if msg.Type().Ephemeral() {
		for _, t := range EphemeralTypes {
			s.RemoveByType(t)
		}
	}
	s.messages = append(s.messages, msg)
}

// Apply runs an effect and returns the messages it appended.
func (s *Store) Apply(e Effect) []Message {
	for _, t := range e.Remove {
		s.RemoveByType(t)
	}
	for _, msg := range e.Append {
		s.Append(msg)
	}
	return e.Append
}

// RemoveByType drops every message of type t and reports how many were
// removed. Only ephemeral form types may be removed.
func (s *Store) RemoveByType(t Type) int {
	if !t.Ephemeral() {
		return 0
	}
	kept := s.messages[:0]
	removed := 0
	for _, msg := range s.messages {
		if msg.Type() == t {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	for i := len(kept); i < len(s.messages); i++ {
		s.messages[i] = Message{}
	}
	s.messages = kept
	return removed
}

// Messages returns a copy of the log.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// Count returns how many messages of type t are present.
func (s *Store) Count(t Type) int {
	n := 0
	for _, msg := range s.messages {
		if msg.Type() == t {
			n++
		}
	}
	return n
}

// Visible returns the most recent message of type t.
func (s *Store) Visible(t Type) (Message, bool) {
	return s.FindLast(func(m Message) bool { return m.Type() == t })
}

// FindLast returns the newest message matching match.
func (s *Store) FindLast(match func(Message) bool) (Message, bool) {
	return FindLast(s.messages, match)
}

// Entries projects the log for the session cache.
func (s *Store) Entries() []Entry {
	return Project(s.messages)
}

// Reset empties the store.
func (s *Store) Reset() {
	s.messages = nil
}

// Restore replaces the log with messages rebuilt from cached entries.
func (s *Store) Restore(entries []Entry) {
	s.messages = s.messages[:0]
	for _, e := range entries {
		if msg, ok := e.Message(); ok {
			s.messages = append(s.messages, msg)
		}
	}
}

// FindLast scans history from newest to oldest.
func FindLast(history []Message, match func(Message) bool) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if match(history[i]) {
			return history[i], true
		}
	}
	return Message{}, false
}
