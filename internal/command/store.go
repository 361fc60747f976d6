package command

// Store is a fixed-capacity, insertion-ordered command table keyed by
// name. It is owned by the single run-loop goroutine and is not
// synchronized.
type Store struct {
	capacity int
	entries  []StoredCommand
}

// NewStore returns an empty store with the given capacity
// (MaxCommands when capacity <= 0).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = MaxCommands
	}
	return &Store{
		capacity: capacity,
		entries:  make([]StoredCommand, 0, capacity),
	}
}

func (s *Store) index(name string) int {
	for i := range s.entries {
		if s.entries[i].Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns a copy of the named command.
func (s *Store) Lookup(name string) (StoredCommand, bool) {
	if i := s.index(name); i >= 0 {
		return s.entries[i], true
	}
	return StoredCommand{}, false
}

// Upsert overwrites an existing entry in place (position preserved) or
// appends a new one. Returns ErrCacheFull when the name is new and the
// store is at capacity, leaving the store unchanged.
func (s *Store) Upsert(cmd StoredCommand) error {
	if i := s.index(cmd.Name); i >= 0 {
		s.entries[i] = cmd
		return nil
	}
	if len(s.entries) >= s.capacity {
		return ErrCacheFull
	}
	s.entries = append(s.entries, cmd)
	return nil
}

// Delete removes the named entry, compacting the remainder so relative
// insertion order is preserved. Returns ErrNotFound when absent.
func (s *Store) Delete(name string) error {
	i := s.index(name)
	if i < 0 {
		return ErrNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

// Count returns the number of cached commands.
func (s *Store) Count() int { return len(s.entries) }

// Names returns the cached command names in insertion order.
func (s *Store) Names() []string {
	names := make([]string, len(s.entries))
	for i := range s.entries {
		names[i] = s.entries[i].Name
	}
	return names
}
