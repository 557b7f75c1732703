package match

import "time"

// Entry is one timestamped battle log line.
type Entry struct {
	At      time.Time
	Message string
}

// String renders the entry as "[15:04:05] message".
func (e Entry) String() string {
	return "[" + e.At.Format(time.TimeOnly) + "] " + e.Message
}

// BattleLog is a bounded FIFO of entries; the oldest entry is evicted once
// capacity is exceeded.
//
// BattleLog is not safe for concurrent use; the Engine lock guards it.
type BattleLog struct {
	entries  []Entry
	capacity int
	now      func() time.Time
}

// NewBattleLog creates an empty log.
//
// Precondition: capacity <= 0 selects DefaultLogCapacity; now nil selects time.Now.
func NewBattleLog(capacity int, now func() time.Time) *BattleLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &BattleLog{capacity: capacity, now: now}
}

// Append records msg at the current clock time.
//
// Postcondition: Len() <= capacity.
func (l *BattleLog) Append(msg string) {
	l.entries = append(l.entries, Entry{At: l.now(), Message: msg})
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
}

// Reset drops every entry.
func (l *BattleLog) Reset() {
	l.entries = l.entries[:0]
}

// Len returns the number of retained entries.
func (l *BattleLog) Len() int { return len(l.entries) }

// Capacity returns the maximum number of retained entries.
func (l *BattleLog) Capacity() int { return l.capacity }

// Entries returns a copy of the retained entries, oldest first.
func (l *BattleLog) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
