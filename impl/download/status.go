package download

import (
	"fmt"

	"github.com/ecarrara/oci-registry-client/impl/digest"
)

// EventKind is what a task is reporting
type EventKind int

const (
	// EventProgress carries the running byte count. The first one a task sends
	// is sent when the blob is opened, with a zero byte count.
	EventProgress EventKind = iota
	// EventDone means the task read the blob to the end and committed its output
	EventDone
	// EventFailed means the task stopped on an error. Err is set.
	EventFailed
	// EventCancelled means the task stopped because its context was cancelled
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is sent by a task to the consumer. Events are values and are never
// modified after they are sent.
type Event struct {
	Index      int
	Digest     digest.Digest
	Kind       EventKind
	Downloaded int64
	Total      int64
	TotalKnown bool
	Err        error
}

// State is the lifecycle state of one table entry
type State int

const (
	Unknown State = iota
	Downloading
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "waiting"
	case Downloading:
		return "downloading"
	case Completed:
		return "complete"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal is true for the states an entry never leaves
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Status is one entry in the progress Table
type Status struct {
	Index      int
	Digest     digest.Digest
	MediaType  string
	State      State
	Downloaded int64
	Total      int64
	TotalKnown bool
	Err        error
}

// Percent returns the percentage downloaded and true, or false if the total is
// unknown. An empty blob with a known total is 100%.
func (s Status) Percent() (float64, bool) {
	if !s.TotalKnown {
		return 0, false
	}
	if s.Total == 0 {
		return 100, true
	}
	return float64(s.Downloaded) * 100 / float64(s.Total), true
}

// ShortReadError is a blob that ended before the content length the registry
// announced (or ran past it).
type ShortReadError struct {
	Digest     digest.Digest
	Downloaded int64
	Total      int64
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("blob %s: read %d bytes, expected %d", e.Digest, e.Downloaded, e.Total)
}

// Table is the progress of every task, indexed by task index
type Table []Status

func newTable(tasks []Task) Table {
	t := make(Table, len(tasks))
	for i, task := range tasks {
		t[i] = Status{
			Index:     task.Index,
			Digest:    task.Digest,
			MediaType: task.MediaType,
		}
	}
	return t
}

// apply updates the one entry named by the event. Events for an entry that is
// already terminal are ignored.
func (t Table) apply(ev Event) {
	s := &t[ev.Index]
	if s.State.Terminal() {
		return
	}
	s.Downloaded = ev.Downloaded
	s.Total = ev.Total
	s.TotalKnown = ev.TotalKnown
	switch ev.Kind {
	case EventProgress:
		s.State = Downloading
	case EventDone:
		if ev.TotalKnown && ev.Downloaded != ev.Total {
			s.State = Failed
			s.Err = &ShortReadError{Digest: ev.Digest, Downloaded: ev.Downloaded, Total: ev.Total}
			return
		}
		s.State = Completed
	case EventFailed:
		s.State = Failed
		s.Err = ev.Err
	case EventCancelled:
		s.State = Cancelled
		s.Err = ev.Err
	}
}

// snapshot returns a copy of the receiver that the caller can keep
func (t Table) snapshot() Table {
	return append(Table(nil), t...)
}

// Completed is true if every entry is Completed. An empty table is complete.
func (t Table) Completed() bool {
	for _, s := range t {
		if s.State != Completed {
			return false
		}
	}
	return true
}

// Count returns the number of entries in the passed state
func (t Table) Count(state State) int {
	n := 0
	for _, s := range t {
		if s.State == state {
			n++
		}
	}
	return n
}

// Downloaded is the sum of the byte counts of all entries
func (t Table) Downloaded() int64 {
	var n int64
	for _, s := range t {
		n += s.Downloaded
	}
	return n
}

// Observer receives a snapshot of the table after every update. Update is always
// called from the same goroutine so implementations need no locking.
type Observer interface {
	Update(Table)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Table)

func (f ObserverFunc) Update(t Table) {
	f(t)
}
