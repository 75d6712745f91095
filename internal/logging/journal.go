package logging

import (
	"strconv"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalMirror forwards lines to the systemd journal. Stdout lines are
// logged at info priority, stderr lines at error priority.
type JournalMirror struct {
	Identifier string
}

var _ Mirror = JournalMirror{}

// NewJournalMirror returns a mirror for identifier, or nil when no journal
// socket is reachable.
func NewJournalMirror(identifier string) Mirror {
	if !journal.Enabled() {
		return nil
	}
	return JournalMirror{Identifier: identifier}
}

func (m JournalMirror) Send(fd int, line string) error {
	priority := journal.PriInfo
	if fd == 2 {
		priority = journal.PriErr
	}
	fields := map[string]string{
		"FD": strconv.Itoa(fd),
	}
	if m.Identifier != "" {
		fields["SYSLOG_IDENTIFIER"] = m.Identifier
	}
	return journal.Send(line, priority, fields)
}
