package mode

import (
	"fmt"

	"agcodex/internal/logging"
)

// Violation is returned when a gate refuses an operation. The message
// names the current mode and the key-binding that cycles it.
type Violation struct {
	Mode      Mode
	Operation string
	Hint      string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s is not permitted in %s mode. %s", v.Operation, v.Mode.Label(), v.Hint)
}

func (m *Manager) deny(operation, detail string) error {
	current := m.Current()
	hint := fmt.Sprintf("Press %s to cycle modes.", m.cycleKey)
	if detail != "" {
		hint = detail + " " + hint
	}
	logging.ModeDebug("gate denied %s in %s mode", operation, current)
	return &Violation{Mode: current, Operation: operation, Hint: hint}
}

// ValidateFileWrite gates a file write of the given size in bytes.
// Plan denies all writes; Review caps them at the configured limit.
func (m *Manager) ValidateFileWrite(path string, size int) error {
	switch m.Current() {
	case ModeBuild:
		return nil
	case ModeReview:
		if size <= m.reviewWriteLimit {
			return nil
		}
		return m.deny(
			fmt.Sprintf("writing %d bytes to %s", size, path),
			fmt.Sprintf("Review mode caps writes at %d bytes.", m.reviewWriteLimit),
		)
	default:
		return m.deny(fmt.Sprintf("file write to %s", path), "")
	}
}

// ValidateCommand gates shell command execution. Only Build allows it.
func (m *Manager) ValidateCommand(cmd string) error {
	if m.Current() == ModeBuild {
		return nil
	}
	return m.deny(fmt.Sprintf("command execution (%s)", firstWord(cmd)), "")
}

// ValidateGit gates mutating git operations. Only Build allows them.
func (m *Manager) ValidateGit(op string) error {
	if m.Current() == ModeBuild {
		return nil
	}
	return m.deny(fmt.Sprintf("git %s", op), "")
}

// ValidateNetwork gates network access. All modes permit it.
func (m *Manager) ValidateNetwork() error {
	return nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' {
			return s[:i]
		}
	}
	return s
}
