package interview

import (
	"strings"
	"unicode"
)

// Command is a control phrase recognised in a candidate transcript
type Command int

const (
	CommandNone Command = iota
	CommandStop
	CommandRepeat
	CommandSkip
)

func (c Command) String() string {
	switch c {
	case CommandStop:
		return "stop"
	case CommandRepeat:
		return "repeat"
	case CommandSkip:
		return "skip"
	default:
		return "none"
	}
}

// commandStems are matched against the start of each transcript word, so
// "stopping" and "skipped" count. "again" must match exactly because
// "against" is not a request.
var commandStems = []struct {
	command Command
	stems   []string
	exact   []string
}{
	{CommandStop, []string{"stop", "end"}, nil},
	{CommandRepeat, []string{"repeat"}, []string{"again"}},
	{CommandSkip, []string{"skip"}, nil},
}

// notCommands start with a stem but are ordinary interview vocabulary
var notCommands = []string{"endpoint", "endless", "endian", "endur", "endo", "endea", "endem"}

// ParseCommand scans a transcript for control phrases, case-insensitively.
// A word triggers a command when it starts with one of its stems. Stop wins
// over repeat, and repeat wins over skip.
func ParseCommand(transcript string) Command {
	words := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return CommandNone
	}

	for _, cs := range commandStems {
		for _, w := range words {
			if matchesCommand(w, cs.stems, cs.exact) {
				return cs.command
			}
		}
	}
	return CommandNone
}

func matchesCommand(word string, stems, exact []string) bool {
	for _, e := range exact {
		if word == e {
			return true
		}
	}
	for _, stem := range stems {
		if !strings.HasPrefix(word, stem) {
			continue
		}
		for _, n := range notCommands {
			if strings.HasPrefix(word, n) {
				return false
			}
		}
		return true
	}
	return false
}
