// Package session implements the interactive synthesis loop: a line-oriented
// command interpreter that owns the current voice and parameter overrides and
// speaks every bare text line with them.
//
// Input is parsed at the boundary into a closed set of commands; the loop
// itself is single-threaded and owns all mutable state, so no locking is
// needed anywhere in the package.
package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the interactive commands.
type Kind int

const (
	// KindSynthesize speaks a bare text line with the current settings.
	KindSynthesize Kind = iota
	KindSetVoice
	KindSetSpeed
	KindSetPitch
	KindSetAmplitude
	KindSetGap
	KindListVoices
	KindVoiceInfo
	KindStats
	KindReset
	KindHelp
	KindQuit
)

// Command is one parsed input line. Text carries the synthesis text or the
// string argument of a command; Value carries a numeric argument.
type Command struct {
	Kind  Kind
	Text  string
	Value int
}

// Parse turns one input line into a Command. Lines starting with '/' are
// commands; anything else is text to synthesize. Unknown commands and
// malformed arguments are errors — they never fall through to synthesis,
// which would speak the typo aloud.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: KindSynthesize, Text: line}, nil
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "voice":
		if arg == "" {
			return Command{}, fmt.Errorf("session: /voice needs a preset id (try /voices)")
		}
		return Command{Kind: KindSetVoice, Text: arg}, nil
	case "speed":
		return numericCommand(KindSetSpeed, name, arg)
	case "pitch":
		return numericCommand(KindSetPitch, name, arg)
	case "amp", "amplitude":
		return numericCommand(KindSetAmplitude, name, arg)
	case "gap":
		return numericCommand(KindSetGap, name, arg)
	case "voices", "list":
		return Command{Kind: KindListVoices}, nil
	case "info":
		return Command{Kind: KindVoiceInfo, Text: arg}, nil
	case "stats":
		return Command{Kind: KindStats}, nil
	case "reset":
		return Command{Kind: KindReset}, nil
	case "help", "?":
		return Command{Kind: KindHelp}, nil
	case "quit", "exit", "q":
		return Command{Kind: KindQuit}, nil
	default:
		return Command{}, fmt.Errorf("session: unknown command /%s (try /help)", name)
	}
}

// numericCommand parses the integer argument of a parameter command.
func numericCommand(kind Kind, name, arg string) (Command, error) {
	if arg == "" {
		return Command{}, fmt.Errorf("session: /%s needs a number", name)
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return Command{}, fmt.Errorf("session: /%s %q is not a number", name, arg)
	}
	return Command{Kind: kind, Value: n}, nil
}
