package router

import (
	"strconv"
	"strings"
)

// Kind tags a decoded inbound command.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindTop
	KindSettings
	KindEditSchedule
	KindSetCount
)

// Command is the tagged variant produced by Parse. Text is decoded exactly
// once at the transport boundary; handlers dispatch on Kind and never re-parse.
type Command struct {
	Kind Kind

	// Top: the optional [n] argument.
	HasN bool
	// Top/SetCount: the validated number when !Invalid.
	N int

	// EditSchedule: de-duplicated hours in [0,23], input order preserved.
	Hours []int

	// Invalid marks arguments that were present but unusable. The handler
	// answers with the matching usage hint instead of acting.
	Invalid bool
}

const maxScheduleArgs = 24

// Parse decodes a message text into a Command.
func Parse(text string) Command {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{Kind: KindUnknown}
	}

	// Strip an optional @botname suffix from the command token.
	name := fields[0]
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/start":
		return Command{Kind: KindStart}

	case "/settings":
		return Command{Kind: KindSettings}

	case "/top":
		if len(args) == 0 {
			return Command{Kind: KindTop}
		}
		n, ok := parseCount(args[0])
		if len(args) > 1 || !ok {
			return Command{Kind: KindTop, Invalid: true}
		}
		return Command{Kind: KindTop, HasN: true, N: n}

	case "/n":
		if len(args) != 1 {
			return Command{Kind: KindSetCount, Invalid: true}
		}
		n, ok := parseCount(args[0])
		if !ok {
			return Command{Kind: KindSetCount, Invalid: true}
		}
		return Command{Kind: KindSetCount, N: n}

	case "/schedule":
		if len(args) == 0 || len(args) > maxScheduleArgs {
			return Command{Kind: KindEditSchedule, Invalid: true}
		}
		hours := parseHours(args)
		if len(hours) == 0 {
			return Command{Kind: KindEditSchedule, Invalid: true}
		}
		return Command{Kind: KindEditSchedule, Hours: hours}
	}

	return Command{Kind: KindUnknown}
}

// parseCount accepts a plain integer in [1,100].
func parseCount(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 100 {
		return 0, false
	}
	return n, true
}

// parseHours keeps only parseable integers within [0,23], de-duplicated.
// Unparseable tokens are skipped, not fatal.
func parseHours(args []string) []int {
	var seen [24]bool
	hours := make([]int, 0, len(args))
	for _, a := range args {
		h, err := strconv.Atoi(a)
		if err != nil || h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		hours = append(hours, h)
	}
	return hours
}
