// Package progress extracts structured progress events from the line-oriented
// output of a wrapped command. Extraction is pure and total: a line either
// matches one of the recognized grammars and yields exactly one event, or it
// matches nothing and is left to the caller as raw log text. No input is an
// error.
package progress

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Event is a structured progress signal extracted from one output line.
// Concrete types: Step, Item, Completion, Status.
type Event interface {
	// When returns the extraction timestamp.
	When() time.Time

	event()
}

// Step reports entry into step Index of Total, e.g. "[2/5] Resolve deps".
type Step struct {
	Index int
	Total int
	Label string
	Time  time.Time
}

// Item reports per-item progress, e.g. "Progress: 40/200 items (20%)".
type Item struct {
	Index   int
	Total   int
	Percent int
	Time    time.Time
}

// Completion reports a finished operation and its duration,
// e.g. "✓ Resolve deps completed in 3.4s".
type Completion struct {
	Operation string
	Seconds   float64
	Time      time.Time
}

// Status is a free-text status line, e.g. "• waiting for lock".
type Status struct {
	Text string
	Time time.Time
}

func (e Step) When() time.Time       { return e.Time }
func (e Item) When() time.Time       { return e.Time }
func (e Completion) When() time.Time { return e.Time }
func (e Status) When() time.Time     { return e.Time }

func (Step) event()       {}
func (Item) event()       {}
func (Completion) event() {}
func (Status) event()     {}

// grammar pairs a compiled line pattern with a constructor for its event.
// Submatch layout is fixed per pattern; build must not fail on a match.
type grammar struct {
	re    *regexp.Regexp
	build func(m []string, now time.Time) Event
}

// primaryGrammars is the current progress protocol, matched in order with
// first match winning. The ordering matters: the step grammar is anchored so
// it cannot shadow the item grammar, and the status grammar is last because
// its glyph prefix is the loosest.
//
//nolint:gochecknoglobals // compile-once regex table, safe as package-level var
var primaryGrammars = []grammar{
	{
		// [i/n] label
		re: regexp.MustCompile(`^\[(\d+)/(\d+)\]\s+(.+?)\s*$`),
		build: func(m []string, now time.Time) Event {
			return Step{Index: atoi(m[1]), Total: atoi(m[2]), Label: m[3], Time: now}
		},
	},
	{
		// Progress: i/n items (p%)
		re: regexp.MustCompile(`^Progress:\s+(\d+)/(\d+)\s+items\s+\((\d+)%\)\s*$`),
		build: func(m []string, now time.Time) Event {
			return Item{Index: atoi(m[1]), Total: atoi(m[2]), Percent: atoi(m[3]), Time: now}
		},
	},
	{
		// <glyph> op completed in Xs; "ok" is the ASCII fallback glyph
		re: regexp.MustCompile(`^(?:[✓✔]|ok)\s+(.+?)\s+completed\s+in\s+(\d+(?:\.\d+)?)s\s*$`),
		build: func(m []string, now time.Time) Event {
			return Completion{Operation: m[1], Seconds: atof(m[2]), Time: now}
		},
	},
	{
		// <glyph> free text
		re: regexp.MustCompile(`^[•→]\s+(.+?)\s*$`),
		build: func(m []string, now time.Time) Event {
			return Status{Text: m[1], Time: now}
		},
	},
}

// legacyGrammars is the pre-v1 output protocol still emitted by older tools.
// It is consulted only when every primary grammar fails, so a line can never
// be double-counted across the two sets.
//
//nolint:gochecknoglobals // compile-once regex table, safe as package-level var
var legacyGrammars = []grammar{
	{
		// Step i of n: label
		re: regexp.MustCompile(`^Step\s+(\d+)\s+of\s+(\d+):\s+(.+?)\s*$`),
		build: func(m []string, now time.Time) Event {
			return Step{Index: atoi(m[1]), Total: atoi(m[2]), Label: m[3], Time: now}
		},
	},
	{
		// p% complete
		re: regexp.MustCompile(`^(\d+)%\s+complete\s*$`),
		build: func(m []string, now time.Time) Event {
			return Item{Percent: atoi(m[1]), Time: now}
		},
	},
	{
		// done: op (Xs)
		re: regexp.MustCompile(`^done:\s+(.+?)\s+\((\d+(?:\.\d+)?)s\)\s*$`),
		build: func(m []string, now time.Time) Event {
			return Completion{Operation: m[1], Seconds: atof(m[2]), Time: now}
		},
	},
}

// Extract parses one output line against the primary grammar set, falling
// back to the legacy set only when no primary grammar matches. Returns
// (nil, false) for lines that match neither; such lines are raw log text,
// never an error.
func Extract(line string) (Event, bool) {
	return extractAt(line, time.Now())
}

// extractAt is Extract with an injectable clock for tests.
func extractAt(line string, now time.Time) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	for _, g := range primaryGrammars {
		if m := g.re.FindStringSubmatch(line); m != nil {
			return g.build(m, now), true
		}
	}
	for _, g := range legacyGrammars {
		if m := g.re.FindStringSubmatch(line); m != nil {
			return g.build(m, now), true
		}
	}
	return nil, false
}

// atoi converts a digits-only submatch. The regexes guarantee a valid int;
// on overflow the value saturates to 0 rather than failing extraction.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// atof converts a decimal submatch captured by `\d+(?:\.\d+)?`.
func atof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
