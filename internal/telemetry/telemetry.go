// Package telemetry provides the info_log sink a caller may supply the
// scheduler and live evolution variant, built on the standard library's
// log package. It formats durations and counts with go-humanize and
// colors its prefix only when attached to a terminal, via go-isatty.
package telemetry

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Logger is the info_log sink interface the scheduler and live-evolution
// variant write progress through.
type Logger interface {
	Generation(counter, total int, populationSize int, elapsed time.Duration)
	ThinkCycle(networkId string, cycle int, result string)
	Infof(format string, args ...any)
}

// defaultLogger wraps the standard library logger with a color-aware
// prefix; callers opt into it through NewDefault. A caller that passes no
// info_log sink at all gets Noop, not this logger.
type defaultLogger struct {
	std   *log.Logger
	color bool
}

// NewDefault builds a Logger writing to w, coloring its prefix only when w
// is a terminal.
func NewDefault(w io.Writer) Logger {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &defaultLogger{std: log.New(w, "", log.LstdFlags), color: color}
}

func (l *defaultLogger) prefix(tag string) string {
	if !l.color {
		return fmt.Sprintf("[%s] ", tag)
	}
	return fmt.Sprintf("\x1b[36m[%s]\x1b[0m ", tag)
}

func (l *defaultLogger) Generation(counter, total, populationSize int, elapsed time.Duration) {
	l.std.Printf("%sgeneration %d/%d: %s networks evaluated in %s",
		l.prefix("evo"), counter, total, humanize.Comma(int64(populationSize)), humanize.RelTime(time.Now().Add(-elapsed), time.Now(), "", ""))
}

func (l *defaultLogger) ThinkCycle(networkId string, cycle int, result string) {
	l.std.Printf("%snetwork %s cycle %d: %s", l.prefix("think"), networkId, cycle, result)
}

func (l *defaultLogger) Infof(format string, args ...any) {
	l.std.Printf("%s%s", l.prefix("info"), fmt.Sprintf(format, args...))
}

// Noop discards everything; useful for tests and embeddings that want no
// output.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Generation(int, int, int, time.Duration) {}
func (noopLogger) ThinkCycle(string, int, string)          {}
func (noopLogger) Infof(string, ...any)                    {}
