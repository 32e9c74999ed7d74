package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/muesli/termenv"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ANSI palette indexes.
const (
	colorRed    = "1"
	colorGreen  = "2"
	colorYellow = "3"
	colorBlue   = "4"
)

type UI struct {
	Out          io.Writer
	Err          io.Writer
	Output       *termenv.Output
	ErrOutput    *termenv.Output
	ColorEnabled bool
}

func New(out io.Writer, err io.Writer, mode ColorMode, disableColor bool) *UI {
	output := termenv.NewOutput(out)
	errOutput := termenv.NewOutput(err)

	return &UI{
		Out:          out,
		Err:          err,
		Output:       output,
		ErrOutput:    errOutput,
		ColorEnabled: shouldEnableColor(output, mode, disableColor),
	}
}

func shouldEnableColor(output *termenv.Output, mode ColorMode, disableColor bool) bool {
	if disableColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return output.ColorProfile() != termenv.Ascii
	}
}

func (u *UI) print(w io.Writer, output *termenv.Output, color string, format string, args []any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	if u.ColorEnabled {
		msg = output.String(msg).Foreground(output.Color(color)).String()
	}
	fmt.Fprintln(w, msg)
}

func (u *UI) Errorf(format string, args ...any) {
	u.print(u.Err, u.ErrOutput, colorRed, format, args)
}

func (u *UI) Warnf(format string, args ...any) {
	u.print(u.Err, u.ErrOutput, colorYellow, format, args)
}

// Infof and Successf write to stderr so stdout stays clean for records.
func (u *UI) Infof(format string, args ...any) {
	u.print(u.Err, u.ErrOutput, colorBlue, format, args)
}

func (u *UI) Successf(format string, args ...any) {
	u.print(u.Err, u.ErrOutput, colorGreen, format, args)
}

// Report prints a one-line run summary colored by outcome.
func (u *UI) Report(report pipeline.Report) {
	line := FormatReport(report)
	switch {
	case !report.Succeeded():
		u.Errorf("%s", line)
	case report.Empty:
		u.Warnf("%s", line)
	default:
		u.Successf("%s", line)
	}
}

func FormatReport(report pipeline.Report) string {
	line := fmt.Sprintf(
		"%s: %s extracted=%d transformed=%d skipped=%d loaded=%d in %s",
		report.Pipeline,
		report.Outcome(),
		report.Extracted,
		report.Transformed,
		report.Skipped,
		report.Loaded,
		report.Duration().Round(time.Millisecond),
	)
	if report.LoadStatus != 0 {
		line += fmt.Sprintf(" status=%d", report.LoadStatus)
	}
	if report.Error != "" {
		line += " error=" + report.Error
	} else if report.LoadError != "" {
		line += " error=" + report.LoadError
	}
	return line
}

// Progress shows a spinner with elapsed seconds on stderr until the returned
// func is called. It does nothing when stderr is not a terminal.
func (u *UI) Progress(label string) func() {
	if u == nil || u.Err == nil || u.ErrOutput.ColorProfile() == termenv.Ascii {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(u.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				fmt.Fprintf(u.Err, "\r\033[2K%s... %ds %s", label, seconds, frames[index%len(frames)])
				index++
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func NormalizeColorMode(value string) ColorMode {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case string(ColorAlways):
		return ColorAlways
	case string(ColorNever):
		return ColorNever
	default:
		return ColorAuto
	}
}
