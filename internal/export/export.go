package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
	// MaxWidth truncates long cells in table output; 0 keeps them whole.
	MaxWidth int
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

const linkColor = "#87CEEB"

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "markdown":
		return FormatMarkdown, nil
	case FormatTSV:
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use table, csv, json, md or tsv)", value)
	}
}

// WriteTable renders rows read from the central API.
func WriteTable(w io.Writer, t *api.Table, format Format, opts WriteOptions) error {
	if format == FormatJSON {
		rows := t.Rows
		if rows == nil {
			rows = []api.Row{}
		}
		return writeJSON(w, rows)
	}

	columns := orderColumns(t.Columns, t.Key)
	cells := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		line := make([]string, len(columns))
		for i, column := range columns {
			line[i] = row.String(column)
		}
		cells = append(cells, line)
	}
	return render(w, columns, cells, format, opts)
}

// WriteRecords renders a batch of pipeline records, such as the output of a
// dry run. Records are flattened through their JSON form.
func WriteRecords(w io.Writer, records any, format Format, opts WriteOptions) error {
	if format == FormatJSON {
		return writeJSON(w, records)
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	t, err := api.DecodeTable(api.IDField, raw)
	if err != nil {
		return err
	}
	return WriteTable(w, t, format, opts)
}

var reportHeader = []string{"pipeline", "outcome", "extracted", "transformed", "skipped", "loaded", "status", "duration", "error"}

// WriteReports renders run summaries.
func WriteReports(w io.Writer, reports []pipeline.Report, format Format, opts WriteOptions) error {
	if format == FormatJSON {
		return writeJSON(w, reports)
	}

	cells := make([][]string, 0, len(reports))
	for _, report := range reports {
		status := ""
		if report.LoadStatus != 0 {
			status = fmt.Sprintf("%d", report.LoadStatus)
		}
		cells = append(cells, []string{
			report.Pipeline,
			report.Outcome(),
			fmt.Sprintf("%d", report.Extracted),
			fmt.Sprintf("%d", report.Transformed),
			fmt.Sprintf("%d", report.Skipped),
			fmt.Sprintf("%d", report.Loaded),
			status,
			report.Duration().Round(time.Millisecond).String(),
			firstNonEmpty(report.Error, report.LoadError),
		})
	}
	return render(w, reportHeader, cells, format, opts)
}

func render(w io.Writer, header []string, cells [][]string, format Format, opts WriteOptions) error {
	if format == FormatTSV {
		return writeDelimited(w, header, cells, '\t')
	}
	if len(cells) == 0 && (format == FormatTable || format == FormatMarkdown) {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(header))

	output := termenv.NewOutput(w)
	for _, line := range cells {
		row := make(table.Row, len(line))
		for i, cell := range line {
			if format == FormatTable {
				row[i] = decorate(cell, output, opts)
			} else {
				row[i] = cell
			}
		}
		tw.AppendRow(row)
	}

	var out string
	switch format {
	case FormatCSV:
		out = tw.RenderCSV()
	case FormatMarkdown:
		out = tw.RenderMarkdown()
	default:
		out = tw.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeDelimited(w io.Writer, header []string, cells [][]string, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, line := range cells {
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// orderColumns puts the key column first.
func orderColumns(columns []string, key string) []string {
	out := make([]string, 0, len(columns))
	for _, column := range columns {
		if column == key {
			out = append(out, column)
		}
	}
	for _, column := range columns {
		if column != key {
			out = append(out, column)
		}
	}
	return out
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, value := range values {
		row[i] = value
	}
	return row
}

func decorate(cell string, output *termenv.Output, opts WriteOptions) string {
	cell = strings.TrimSpace(cell)
	if !isURL(cell) {
		return truncate(cell, opts.MaxWidth)
	}

	display := cell
	if opts.LinkStyle == LinkStyleShort {
		display = shortURLLabel(cell)
	}
	if opts.ColorEnabled {
		display = output.String(display).Foreground(output.Color(linkColor)).String()
	}
	if opts.Hyperlinks {
		display = hyperlink(cell, display)
	}
	return display
}

func isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if max <= 3 || len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	return truncate(label, maxLen)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
