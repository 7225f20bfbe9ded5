/*
* Renders ranked line counts for output.
 */
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"lukechampine.com/uint128"

	"github.com/sinclairtarget/git-loc/internal/format"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

type Format string

const (
	TableFormat Format = "table"
	PlainFormat Format = "plain"
	CSVFormat   Format = "csv"
	JSONFormat  Format = "json"
)

var Formats = []Format{TableFormat, PlainFormat, CSVFormat, JSONFormat}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown output format %q", s)
	}

	return f, nil
}

const maxAuthorWidth = 40

type Options struct {
	Format Format
	Limit  int // Rows shown; 0 means all
}

// Writes the tallies, which must already be ranked.
func Write(w io.Writer, ranked []tally.FinalTally, opts Options) error {
	total := uint128.Zero
	for _, t := range ranked {
		total = total.Add(t.Lines)
	}

	shown := ranked
	if opts.Limit > 0 && opts.Limit < len(ranked) {
		shown = ranked[:opts.Limit]
	}
	numFilteredOut := len(ranked) - len(shown)

	switch opts.Format {
	case PlainFormat:
		return writePlain(w, shown)
	case CSVFormat:
		return writeCsv(w, shown)
	case JSONFormat:
		return writeJSON(w, shown, total)
	case TableFormat, "":
		return writeTable(w, shown, total, numFilteredOut)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func writePlain(w io.Writer, tallies []tally.FinalTally) error {
	_, err := fmt.Fprintln(w, "Lines of code per developer:")
	if err != nil {
		return err
	}

	for _, t := range tallies {
		_, err := fmt.Fprintf(w, "- %s: %s\n", t.Author, t.Lines.String())
		if err != nil {
			return err
		}
	}

	return nil
}

func writeCsv(w io.Writer, tallies []tally.FinalTally) error {
	cw := csv.NewWriter(w)

	err := cw.Write([]string{"author", "lines"})
	if err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, t := range tallies {
		if err := cw.Write([]string{t.Author, t.Lines.String()}); err != nil {
			return fmt.Errorf("error writing CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing CSV writer: %w", err)
	}

	return nil
}

type jsonRecord struct {
	Author string      `json:"author"`
	Lines  json.Number `json:"lines"`
	Share  float64     `json:"share"`
}

func writeJSON(w io.Writer, tallies []tally.FinalTally, total uint128.Uint128) error {
	records := make([]jsonRecord, 0, len(tallies))
	for _, t := range tallies {
		records = append(records, jsonRecord{
			Author: t.Author,
			Lines:  json.Number(t.Lines.String()),
			Share:  share(t.Lines, total),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func share(n uint128.Uint128, total uint128.Uint128) float64 {
	if total == uint128.Zero {
		return 0
	}

	num, _ := n.Big().Float64()
	denom, _ := total.Big().Float64()
	return num / denom
}

func writeTable(
	w io.Writer,
	tallies []tally.FinalTally,
	total uint128.Uint128,
	numFilteredOut int,
) error {
	if len(tallies) == 0 {
		_, err := fmt.Fprintln(w, "No lines of code found.")
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: maxAuthorWidth},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"#", "Author", "Lines", "Share"})

	for i, t := range tallies {
		tbl.AppendRow(table.Row{
			i + 1,
			format.Abbrev(t.Author, maxAuthorWidth),
			format.Number(t.Lines),
			format.Percent(t.Lines, total),
		})
	}

	if numFilteredOut > 0 {
		tbl.AppendRow(table.Row{
			"",
			fmt.Sprintf("...%d more...", numFilteredOut),
			"",
			"",
		})
	}

	tbl.AppendFooter(table.Row{"", "Total", format.Number(total), ""})
	tbl.Render()
	return nil
}
