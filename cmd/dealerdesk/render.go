package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func title(s string) string {
	return titleStyle.Render(s)
}

func printJSON(w io.Writer, v any) error {
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// columns puts the identifier first, then the remaining keys in lexical order.
func columns(records []models.Record) []string {
	seen := map[string]bool{}
	var rest []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				if k != models.FieldUUID && k != models.FieldID {
					rest = append(rest, k)
				}
			}
		}
	}
	sort.Strings(rest)
	var cols []string
	for _, k := range []string{models.FieldUUID, models.FieldID} {
		if seen[k] {
			cols = append(cols, k)
		}
	}
	return append(cols, rest...)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.DateTime)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(time.DateTime)
	case map[string]any, []any:
		data, err := codec.Default.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printRecords(w io.Writer, asJSON bool, records []models.Record) error {
	if asJSON {
		if records == nil {
			records = []models.Record{}
		}
		return printJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	cols := columns(records)
	t := newTable(cols...)
	for _, rec := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(rec[c])
		}
		t.Row(row...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func printChoices(w io.Writer, asJSON bool, choices []models.Choice) error {
	if asJSON {
		return printJSON(w, choices)
	}
	t := newTable("value", "label")
	for _, c := range choices {
		t.Row(c.Value.String(), c.Label)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
