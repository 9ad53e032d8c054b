package main

import (
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/hpungsan/iapod/internal/db"
	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/ops"
	"github.com/hpungsan/iapod/internal/reconcile"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func isStdoutTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func episodeTable(items []ops.EpisodeSummary) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			strconv.Itoa(it.Number),
			it.Identifier,
			truncateCell(it.Title, 48),
			formatDay(it.Datetime),
			episode.FormatDuration(it.Length),
			strconv.FormatUint(it.Downloads, 10),
		})
	}
	return renderTable(
		[]string{"#", "Identifier", "Title", "Date", "Length", "Downloads"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func deliveryTable(items []db.Delivery) string {
	rows := make([][]string, 0, len(items))
	for _, d := range items {
		result := "ok"
		if !d.OK {
			result = truncateCell(d.Error, 60)
		}
		rows = append(rows, []string{
			formatUnix(d.CreatedAt),
			d.Identifier,
			d.Channel,
			result,
		})
	}
	return renderTable([]string{"When", "Identifier", "Channel", "Result"}, rows, nil)
}

func runTable(items []db.Run) string {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		finished := "-"
		if r.FinishedAt != 0 {
			finished = formatUnix(r.FinishedAt)
		}
		truncated := ""
		if r.Truncated {
			truncated = "yes"
		}
		rows = append(rows, []string{
			r.ID,
			formatUnix(r.StartedAt),
			finished,
			strconv.Itoa(r.Entries),
			strconv.Itoa(r.Unchanged),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Published),
			strconv.Itoa(r.Skipped),
			truncated,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Finished", "Entries", "Unchanged", "Updated", "Published", "Skipped", "Truncated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

// syncTable lists the entries that changed or failed; unchanged ones are
// only counted.
func syncTable(out *ops.SyncOutput) string {
	var rows [][]string
	if out.Report != nil {
		for _, res := range out.Report.Results {
			if res.Outcome == reconcile.Unchanged {
				continue
			}
			detail := res.Error
			if res.Outcome == reconcile.Published {
				detail = deliverySummary(res)
			}
			rows = append(rows, []string{res.Identifier, string(res.Outcome), truncateCell(detail, 60)})
		}
	}
	rows = append(rows, []string{
		"total",
		"",
		"unchanged " + strconv.Itoa(out.Unchanged) +
			", updated " + strconv.Itoa(out.Updated) +
			", published " + strconv.Itoa(out.Published) +
			", skipped " + strconv.Itoa(out.Skipped),
	})
	return renderTable([]string{"Identifier", "Outcome", "Detail"}, rows, nil)
}

func deliverySummary(res reconcile.Result) string {
	s := ""
	for i, d := range res.Deliveries {
		if i > 0 {
			s += " "
		}
		if d.OK {
			s += d.Channel + ":ok"
		} else {
			s += d.Channel + ":failed"
		}
	}
	return s
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatUnix(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func truncateCell(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
