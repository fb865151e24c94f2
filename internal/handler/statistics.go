// internal/handler/statistics.go
package handler

import (
	"fmt"
	"sort"
	"strings"
)

// ReportRow is one bin category of the yield table.
type ReportRow struct {
	Bin    int
	Label  string
	Counts []int  // per site, 0 where the site never produced the bin
	Seen   []bool // per site, false renders a blank cell
	Total  int
}

// Report is the yield statistics of all sites.
type Report struct {
	Sites         int
	Rows          []ReportRow
	ColumnTotals  []int // per site, reprobe row excluded
	TestedDevices int
}

// Statistics builds the yield report. It has no effect on handling.
func (h *Handler) Statistics() Report {
	n := len(h.sites)
	hist := make([]map[int]int, n)
	distinct := map[int]struct{}{}
	for i := range h.sites {
		hist[i] = h.sites[i].Statistics()
		for bin := range hist[i] {
			distinct[bin] = struct{}{}
		}
	}

	bins := make([]int, 0, len(distinct))
	for bin := range distinct {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	r := Report{
		Sites:         n,
		ColumnTotals:  make([]int, n),
		TestedDevices: h.numOfTestedDevices,
	}
	for _, bin := range bins {
		row := ReportRow{
			Bin:    bin,
			Label:  h.binLabel(bin),
			Counts: make([]int, n),
			Seen:   make([]bool, n),
		}
		for s := 0; s < n; s++ {
			c, ok := hist[s][bin]
			if !ok {
				continue
			}
			row.Counts[s] = c
			row.Seen[s] = true
			row.Total += c
			if bin != h.reprobeCategory {
				r.ColumnTotals[s] += c
			}
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

func (h *Handler) binLabel(bin int) string {
	switch bin {
	case h.reprobeCategory:
		return "Reprobe"
	case h.retestCategory:
		return "Retest"
	default:
		return fmt.Sprintf("Cat %3d", bin)
	}
}

// Lines renders the report as a fixed-width table.
func (r Report) Lines() []string {
	var lines []string
	var b strings.Builder

	b.WriteString("         ")
	for s := 1; s <= r.Sites; s++ {
		fmt.Fprintf(&b, " Site%-3d ", s)
	}
	b.WriteString(" Total ")
	lines = append(lines, b.String())

	for _, row := range r.Rows {
		b.Reset()
		fmt.Fprintf(&b, " %-8s", row.Label)
		for s := 0; s < r.Sites; s++ {
			if row.Seen[s] {
				fmt.Fprintf(&b, " %4d    ", row.Counts[s])
			} else {
				b.WriteString("         ")
			}
		}
		fmt.Fprintf(&b, " %4d    ", row.Total)
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}

	b.Reset()
	b.WriteString("Total    ")
	for _, t := range r.ColumnTotals {
		fmt.Fprintf(&b, " %4d    ", t)
	}
	lines = append(lines, "", strings.TrimRight(b.String(), " "), "")
	lines = append(lines, fmt.Sprintf("Total Number of tested devices = %d", r.TestedDevices))
	return lines
}

// LogHandlerStatistics logs the yield table line by line.
func (h *Handler) LogHandlerStatistics() {
	h.log.Info("yield statistics")
	for _, line := range h.Statistics().Lines() {
		h.log.Info(line)
	}
}
