// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// table prints rows inside a box drawn with rounded corners.
type table struct {
	header []string
	rows   [][]string
	// right aligns the columns whose index is set.
	right map[int]bool
}

func newTable(header ...string) *table {
	return &table{header: header, right: make(map[int]bool)}
}

func (t *table) alignRight(cols ...int) *table {
	for _, c := range cols {
		t.right[c] = true
	}

	return t
}

func (t *table) add(cells ...any) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = fmt.Sprint(c)
	}

	t.rows = append(t.rows, row)
}

func (t *table) print(w io.Writer) {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = utf8.RuneCountInString(h)
	}

	for _, row := range t.rows {
		for i, c := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}

	line := func(left, mid, right string) {
		parts := make([]string, len(widths))
		for i, n := range widths {
			parts[i] = strings.Repeat("─", n+2)
		}

		fmt.Fprintf(w, "%s%s%s\n", left, strings.Join(parts, mid), right)
	}

	row := func(cells []string) {
		parts := make([]string, len(widths))
		for i, n := range widths {
			format := "%-*s"
			if t.right[i] {
				format = "%*s"
			}

			parts[i] = " " + fmt.Sprintf(format, n, cells[i]) + " "
		}

		fmt.Fprintf(w, "│%s│\n", strings.Join(parts, "│"))
	}

	line("╭", "┬", "╮")
	row(t.header)
	line("├", "┼", "┤")

	for _, r := range t.rows {
		row(r)
	}

	line("╰", "┴", "╯")
}
