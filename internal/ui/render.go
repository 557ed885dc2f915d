package ui

import (
	"fmt"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

// ListLines renders the plain (non-interactive) list, including header and
// progress bar, ready for Panel.
func ListLines(items []model.Todo, group bool) []string {
	d, p := stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(current.Title, "Todo List"),
		C(current.Success, current.SymDone), d,
		C(current.Pending, current.SymUnchecked), p,
		C(current.Accent, "Total"), len(items),
	)

	lines := []string{header, C(current.Muted, ProgressBar(d, d+p, 28)), ""}
	if group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, C(current.Muted, "Tip: add with `todo add \"Buy milk\"`, toggle with `todo done <id>`"))
	return lines
}

func stats(items []model.Todo) (done, pending int) {
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

func flatLines(items []model.Todo) []string {
	if len(items) == 0 {
		return []string{C(current.Muted, "No tasks yet. Add one above!")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		id := fmt.Sprintf("%3d", it.ID)
		box := current.BoxUnchecked
		color := current.Muted
		text := it.Text
		if len([]rune(text)) > 80 {
			text = string([]rune(text)[:77]) + "..."
		}
		if it.Completed {
			box, color = current.BoxChecked, current.Success
			text = C(strike, text)
		}
		out = append(out, fmt.Sprintf("%s %s %s", C(dim, id), C(color, box), text))
	}
	return out
}

func groupLines(items []model.Todo) []string {
	var pend, done []model.Todo
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, C(current.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, C(current.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, C(current.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, C(current.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
