package printer

import (
	"fmt"
	"strings"

	"fielddispatch/domain"
)

// receiptWidth is the column count of the 80mm thermal paper profile.
const receiptWidth = 42

// cutCommand is the trailing paper-cut sequence (GS V 0).
var cutCommand = []byte{0x1d, 0x56, 0x00}

// FormatReceipt renders a task as a fixed-width receipt. The output is a pure
// function of the task: re-formatting the same task yields byte-identical
// bytes, which keeps manual reprints comparable to the original.
func FormatReceipt(t domain.Task) []byte {
	var b strings.Builder
	rule := strings.Repeat("=", receiptWidth)
	thin := strings.Repeat("-", receiptWidth)

	b.WriteString(rule + "\n")
	b.WriteString(center("TRANSFER ORDER") + "\n")
	b.WriteString(rule + "\n")
	field(&b, "No", t.TransferNumber)
	field(&b, "Title", t.Title)
	field(&b, "Category", t.Category)
	b.WriteString(thin + "\n")
	field(&b, "From", t.FromLocation)
	field(&b, "To", t.ToLocation)
	field(&b, "Date", t.TransferDate)
	field(&b, "Time", t.TransferTime)
	if t.WorkerName != "" {
		worker := t.WorkerName
		if t.WorkerID != "" {
			worker = fmt.Sprintf("%s (%s)", t.WorkerName, t.WorkerID)
		}
		field(&b, "Worker", worker)
	}
	field(&b, "Client", t.ClientName)
	field(&b, "Phone", t.ClientPhone)
	if t.Notes != "" {
		b.WriteString(thin + "\n")
		b.WriteString("Notes:\n")
		for _, line := range wrap(t.Notes, receiptWidth-2) {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString(rule + "\n")

	out := []byte(b.String())
	return append(out, cutCommand...)
}

func center(s string) string {
	r := []rune(s)
	if len(r) >= receiptWidth {
		return string(r[:receiptWidth])
	}
	pad := (receiptWidth - len(r)) / 2
	return strings.Repeat(" ", pad) + s
}

// field prints "Label:    value", wrapping overlong values onto continuation
// lines aligned with the value column. Labels are ASCII; values may not be.
func field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	prefix := fmt.Sprintf("%-10s", label+":")
	lines := wrap(value, receiptWidth-len(prefix))
	b.WriteString(prefix + lines[0] + "\n")
	for _, line := range lines[1:] {
		b.WriteString(strings.Repeat(" ", len(prefix)) + line + "\n")
	}
}

// wrap splits s into lines of at most width runes, breaking on spaces where
// possible. Measuring and splitting happen on runes so multi-byte text (client
// names and notes are routinely Arabic) never gets sliced mid-character.
func wrap(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var cur []rune
	for _, word := range words {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(cur, ' ')
			cur = append(cur, w...)
		default:
			lines = append(lines, string(cur))
			cur = w
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
