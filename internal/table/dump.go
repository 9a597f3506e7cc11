package table

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// Dump writes the records in [from, to) as an aligned table. Long texts are
// chopped to 32 characters.
func (t *Table) Dump(w io.Writer, from, to int) error {
	if from < 0 {
		from = 0
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRE\tKIND\tSIZE\tATTS\tNAME\tTEXT")
	for p, r := range t.Records(from, to) {
		pre := from + p
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
			pre, r.Kind, r.Size, r.AttSize, t.names.Lookup(r.Name), chop(t.Text(pre), 32))
	}
	return tw.Flush()
}

func chop(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		s = string(r[:n]) + "..."
	}
	return strconv.Quote(s)
}
