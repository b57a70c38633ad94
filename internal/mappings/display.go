package mappings

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

const maxDisplayChanges = 20

// PrintSummary prints a human-readable summary of mapping file changes
func PrintSummary(w io.Writer, dir string, changes []Change) {
	if len(changes) == 0 {
		_, _ = fmt.Fprintf(w, "No mapping files changed in %s\n", dir)
		return
	}

	_, _ = fmt.Fprintf(w, "Mapping files in %s\n", dir)
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 40))

	for i, c := range changes {
		if i == maxDisplayChanges {
			_, _ = fmt.Fprintf(w, "  ... and %d more\n", len(changes)-maxDisplayChanges)
			break
		}
		_, _ = fmt.Fprintf(w, "  %s %s (%s)\n", symbol(c.Type), c.Path, humanize.Bytes(uint64(c.Size)))
	}

	added, modified, deleted := 0, 0, 0
	for _, c := range changes {
		switch c.Type {
		case Added:
			added++
		case Modified:
			modified++
		case Deleted:
			deleted++
		}
	}
	_, _ = fmt.Fprintf(w, "%d added, %d modified, %d deleted\n", added, modified, deleted)
}

func symbol(t ChangeType) string {
	switch t {
	case Added:
		return "+"
	case Deleted:
		return "-"
	default:
		return "~"
	}
}
