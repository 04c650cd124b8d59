package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/vicentereig/yt-resolver/internal/types"
)

// FormatsTable renders format entries for humans, one row per format.
func FormatsTable(w io.Writer, entries []types.FormatEntry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Ext", "Note", "Size", "Format"})
	table.SetAutoWrapText(false)
	for _, e := range entries {
		table.Append([]string{e.FormatID, e.Extension, e.Note, HumanSize(e.FilesizeBytes), e.Label})
	}
	table.Render()
}

// HumanSize formats a byte count with a binary unit ("3.4 MiB").
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
