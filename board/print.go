package board

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// PrintTable writes the registry as a table. The default board is marked
// with an asterisk.
func PrintTable(w io.Writer, r *Registry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Entry", "Machine", "Devices"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor})
	table.SetRowLine(true)

	for _, name := range r.Names() {
		p := r.profiles[name]
		if name == r.DefaultName() {
			name += " *"
		}
		var devs []string
		for _, d := range p.Devices {
			devs = append(devs, fmt.Sprintf("%d:%s", d.Slot, d.Kind))
		}
		table.Append([]string{name, p.EntryHex(), p.Machine, strings.Join(devs, " ")})
	}

	table.Render()
}
