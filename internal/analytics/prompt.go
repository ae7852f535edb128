package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/serverhealth/internal/domain"
)

const initialPrompt = `Give a short analysis of the server state:
1. Overall status (🟢 good / 🟡 attention / 🔴 critical)
2. Detected issues (if any)
3. Recommendations (2-3 items)`

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func dimension(label string, current float64, st domain.Stats) string {
	if st.Empty() {
		return fmt.Sprintf("- %s: %s%% (history: no data)", label, num(current))
	}
	return fmt.Sprintf("- %s: %s%% (min: %s%%, max: %s%%, avg: %.1f%%)",
		label, num(current), num(st.Min), num(st.Max), st.Avg)
}

// SystemPrompt renders the frozen summary as the model's standing context.
func SystemPrompt(sum domain.Summary) string {
	c := sum.Current
	var b strings.Builder
	fmt.Fprintf(&b, "You are a server infrastructure expert analysing the server %q.\n\n", sum.ServerName)
	b.WriteString("Current readings:\n")
	b.WriteString(dimension("CPU", c.CPU, sum.CPU) + "\n")
	b.WriteString(dimension("RAM", c.RAM, sum.RAM) + "\n")
	b.WriteString(dimension("Disk", c.Disk, sum.Disk) + "\n")
	fmt.Fprintf(&b, "- Load average: %s / %s / %s\n", num(c.Load1), num(c.Load5), num(c.Load15))
	fmt.Fprintf(&b, "- Uptime: %d days\n", c.UptimeDays)
	fmt.Fprintf(&b, "- Zombie processes: %d\n\n", c.ZombieProcs)
	b.WriteString("Answer the user's questions about this server. Be brief and to the point.")
	return b.String()
}
