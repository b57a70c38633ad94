package banner

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const art = ` /$$      /$$ /$$                     /$$      /$$                     /$$
| $$  /$ | $$|__/                    | $$$    /$$$                    | $$
| $$ /$$$| $$ /$$  /$$$$$$   /$$$$$$ | $$$$  /$$$$  /$$$$$$   /$$$$$$$| $$   /$$
| $$/$$ $$ $$| $$ /$$__  $$ /$$__  $$| $$ $$/$$ $$ /$$__  $$ /$$_____/| $$  /$$/
| $$$$_  $$$$| $$| $$  \__/| $$$$$$$$| $$  $$$| $$| $$  \ $$| $$      | $$$$$$/
| $$$/ \  $$$| $$| $$      | $$_____/| $$\  $ | $$| $$  | $$| $$      | $$_  $$
| $$/   \  $$| $$| $$      |  $$$$$$$| $$ \/  | $$|  $$$$$$/|  $$$$$$$| $$ \  $$
|__/     \__/|__/|__/       \_______/|__/     |__/ \______/  \_______/|__/  \__/`

var (
	artStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

// Print writes the startup banner: the launch command, the logo and the port
func Print(w io.Writer, commandLine, port string) {
	_, _ = fmt.Fprintf(w, "\n%s\n\n", labelStyle.Render(commandLine))
	_, _ = fmt.Fprintln(w, artStyle.Render(art))
	_, _ = fmt.Fprintf(w, "\nPort: %s\n", port)
}
