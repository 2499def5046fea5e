package led

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/smazurov/indicatord/internal/intent"
)

var terminalColors = map[intent.Color]lipgloss.Color{
	intent.Black:   lipgloss.Color("#3F3F46"),
	intent.Red:     lipgloss.Color("#EF4444"),
	intent.Green:   lipgloss.Color("#22C55E"),
	intent.Yellow:  lipgloss.Color("#EAB308"),
	intent.Blue:    lipgloss.Color("#3B82F6"),
	intent.Magenta: lipgloss.Color("#D946EF"),
	intent.Cyan:    lipgloss.Color("#06B6D4"),
	intent.White:   lipgloss.Color("#F4F4F5"),
}

// Terminal renders the indicator as a colored dot, one line per change.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	start time.Time
	label lipgloss.Style
}

// NewTerminal writes to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:   out,
		start: time.Now(),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// Name identifies the sink in logs.
func (t *Terminal) Name() string { return "terminal" }

// SetColor prints the new color with its offset from sink creation.
func (t *Terminal) SetColor(c intent.Color) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dot := lipgloss.NewStyle().Foreground(terminalColors[c]).Bold(true).Render("●")
	elapsed := time.Since(t.start).Truncate(time.Millisecond)
	_, err := fmt.Fprintf(t.out, "%s %s %s\n", t.label.Render(fmt.Sprintf("%9s", elapsed)), dot, c)
	return err
}
