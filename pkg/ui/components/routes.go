// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RouteRow represents one venue in the route table.
type RouteRow struct {
	Venue          string
	Eligible       bool
	Reason         string // why the venue is out, when ineligible
	AmountReceived string
	GasUSD         string
	EffectivePrice string
	DiffPct        string
	Best           bool
	Selected       bool
	NeedsApproval  bool
}

// RoutesComponent renders the per-venue route comparison table.
type RoutesComponent struct {
	rows    []RouteRow
	cursor  int
	loading bool
}

// NewRoutesComponent creates a new routes component.
func NewRoutesComponent() *RoutesComponent {
	return &RoutesComponent{}
}

// Update replaces the route data, keeping the cursor in range.
func (c *RoutesComponent) Update(rows []RouteRow, loading bool) {
	c.rows = rows
	c.loading = loading
	if c.cursor >= len(rows) {
		c.cursor = 0
	}
}

// CursorUp moves the selection cursor up.
func (c *RoutesComponent) CursorUp() {
	if c.cursor > 0 {
		c.cursor--
	}
}

// CursorDown moves the selection cursor down.
func (c *RoutesComponent) CursorDown() {
	if c.cursor < len(c.rows)-1 {
		c.cursor++
	}
}

// Hovered returns the venue name under the cursor, or "".
func (c *RoutesComponent) Hovered() string {
	if c.cursor < 0 || c.cursor >= len(c.rows) {
		return ""
	}
	return c.rows[c.cursor].Venue
}

// View renders the routes component.
func (c *RoutesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))

	var sb strings.Builder

	title := "ROUTES"
	if c.loading {
		title = "ROUTES (estimating...)"
	}
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n\n")

	if len(c.rows) == 0 {
		sb.WriteString(dimStyle.Render("  Enter an amount to compare routes"))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("    %-12s  %16s  %10s  %12s  %8s\n",
		"Venue", "Receive", "Gas", "Eff. price", "Diff"))
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 66)))
	sb.WriteString("\n")

	for i, row := range c.rows {
		cursor := "  "
		if i == c.cursor {
			cursor = cursorStyle.Render("> ")
		}

		if !row.Eligible {
			sb.WriteString(fmt.Sprintf("  %s%-12s  %s\n",
				cursor, row.Venue, dimStyle.Render(row.Reason)))
			continue
		}

		marker := " "
		switch {
		case row.Selected:
			marker = warnStyle.Render("*")
		case row.Best:
			marker = positiveStyle.Render("★")
		}

		diff := dimStyle.Render(fmt.Sprintf("%8s", "best"))
		if row.DiffPct != "" {
			diff = negativeStyle.Render(fmt.Sprintf("%7s%%", row.DiffPct))
		}

		approval := ""
		if row.NeedsApproval {
			approval = warnStyle.Render(" +approve")
		}

		sb.WriteString(fmt.Sprintf("  %s%-12s  %16s  %10s  %12s  %s%s %s\n",
			cursor,
			row.Venue,
			row.AmountReceived,
			row.GasUSD,
			row.EffectivePrice,
			diff,
			approval,
			marker,
		))
	}

	return sb.String()
}
