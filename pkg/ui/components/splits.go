package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SplitRow is one reserve-asset leg of a basket redeem.
type SplitRow struct {
	Symbol string
	Amount string
}

// SplitsComponent renders the basket redeem breakdown.
type SplitsComponent struct {
	rows []SplitRow
}

// NewSplitsComponent creates a new splits component.
func NewSplitsComponent() *SplitsComponent {
	return &SplitsComponent{}
}

// Update replaces the split data.
func (c *SplitsComponent) Update(rows []SplitRow) {
	c.rows = rows
}

// Empty reports whether there is anything to show.
func (c *SplitsComponent) Empty() bool {
	return len(c.rows) == 0
}

// View renders the splits component.
func (c *SplitsComponent) View() string {
	if len(c.rows) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("REDEEM BASKET"))
	sb.WriteString("\n\n")

	for _, row := range c.rows {
		sb.WriteString(fmt.Sprintf("  %-8s  %s\n", row.Symbol, row.Amount))
	}
	sb.WriteString(dimStyle.Render("  proportional to vault reserves"))

	return sb.String()
}
