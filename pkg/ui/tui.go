// Package ui provides the Bubble Tea TUI for the swap router.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	swapapp "github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/pkg/ui/components"
)

// ConnectionInfo holds connection state and latency.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	routes *components.RoutesComponent
	splits *components.SplitsComponent
	keys   KeyMap

	// State
	quitting        bool
	width           int
	height          int
	round           domain.RoundSet
	hasRound        bool
	loading         bool
	gasPrice        float64
	ethPrice        float64
	connectionState map[string]*ConnectionInfo
	lastUpdate      time.Time
	errors          []ErrorEntry
	logs            []string

	// Pending route confirmation (materially worse than best)
	confirm *ConfirmRouteMsg
}

// New creates a new TUI model.
func New() Model {
	return Model{
		routes: components.NewRoutesComponent(),
		splits: components.NewSplitsComponent(),
		keys:   DefaultKeyMap(),
		connectionState: map[string]*ConnectionInfo{
			"Ethereum": {Connected: false},
		},
		logs:   make([]string, 0, 5),
		errors: make([]ErrorEntry, 0, 3),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tickCmd()

	case RoundMsg:
		m.round = msg.Round
		m.hasRound = !msg.Round.Empty()
		m.loading = msg.Loading
		m.routes.Update(buildRouteRows(msg.Round), msg.Loading)
		m.splits.Update(buildSplitRows(msg.Round))
		m.lastUpdate = time.Now()

	case GasPriceMsg:
		m.gasPrice = msg.GweiPrice
		m.lastUpdate = time.Now()

	case EthPriceMsg:
		m.ethPrice = msg.PriceUSD

	case ConnectionStatusMsg:
		m.connectionState[msg.Name] = &ConnectionInfo{
			Connected: msg.Connected,
			Latency:   msg.Latency,
			LastSeen:  time.Now(),
		}

	case ConfirmRouteMsg:
		m.confirm = &msg

	case ExecutionMsg:
		if msg.Err != nil {
			m.errors = appendError(m.errors, msg.Err.Error())
		} else {
			m.logs = addLog(m.logs, "info",
				fmt.Sprintf("swap sent on %s: %s", msg.Venue.DisplayName(), msg.TxHash))
		}

	case ErrorMsg:
		m.errors = appendError(m.errors, msg.Error.Error())
		m.logs = addLog(m.logs, "error", msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A pending confirmation captures y/n first.
	if m.confirm != nil {
		switch msg.String() {
		case "y":
			venue := m.confirm.Venue
			m.confirm = nil
			if OnSelectRoute != nil {
				go OnSelectRoute(venue, true)
			}
			return m, nil
		case "n", "esc":
			m.confirm = nil
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.routes.CursorUp()
	case "down", "j":
		m.routes.CursorDown()
	case "enter":
		if v, ok := m.hoveredVenue(); ok && OnSelectRoute != nil {
			go OnSelectRoute(v, false)
		}
	case "x":
		if OnClearSelection != nil {
			go OnClearSelection()
		}
	case "s":
		if OnExecute != nil {
			go OnExecute()
		}
	case "e":
		m.errors = make([]ErrorEntry, 0, 3)
	}

	return m, nil
}

// hoveredVenue maps the table cursor back to a venue.
func (m Model) hoveredVenue() (domain.Venue, bool) {
	name := m.routes.Hovered()
	for _, e := range m.round.Estimates {
		if e.Venue.DisplayName() == name {
			return e.Venue, true
		}
	}
	return domain.VenueNone, false
}

// buildRouteRows converts an enriched round into display rows.
func buildRouteRows(round domain.RoundSet) []components.RouteRow {
	rows := make([]components.RouteRow, 0, len(round.Estimates))
	for _, e := range round.Estimates {
		row := components.RouteRow{
			Venue:    e.Venue.DisplayName(),
			Eligible: e.CanSwap,
		}
		if !e.CanSwap {
			row.Reason = string(e.Err)
			rows = append(rows, row)
			continue
		}

		row.AmountReceived = e.AmountReceived.StringFixed(6)
		row.GasUSD = "$" + e.GasCostUSD.StringFixed(2)
		row.EffectivePrice = e.EffectivePrice.StringFixed(4)
		row.Best = e.IsBest
		row.Selected = e.UserSelected
		row.NeedsApproval = e.ApproveNeeded
		if !e.IsBest {
			row.DiffPct = e.DiffPct.StringFixed(2)
		}
		rows = append(rows, row)
	}
	return rows
}

// buildSplitRows extracts the basket legs from the selected estimate.
func buildSplitRows(round domain.RoundSet) []components.SplitRow {
	sel := round.Selected()
	if sel == nil || len(sel.CoinSplits) == 0 {
		return nil
	}
	rows := make([]components.SplitRow, 0, len(sel.CoinSplits))
	for _, split := range sel.CoinSplits {
		rows = append(rows, components.SplitRow{
			Symbol: split.Coin.Symbol(),
			Amount: split.Amount.StringFixed(4),
		})
	}
	return rows
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder

	title := TitleStyle.Render(" ⇄ OUSD/OETH Swap Router ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Main content: routes on the left, request + basket on the right
	leftCol := m.routes.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.renderRequest())
	if !m.splits.Empty() {
		rightContent.WriteString("\n\n")
		rightContent.WriteString(m.splits.View())
	}
	rightCol := rightContent.String()

	if m.width > 110 {
		left := BoxStyle.Width(2*m.width/3 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/3 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(m.width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(m.width - 4).Render(rightCol))
	}

	b.WriteString("\n\n")

	// Confirmation prompt for a materially worse route
	if m.confirm != nil {
		warnStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
		b.WriteString(warnStyle.Render(fmt.Sprintf(
			"  %s is %s%% worse than the best route. Use it anyway? (y/n)",
			m.confirm.Venue.DisplayName(), m.confirm.DiffPct)))
		b.WriteString("\n\n")
	}

	// Persistent error panel (last 3)
	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render("  • " + err.Message))
			b.WriteString(MutedValue.Render(fmt.Sprintf(" (%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("q: quit • ↑↓: move • enter: select route • x: auto-route"))

	return b.String()
}

// renderRequest shows the swap the current round answers.
func (m Model) renderRequest() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	dimStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("SWAP"))
	sb.WriteString("\n\n")

	if !m.hasRound {
		sb.WriteString(dimStyle.Render("  no active request"))
		return sb.String()
	}

	req := m.round.Request
	sb.WriteString(fmt.Sprintf("  Mode:     %s\n", req.Mode))
	sb.WriteString(fmt.Sprintf("  Protocol: %s\n", req.Protocol.Symbol()))
	sb.WriteString(fmt.Sprintf("  Coin:     %s\n", req.Coin))
	sb.WriteString(fmt.Sprintf("  Amount:   %s\n", req.Amount))
	sb.WriteString(fmt.Sprintf("  Slippage: %s%%\n", req.Slippage.String()))

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.loading {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		loadingStyle := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
		parts = append(parts, loadingStyle.Render(spinners[idx]+" Estimating"))
	}

	if m.gasPrice > 0 {
		parts = append(parts, fmt.Sprintf("Gas: %.1f gwei", m.gasPrice))
	}
	if m.ethPrice > 0 {
		parts = append(parts, fmt.Sprintf("ETH: $%.2f", m.ethPrice))
	}
	if m.hasRound {
		parts = append(parts, fmt.Sprintf("Round: #%d", m.round.Generation))
	}

	for name, info := range m.connectionState {
		var statusStyle lipgloss.Style
		var icon, status string
		if info != nil && info.Connected {
			statusStyle = StatusConnected
			icon = "●"
			status = name
			if info.Latency > 0 {
				status = fmt.Sprintf("%s (%dms)", name, info.Latency.Milliseconds())
			}
		} else {
			statusStyle = StatusDisconnected
			icon = "○"
			status = name + " (disconnected)"
		}
		parts = append(parts, statusStyle.Render(icon+" "+status))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// appendError keeps the last 3 errors.
func appendError(errs []ErrorEntry, message string) []ErrorEntry {
	errs = append(errs, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(errs) > 3 {
		errs = errs[len(errs)-3:]
	}
	return errs
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnSelectRoute is called when the user picks a route. A selection that
// is materially worse than the best route comes back as
// ErrConfirmationRequired, which re-enters the UI as a ConfirmRouteMsg.
var OnSelectRoute func(v domain.Venue, confirmed bool)

// OnClearSelection is called when the user returns to automatic routing.
var OnClearSelection func()

// OnExecute is called when the user sends the selected route. The
// outcome comes back as an ExecutionMsg.
var OnExecute func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}

// IsConfirmationRequired reports whether a selection error means the
// user must confirm a worse route.
func IsConfirmationRequired(err error) bool {
	return errors.Is(err, swapapp.ErrConfirmationRequired)
}
