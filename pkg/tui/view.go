package tui

import (
	"fmt"
	"sort"
	"strings"

	"faucetui/pkg/cooldown"
	"faucetui/pkg/models"
	"faucetui/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const recentLimit = 8

func (m model) View() string {
	if len(m.pages) == 0 {
		return errStyle.Render("No faucets configured.")
	}
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showGraph {
		return m.viewGraph()
	}

	p := m.page()
	header := m.viewTabs()
	form := boxStyle.Render(m.viewForm(p))
	stats := boxStyle.Render(m.viewStats(p))
	recent := boxStyle.Render(m.viewRecent(p))

	body := lipgloss.JoinVertical(lipgloss.Center,
		header,
		form,
		lipgloss.JoinHorizontal(lipgloss.Top, stats, recent),
	)

	footer := subtleStyle.Render("i: edit address • enter: request • w: mock wallet • ←/→: network • 1-4: amount • tab: chain • ?: help • q: quit")
	if m.editing {
		footer = subtleStyle.Render("enter: request • esc: done editing • tab: chain • ctrl+c: quit")
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, body, "\n", footer),
	)
}

func (m model) viewTabs() string {
	var tabs []string
	for i, p := range m.pages {
		name := fmt.Sprintf("%s Faucet", p.machine.Profile().Name)
		if i == m.activeIdx {
			tabs = append(tabs, titleStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, tabs...) + "  " + subtleStyle.Render(Version)
}

func (m model) viewForm(p *page) string {
	profile := p.machine.Profile()
	st := p.machine.State()
	var lines []string

	if profile.MultiNetwork() {
		var nets []string
		for _, n := range profile.Networks {
			label := fmt.Sprintf(" %s ", n.Name)
			if n.ID == st.Network {
				nets = append(nets, selectedStyle.Render(label))
			} else {
				nets = append(nets, subtleStyle.Render(label))
			}
		}
		lines = append(lines, "Network  "+strings.Join(nets, " "))
		if n, ok := profile.Network(st.Network); ok {
			lines = append(lines, subtleStyle.Render(fmt.Sprintf("         %s • %s", n.Description, n.RPCURL)))
		}
	}

	var amounts []string
	for i, a := range profile.Amounts {
		label := fmt.Sprintf(" %d) %s ", i+1, a.Label)
		if a.Value == st.Amount {
			amounts = append(amounts, selectedStyle.Render(label))
		} else {
			amounts = append(amounts, subtleStyle.Render(label))
		}
	}
	lines = append(lines, "Amount   "+strings.Join(amounts, " "))
	lines = append(lines, "", "Wallet Address", p.input.View())
	if msg := p.machine.AddressMessage(); msg != "" {
		lines = append(lines, errStyle.Render(msg))
	}

	lines = append(lines, "", m.viewButton(p))

	if st.Success && st.Receipt != nil {
		r := st.Receipt
		msg := fmt.Sprintf("Successfully sent %s %s to %s", utils.FormatAmount(r.Amount), r.Symbol, utils.ShortenAddress(r.Address, 8, 6))
		if profile.MultiNetwork() {
			msg += " on " + profile.NetworkName(r.Network)
		}
		lines = append(lines, infoStyle.Render(msg))
	}
	if st.Error != "" {
		lines = append(lines, errStyle.Render(st.Error))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) viewButton(p *page) string {
	profile := p.machine.Profile()
	st := p.machine.State()
	switch {
	case st.InFlight:
		return fmt.Sprintf("%s Requesting %s...", m.spinner.View(), profile.Symbol)
	case st.Cooldown.Active():
		return buttonDisabledStyle.Render("Wait " + cooldown.Format(st.Cooldown.Remaining()))
	default:
		amount := st.Amount
		if a, ok := profile.Amount(st.Amount); ok {
			amount = a.Label
		}
		return buttonStyle.Render("Request " + amount)
	}
}

func (m model) viewStats(p *page) string {
	profile := p.machine.Profile()
	q := p.analytics
	lines := []string{tableHeaderStyle.Render("Faucet Stats")}

	switch {
	case q.HasData:
		a := q.Data
		lines = append(lines,
			fmt.Sprintf("Total Requests    %s", utils.AddCommas(fmt.Sprint(a.TotalRequests))),
			fmt.Sprintf("Distributed       %s %s", utils.FormatAmount(a.TotalDistributed), profile.Symbol),
			fmt.Sprintf("Active Users      %s", utils.AddCommas(fmt.Sprint(a.ActiveUsers))),
		)
		if profile.MultiNetwork() && len(a.Networks) > 0 {
			lines = append(lines, "", subtleStyle.Render("Per network"))
			var ids []string
			for id := range a.Networks {
				ids = append(ids, string(id))
			}
			sort.Strings(ids)
			for _, id := range ids {
				s := a.Networks[models.Network(id)]
				lines = append(lines, fmt.Sprintf("%-9s %8s req  %s %s",
					utils.TruncateString(profile.NetworkName(models.Network(id)), 9),
					utils.AddCommas(fmt.Sprint(s.TotalRequests)),
					utils.FormatFloat(s.TotalDistributed, 2), profile.Symbol))
			}
		}
	case q.IsLoading:
		lines = append(lines, m.spinner.View()+" Loading stats...")
	default:
		lines = append(lines, subtleStyle.Render("No stats yet"))
	}
	if q.IsError {
		lines = append(lines, errStyle.Render(q.Message()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) viewRecent(p *page) string {
	profile := p.machine.Profile()
	q := p.recent
	lines := []string{tableHeaderStyle.Render("Recent Activity")}

	switch {
	case q.HasData && len(q.Data) > 0:
		now := m.deps.Clock.Now()
		for i, req := range q.Data {
			if i >= recentLimit {
				break
			}
			status := infoStyle.Render("●")
			switch req.Status {
			case models.StatusError:
				status = errStyle.Render("●")
			case models.StatusPending:
				status = pendingStyle.Render("●")
			}
			row := fmt.Sprintf("%s %-17s %-14s %s %s", status,
				utils.ShortenAddress(req.Address, 8, 6),
				utils.NormalizeDate(req.CreatedAt, now),
				utils.FormatAmount(req.Amount), profile.Symbol)
			if profile.MultiNetwork() {
				row += "  " + subtleStyle.Render(utils.TruncateString(profile.NetworkName(req.Network), 9))
			}
			if i == p.selected {
				row = selectedStyle.Render(row)
			}
			lines = append(lines, row)
		}
	case q.IsLoading:
		lines = append(lines, m.spinner.View()+" Loading...")
	default:
		lines = append(lines, subtleStyle.Render("No recent activity"))
	}
	if q.IsError {
		lines = append(lines, errStyle.Render(q.Message()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) viewGraph() string {
	p := m.page()
	profile := p.machine.Profile()
	network := p.machine.RequestNetwork()

	label := profile.Name
	if profile.MultiNetwork() {
		label = fmt.Sprintf("%s %s", profile.Name, profile.NetworkName(network))
	}
	header := titleStyle.Render(fmt.Sprintf("Distribution: %s", label))

	targetBoxWidth := m.width - 4
	if targetBoxWidth < 0 {
		targetBoxWidth = 0
	}

	var graph string
	history := p.history[network]
	if len(history) > 1 {
		graphWidth := targetBoxWidth - 14
		if graphWidth < 10 {
			graphWidth = 10
		}
		graphHeight := m.height - 12
		if graphHeight < 1 {
			graphHeight = 1
		}
		graph = asciigraph.Plot(history,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption(fmt.Sprintf("Total %s distributed", profile.Symbol)),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Width(targetBoxWidth).Align(lipgloss.Center).Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back • r: refresh • ←/→: network")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	var title string
	var shortcuts []string

	if m.showGraph {
		title = "Distribution Graph"
		shortcuts = []string{"g/q/esc: Back", "r: Refresh", "←/→: Change Network"}
	} else {
		title = "Faucet"
		shortcuts = []string{
			"i or /: Edit Address",
			"esc: Stop Editing",
			"enter: Request Tokens",
			"w: Connect Mock Wallet",
			"←/→ or h/l: Change Network",
			"1-4: Select Amount",
			"Tab/n: Next Faucet",
			"S-Tab: Prev Faucet",
			"↑/k ↓/j: Select Request",
			"c: Copy Address",
			"o: Open in Explorer",
			"d: Open Docs",
			"r: Refresh Data",
			"g: Distribution Graph",
			"q/esc: Quit",
			"?: Toggle Help",
		}
	}

	header := titleStyle.Render(fmt.Sprintf("Help: %s", title))
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
