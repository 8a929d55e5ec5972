package tui

import (
	"fmt"
	"strconv"

	"faucetui/pkg/faucet"
	"faucetui/pkg/validator"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case submitResultMsg:
		p := m.pageFor(msg.chain)
		if p == nil {
			break
		}
		if p.machine.Resolve(msg.env, msg.err) {
			p.input.SetValue("")
			gen := p.schedule.Arm()
			cmds = append(cmds, cooldownTick(msg.chain, gen))
			if m.deps.Queries != nil {
				m.deps.Queries.Invalidate(msg.chain, msg.network)
			}
			cmds = append(cmds, m.refetch(p)...)
			m.deps.Log.Info("airdrop request granted", zap.String("chain", string(msg.chain)))
		}

	case cooldownTickMsg:
		p := m.pageFor(msg.chain)
		if p == nil || !p.schedule.Accept(msg.gen) {
			break
		}
		if p.machine.Tick() {
			cmds = append(cmds, cooldownTick(msg.chain, msg.gen))
		} else {
			p.schedule.Stop()
		}

	case recentResultMsg:
		p := m.pageFor(msg.key.Chain)
		if p == nil {
			break
		}
		if p.recent.Apply(msg.key, msg.data, msg.err, m.deps.Clock.Now()) {
			p.clampSelection()
		}

	case analyticsResultMsg:
		p := m.pageFor(msg.key.Chain)
		if p == nil {
			break
		}
		if p.analytics.Apply(msg.key, msg.data, msg.err, m.deps.Clock.Now()) && msg.err == nil {
			p.recordDistribution(msg.key.Network, msg.data.TotalDistributed)
		}

	case pollMsg:
		if len(m.pages) > 0 {
			cmds = append(cmds, m.refetch(m.page())...)
		}
		cmds = append(cmds, m.pollCmd())

	case clearStatusMsg:
		m.statusMessage = ""

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if len(m.pages) == 0 {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	p := m.page()

	if m.showHelp {
		switch msg.String() {
		case "q", "esc", "?":
			m.showHelp = false
		}
		return m, nil
	}

	if m.editing {
		switch msg.String() {
		case "esc":
			m.editing = false
			p.input.Blur()
			return m, nil
		case "enter":
			return m.submit(p)
		case "tab", "shift+tab":
			return m.switchChain(msg.String() == "tab")
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		p.machine.SetAddress(p.input.Value())
		return m, cmd
	}

	if m.showGraph {
		switch msg.String() {
		case "g", "q", "esc":
			m.showGraph = false
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "i", "/":
		m.editing = true
		return m, p.input.Focus()
	case "enter":
		return m.submit(p)
	case "tab", "n":
		return m.switchChain(true)
	case "shift+tab":
		return m.switchChain(false)
	case "left", "h":
		return m.cycleNetwork(p, -1)
	case "right", "l":
		return m.cycleNetwork(p, 1)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx, _ := strconv.Atoi(msg.String())
		amounts := p.machine.Profile().Amounts
		if idx-1 < len(amounts) {
			_ = p.machine.SelectAmount(amounts[idx-1].Value)
		}
	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
	case "down", "j":
		if p.recent.HasData && p.selected < len(p.recent.Data)-1 {
			p.selected++
		}
	case "c":
		req, ok := p.selectedRequest()
		if !ok {
			break
		}
		if err := m.deps.Clipboard.WriteAll(req.Address); err != nil {
			m.statusMessage = "Failed to copy to clipboard"
		} else {
			m.statusMessage = "Address copied to clipboard!"
		}
		return m, clearStatusCmd()
	case "o":
		req, ok := p.selectedRequest()
		if !ok {
			break
		}
		return m.open(p.explorerURL(req), "Explorer URL not configured for this network")
	case "d":
		return m.open(p.machine.Profile().DocsURL, "Docs URL not configured for this chain")
	case "w":
		addr, err := validator.RandomAddress(p.machine.Profile().Chain)
		if err != nil {
			m.statusMessage = "Failed to connect wallet"
			return m, clearStatusCmd()
		}
		p.input.SetValue(addr)
		p.machine.SetAddress(addr)
		m.statusMessage = "Mock wallet connected"
		return m, clearStatusCmd()
	case "r":
		m.statusMessage = "Refreshing data..."
		cmds := append(m.refetch(p), clearStatusCmd())
		return m, tea.Batch(cmds...)
	case "g":
		m.showGraph = true
	}
	return m, nil
}

func (m model) submit(p *page) (tea.Model, tea.Cmd) {
	p.machine.SetAddress(p.input.Value())
	payload, err := p.machine.Submit()
	if err != nil {
		var verr *faucet.ValidationError
		if !errors.As(err, &verr) && !errors.Is(err, faucet.ErrInFlight) {
			m.deps.Log.Warn("submission failed before sending", zap.Error(err))
		}
		return m, nil
	}
	return m, m.submitCmd(p.machine.Profile().Chain, payload)
}

func (m model) switchChain(forward bool) (tea.Model, tea.Cmd) {
	n := len(m.pages)
	if n < 2 {
		return m, nil
	}
	m.page().input.Blur()
	if forward {
		m.activeIdx = (m.activeIdx + 1) % n
	} else {
		m.activeIdx = (m.activeIdx - 1 + n) % n
	}
	var cmd tea.Cmd
	if m.editing {
		cmd = m.page().input.Focus()
	}
	return m, cmd
}

func (m model) cycleNetwork(p *page, step int) (tea.Model, tea.Cmd) {
	profile := p.machine.Profile()
	if !profile.MultiNetwork() {
		return m, nil
	}
	current := 0
	for i, n := range profile.Networks {
		if n.ID == p.machine.State().Network {
			current = i
			break
		}
	}
	count := len(profile.Networks)
	next := profile.Networks[(current+step+count)%count]
	changed, err := p.machine.SelectNetwork(next.ID)
	if err != nil || !changed {
		return m, nil
	}
	m.syncQueryKeys(p)
	return m, tea.Batch(m.refetch(p)...)
}

func (m model) open(url, missing string) (tea.Model, tea.Cmd) {
	if url == "" {
		m.statusMessage = missing
		return m, clearStatusCmd()
	}
	if err := m.deps.Browser(url); err != nil {
		m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
	} else {
		m.statusMessage = "Opened in browser"
	}
	return m, clearStatusCmd()
}
