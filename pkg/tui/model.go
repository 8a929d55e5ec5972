package tui

import (
	"time"

	"faucetui/pkg/config"
	"faucetui/pkg/cooldown"
	"faucetui/pkg/faucet"
	"faucetui/pkg/models"
	"faucetui/pkg/query"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Version is set by Start()
var Version = "dev"

// historyLimit caps the distribution samples kept per network.
const historyLimit = 240

// --- Messages ---

type clearStatusMsg struct{}

type pollMsg struct{}

// submitResultMsg carries the network the payload was sent to, which may no
// longer be the selected one.
type submitResultMsg struct {
	chain   models.Chain
	network models.Network
	env     models.Envelope[models.AirdropResult]
	err     error
}

type recentResultMsg struct {
	key  query.Key
	data []models.AirdropRequest
	err  error
}

type analyticsResultMsg struct {
	key  query.Key
	data models.Analytics
	err  error
}

// cooldownTickMsg carries the schedule generation that produced it.
type cooldownTickMsg struct {
	chain models.Chain
	gen   uint64
}

// Deps are the collaborators of the UI.
type Deps struct {
	Service   faucet.Service
	Queries   *query.Client
	Clipboard Clipboard
	Browser   func(url string) error
	Clock     clock.Clock
	Log       *zap.Logger
}

// --- Model ---

type page struct {
	machine   *faucet.Machine
	input     textinput.Model
	recent    *query.Query[[]models.AirdropRequest]
	analytics *query.Query[models.Analytics]
	schedule  cooldown.Schedule
	selected  int
	history   map[models.Network][]float64
}

type model struct {
	pages         []*page
	activeIdx     int
	global        config.GlobalConfig
	deps          Deps
	width         int
	height        int
	spinner       spinner.Model
	editing       bool
	showHelp      bool
	showGraph     bool
	statusMessage string
}

func newPage(p faucet.Profile, c clock.Clock) *page {
	ti := textinput.New()
	ti.Width = 66
	ti.CharLimit = 100
	ti.Placeholder = "Enter your " + p.Name + " wallet address"
	if p.Chain == models.ChainSui {
		ti.Placeholder = "0x..."
	}

	m := faucet.NewMachine(p, c)
	network := m.RequestNetwork()
	return &page{
		machine:   m,
		input:     ti,
		recent:    query.New[[]models.AirdropRequest](query.Key{Kind: query.KindRecentRequests, Chain: p.Chain, Network: network}, nil),
		analytics: query.New[models.Analytics](query.Key{Kind: query.KindAnalytics, Chain: p.Chain, Network: network}, nil),
		history:   make(map[models.Network][]float64),
	}
}

func initialModel(cfg config.Config, deps Deps) (model, error) {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = systemClipboard{}
	}
	if deps.Browser == nil {
		deps.Browser = openBrowser
	}

	profiles, err := faucet.NewProfiles(cfg.Chains)
	if err != nil {
		return model{}, err
	}
	pages := make([]*page, 0, len(profiles))
	for _, p := range profiles {
		pages = append(pages, newPage(p, deps.Clock))
	}

	m := model{
		pages:     pages,
		activeIdx: cfg.SelectedIndex(),
		global:    cfg.Global,
		deps:      deps,
		editing:   true,
	}
	if m.activeIdx >= len(pages) {
		m.activeIdx = 0
	}
	if cfg.SelectedNetwork != "" && len(pages) > 0 {
		_, _ = m.page().machine.SelectNetwork(cfg.SelectedNetwork)
		m.syncQueryKeys(m.page())
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	m.spinner = s

	if len(pages) > 0 {
		m.page().input.Focus()
	}
	return m, nil
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, m.spinner.Tick, textinput.Blink)
	for _, p := range m.pages {
		cmds = append(cmds, m.refetch(p)...)
	}
	cmds = append(cmds, m.pollCmd())
	return tea.Batch(cmds...)
}

func (m model) page() *page {
	return m.pages[m.activeIdx]
}

func (m model) pageFor(chain models.Chain) *page {
	for _, p := range m.pages {
		if p.machine.Profile().Chain == chain {
			return p
		}
	}
	return nil
}

func (m model) pollInterval() time.Duration {
	if m.global.PollIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(m.global.PollIntervalSeconds) * time.Second
}

func (m model) timeout() time.Duration {
	return m.global.Timeout()
}
