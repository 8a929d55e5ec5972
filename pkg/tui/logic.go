package tui

import (
	"context"
	"time"

	"faucetui/pkg/models"
	"faucetui/pkg/query"
	"faucetui/pkg/validator"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// syncQueryKeys points both queries of p at its current network, showing
// cached results for the new key when there are any.
func (m model) syncQueryKeys(p *page) {
	chain := p.machine.Profile().Chain
	network := p.machine.RequestNetwork()

	recentKey := query.Key{Kind: query.KindRecentRequests, Chain: chain, Network: network}
	analyticsKey := query.Key{Kind: query.KindAnalytics, Chain: chain, Network: network}

	var cachedRecent []models.AirdropRequest
	var recentOK bool
	var cachedAnalytics models.Analytics
	var analyticsOK bool
	if m.deps.Queries != nil {
		cachedRecent, recentOK = m.deps.Queries.CachedRecentRequests(chain, network)
		cachedAnalytics, analyticsOK = m.deps.Queries.CachedAnalytics(chain, network)
	}
	p.recent.SetKey(recentKey, cachedRecent, recentOK)
	p.analytics.SetKey(analyticsKey, cachedAnalytics, analyticsOK)
	p.selected = 0
}

// refetch starts both queries of p.
func (m model) refetch(p *page) []tea.Cmd {
	if m.deps.Queries == nil {
		return nil
	}
	p.recent.Begin()
	p.analytics.Begin()
	return []tea.Cmd{
		fetchRecentCmd(m.deps.Queries, p.recent.Key, m.timeout()),
		fetchAnalyticsCmd(m.deps.Queries, p.analytics.Key, m.timeout()),
	}
}

func fetchRecentCmd(q *query.Client, key query.Key, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		data, err := q.RecentRequests(ctx, key.Chain, key.Network)
		return recentResultMsg{key: key, data: data, err: err}
	}
}

func fetchAnalyticsCmd(q *query.Client, key query.Key, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		data, err := q.Analytics(ctx, key.Chain, key.Network)
		return analyticsResultMsg{key: key, data: data, err: err}
	}
}

func (m model) submitCmd(chain models.Chain, payload models.AirdropPayload) tea.Cmd {
	service := m.deps.Service
	timeout := m.timeout()
	log := m.deps.Log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		env, err := service.RequestAirdrop(ctx, chain, payload)
		if err != nil {
			log.Warn("airdrop request failed", zap.String("chain", string(chain)), zap.Error(err))
		}
		return submitResultMsg{chain: chain, network: payload.Network, env: env, err: err}
	}
}

func cooldownTick(chain models.Chain, gen uint64) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return cooldownTickMsg{chain: chain, gen: gen}
	})
}

func (m model) pollCmd() tea.Cmd {
	interval := m.pollInterval()
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg { return pollMsg{} })
}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// recordDistribution appends the distributed total to the graph history of
// network, skipping repeats of the last sample.
func (p *page) recordDistribution(network models.Network, total float64) {
	hist := p.history[network]
	if n := len(hist); n > 0 && hist[n-1] == total {
		return
	}
	hist = append(hist, total)
	if len(hist) > historyLimit {
		hist = hist[len(hist)-historyLimit:]
	}
	p.history[network] = hist
}

// selectedRequest returns the highlighted recent request.
func (p *page) selectedRequest() (models.AirdropRequest, bool) {
	if !p.recent.HasData || p.selected < 0 || p.selected >= len(p.recent.Data) {
		return models.AirdropRequest{}, false
	}
	return p.recent.Data[p.selected], true
}

func (p *page) clampSelection() {
	n := 0
	if p.recent.HasData {
		n = len(p.recent.Data)
	}
	if p.selected >= n {
		p.selected = n - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

// explorerURL links the address of req on the network it was made on.
func (p *page) explorerURL(req models.AirdropRequest) string {
	profile := p.machine.Profile()
	network := req.Network
	if _, ok := profile.Network(network); !ok {
		network = p.machine.State().Network
	}
	addr := req.Address
	if profile.Chain == models.ChainSui {
		if h, err := validator.ParseSuiAddress(addr); err == nil {
			addr = h.Hex()
		}
	}
	return profile.ExplorerAddressURL(addr, network)
}
