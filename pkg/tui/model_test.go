package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"faucetui/pkg/config"
	"faucetui/pkg/faucet"
	"faucetui/pkg/models"
	"faucetui/pkg/query"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	suiAddr    = "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	solanaAddr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

type fakeService struct {
	env   models.Envelope[models.AirdropResult]
	err   error
	calls int
	last  models.AirdropPayload
}

func (f *fakeService) RequestAirdrop(ctx context.Context, chain models.Chain, payload models.AirdropPayload) (models.Envelope[models.AirdropResult], error) {
	f.calls++
	f.last = payload
	return f.env, f.err
}

type fakeSource struct {
	recent    map[models.Network][]models.AirdropRequest
	analytics map[models.Network]models.Analytics
}

func (f *fakeSource) RecentRequests(ctx context.Context, chain models.Chain, network models.Network) (models.Envelope[[]models.AirdropRequest], error) {
	return models.Envelope[[]models.AirdropRequest]{Status: models.StatusSuccess, Data: f.recent[network]}, nil
}

func (f *fakeSource) Analytics(ctx context.Context, chain models.Chain, network models.Network) (models.Envelope[models.Analytics], error) {
	return models.Envelope[models.Analytics]{Status: models.StatusSuccess, Data: f.analytics[network]}, nil
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type harness struct {
	svc       *fakeService
	source    *fakeSource
	clipboard *fakeClipboard
	opened    []string
	clock     *clock.Mock
}

func newHarness(t *testing.T) (model, *harness) {
	t.Helper()
	h := &harness{
		svc: &fakeService{env: models.Envelope[models.AirdropResult]{Status: models.StatusSuccess}},
		source: &fakeSource{
			recent: map[models.Network][]models.AirdropRequest{
				"":                    {{ID: 1, Address: suiAddr, Amount: 10, Status: models.StatusSuccess, Chain: models.ChainSui}},
				models.NetworkDevnet:  {{ID: 2, Address: solanaAddr, Amount: 1, Network: models.NetworkDevnet}},
				models.NetworkTestnet: {{ID: 3, Address: solanaAddr, Amount: 5, Network: models.NetworkTestnet}},
			},
			analytics: map[models.Network]models.Analytics{
				"":                    {TotalRequests: 1, TotalDistributed: 10},
				models.NetworkDevnet:  {TotalRequests: 2, TotalDistributed: 1.5},
				models.NetworkTestnet: {TotalRequests: 3, TotalDistributed: 7},
			},
		},
		clipboard: &fakeClipboard{},
		clock:     clock.NewMock(),
	}
	queries, err := query.NewClient(h.source, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = queries.Close() })

	m, err := initialModel(config.Default(), Deps{
		Service:   h.svc,
		Queries:   queries,
		Clipboard: h.clipboard,
		Browser: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
		Clock: h.clock,
	})
	require.NoError(t, err)
	return m, h
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out, cmd
}

// run executes cmd and feeds every resulting message back into the model.
// Timer based commands are not executed.
func run(t *testing.T, m model, cmds ...tea.Cmd) model {
	t.Helper()
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		switch msg := cmd().(type) {
		case tea.BatchMsg:
			m = run(t, m, msg...)
		default:
			m, _ = update(t, m, msg)
		}
	}
	return m
}

func TestInitialModel(t *testing.T) {
	m, _ := newHarness(t)
	require.Len(t, m.pages, 2)
	assert.Equal(t, 0, m.activeIdx)
	assert.True(t, m.editing)
	assert.Equal(t, models.ChainSui, m.page().machine.Profile().Chain)
	assert.Equal(t, models.Network(""), m.page().recent.Key.Network)
	assert.Equal(t, models.NetworkDevnet, m.pages[1].analytics.Key.Network)
}

func TestInitialModel_SelectedChainAndNetwork(t *testing.T) {
	cfg := config.Default()
	cfg.SelectedChain = models.ChainSolana
	cfg.SelectedNetwork = models.NetworkTestnet
	m, err := initialModel(cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.activeIdx)
	assert.Equal(t, models.NetworkTestnet, m.page().machine.State().Network)
	assert.Equal(t, models.NetworkTestnet, m.page().recent.Key.Network)
}

func TestSubmit_Success(t *testing.T) {
	m, h := newHarness(t)
	p := m.page()
	p.input.SetValue(suiAddr)

	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.True(t, p.machine.State().InFlight)

	// A second enter while in flight sends nothing.
	_, again := update(t, m, key("enter"))
	assert.Nil(t, again)

	msg := cmd()
	res, ok := msg.(submitResultMsg)
	require.True(t, ok)
	assert.Equal(t, 1, h.svc.calls)
	assert.Equal(t, models.AirdropPayload{Address: suiAddr, Amount: 10}, h.svc.last)

	m, follow := update(t, m, res)
	st := p.machine.State()
	assert.True(t, st.Success)
	assert.False(t, st.InFlight)
	assert.Equal(t, 1200, st.Cooldown.Remaining())
	assert.Empty(t, p.input.Value())
	assert.True(t, p.schedule.Armed())
	assert.True(t, p.recent.IsLoading)
	assert.True(t, p.analytics.IsLoading)

	batch, ok := follow().(tea.BatchMsg)
	require.True(t, ok)
	assert.Len(t, batch, 3, "one cooldown tick and one refetch per query")

	assert.Contains(t, m.View(), "Wait 20m 0s")
}

func TestSubmit_FailureKeepsAddress(t *testing.T) {
	m, h := newHarness(t)
	h.svc.env = models.Envelope[models.AirdropResult]{}
	h.svc.err = errors.New("dial tcp: connection refused")
	p := m.page()
	p.input.SetValue(suiAddr)

	m, cmd := update(t, m, key("enter"))
	m = run(t, m, cmd)

	st := p.machine.State()
	assert.Equal(t, faucet.MsgRequestFailed, st.Error)
	assert.Equal(t, suiAddr, p.input.Value())
	assert.Equal(t, 0, st.Cooldown.Remaining())
	assert.False(t, p.schedule.Armed())
	assert.Contains(t, m.View(), faucet.MsgRequestFailed)
}

func TestSubmit_ValidationError(t *testing.T) {
	m, h := newHarness(t)
	p := m.page()
	p.input.SetValue("0x123")

	m, cmd := update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, h.svc.calls)
	assert.Contains(t, p.machine.State().Error, "valid Sui wallet address")
	assert.Contains(t, m.View(), "valid Sui wallet address")
}

func TestCooldownTick_DropsStaleGenerations(t *testing.T) {
	m, _ := newHarness(t)
	p := m.page()
	p.input.SetValue(suiAddr)
	m, cmd := update(t, m, key("enter"))
	m, _ = update(t, m, cmd())

	gen := p.schedule.Arm() // a later reset supersedes the first ticker
	chain := p.machine.Profile().Chain

	m, next := update(t, m, cooldownTickMsg{chain: chain, gen: gen - 1})
	assert.Nil(t, next)
	assert.Equal(t, 1200, p.machine.State().Cooldown.Remaining())

	m, next = update(t, m, cooldownTickMsg{chain: chain, gen: gen})
	assert.NotNil(t, next)
	assert.Equal(t, 1199, p.machine.State().Cooldown.Remaining())

	p.schedule.Stop()
	_, next = update(t, m, cooldownTickMsg{chain: chain, gen: gen})
	assert.Nil(t, next)
	assert.Equal(t, 1199, p.machine.State().Cooldown.Remaining())
}

func TestCooldownTick_StopsAtZero(t *testing.T) {
	m, _ := newHarness(t)
	p := m.page()
	chain := p.machine.Profile().Chain

	gen := p.schedule.Arm()
	m, next := update(t, m, cooldownTickMsg{chain: chain, gen: gen})
	assert.Nil(t, next, "an expired timer arms no further tick")
	assert.False(t, p.schedule.Armed())
	assert.Equal(t, 0, p.machine.State().Cooldown.Remaining())
	_ = m
}

func TestNetworkSwitchRefetches(t *testing.T) {
	m, _ := newHarness(t)
	m, _ = update(t, m, key("tab"))
	m, _ = update(t, m, key("esc"))
	require.Equal(t, models.ChainSolana, m.page().machine.Profile().Chain)
	assert.False(t, m.editing)

	p := m.page()
	m = run(t, m, m.refetch(p)...)
	require.True(t, p.recent.HasData)
	assert.Equal(t, int64(2), p.recent.Data[0].ID)

	m, cmd := update(t, m, key("right"))
	assert.Equal(t, models.NetworkTestnet, p.machine.State().Network)
	assert.Equal(t, models.NetworkTestnet, p.recent.Key.Network)
	assert.False(t, p.recent.HasData, "devnet data is not shown for testnet")

	m = run(t, m, cmd)
	require.True(t, p.recent.HasData)
	assert.Equal(t, int64(3), p.recent.Data[0].ID)
	assert.Equal(t, int64(3), p.analytics.Data.TotalRequests)

	// Back to devnet: the cached result shows at once.
	m, _ = update(t, m, key("left"))
	assert.True(t, p.recent.HasData)
	assert.Equal(t, int64(2), p.recent.Data[0].ID)
	assert.Contains(t, m.View(), "Devnet")
}

func TestStaleQueryResultIgnored(t *testing.T) {
	m, _ := newHarness(t)
	p := m.pages[1]
	devnetKey := p.recent.Key

	_, err := p.machine.SelectNetwork(models.NetworkTestnet)
	require.NoError(t, err)
	m.syncQueryKeys(p)

	m, _ = update(t, m, recentResultMsg{key: devnetKey, data: []models.AirdropRequest{{ID: 99}}})
	assert.False(t, p.recent.HasData)
}

func TestAmountSelection(t *testing.T) {
	m, _ := newHarness(t)
	m, _ = update(t, m, key("tab"))
	m, _ = update(t, m, key("esc"))

	m, _ = update(t, m, key("4"))
	assert.Equal(t, "5", m.page().machine.State().Amount)
	m, _ = update(t, m, key("1"))
	assert.Equal(t, "0.5", m.page().machine.State().Amount)
	m, _ = update(t, m, key("9"))
	assert.Equal(t, "0.5", m.page().machine.State().Amount)
}

func TestCopyAndOpenSelectedRequest(t *testing.T) {
	m, h := newHarness(t)
	m, _ = update(t, m, key("tab"))
	m, _ = update(t, m, key("esc"))
	p := m.page()
	m = run(t, m, m.refetch(p)...)

	m, cmd := update(t, m, key("c"))
	assert.NotNil(t, cmd)
	assert.Equal(t, solanaAddr, h.clipboard.text)
	assert.Equal(t, "Address copied to clipboard!", m.statusMessage)

	m, _ = update(t, m, key("o"))
	require.Len(t, h.opened, 1)
	assert.Equal(t, "https://explorer.solana.com/address/"+solanaAddr+"?cluster=devnet", h.opened[0])

	m, _ = update(t, m, key("d"))
	require.Len(t, h.opened, 2)
	assert.Equal(t, "https://docs.solana.com", h.opened[1])

	h.clipboard.err = errors.New("no clipboard")
	m, _ = update(t, m, key("c"))
	assert.Equal(t, "Failed to copy to clipboard", m.statusMessage)

	m, _ = update(t, m, clearStatusMsg{})
	assert.Empty(t, m.statusMessage)
}

func TestMockWallet(t *testing.T) {
	m, _ := newHarness(t)
	m, _ = update(t, m, key("esc"))
	m, _ = update(t, m, key("w"))

	p := m.page()
	assert.True(t, p.machine.Profile().Validator.Valid(p.input.Value()))
	assert.Empty(t, p.machine.AddressMessage())
}

func TestEditingCapturesKeys(t *testing.T) {
	m, _ := newHarness(t)
	m, _ = update(t, m, key("q"))
	assert.Equal(t, "q", m.page().input.Value())
	assert.Contains(t, m.View(), "valid Sui wallet address")
}

func TestHelpAndGraphToggle(t *testing.T) {
	m, _ := newHarness(t)
	m.width, m.height = 100, 40
	m, _ = update(t, m, key("esc"))

	m, _ = update(t, m, key("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Help: Faucet")
	m, _ = update(t, m, key("esc"))
	assert.False(t, m.showHelp)

	m, _ = update(t, m, key("g"))
	assert.True(t, m.showGraph)
	assert.Contains(t, m.View(), "Not enough data")

	p := m.page()
	p.recordDistribution("", 10)
	p.recordDistribution("", 20)
	assert.Contains(t, m.View(), "Total SUI distributed")

	m, _ = update(t, m, key("g"))
	assert.False(t, m.showGraph)
}

func TestRecordDistribution(t *testing.T) {
	p := &page{history: make(map[models.Network][]float64)}
	p.recordDistribution(models.NetworkDevnet, 1)
	p.recordDistribution(models.NetworkDevnet, 1)
	p.recordDistribution(models.NetworkDevnet, 2)
	assert.Equal(t, []float64{1, 2}, p.history[models.NetworkDevnet])

	for i := 0; i < historyLimit+10; i++ {
		p.recordDistribution(models.NetworkTestnet, float64(i))
	}
	assert.Len(t, p.history[models.NetworkTestnet], historyLimit)
	assert.Equal(t, float64(historyLimit+9), p.history[models.NetworkTestnet][historyLimit-1])
}

func TestView_RecentAndStats(t *testing.T) {
	m, _ := newHarness(t)
	m.width, m.height = 160, 50
	m = run(t, m, m.refetch(m.page())...)

	out := m.View()
	assert.Contains(t, out, "Sui Faucet")
	assert.Contains(t, out, "Solana Faucet")
	assert.Contains(t, out, "0xab12cd...56ab12")
	assert.True(t, strings.Contains(out, "Total Requests"))
	assert.Contains(t, out, "Request 10 SUI")
}

func TestExplorerURL_SuiCanonicalAddress(t *testing.T) {
	m, _ := newHarness(t)
	p := m.page()
	require.Equal(t, models.ChainSui, p.machine.Profile().Chain)

	req := models.AirdropRequest{Address: strings.ToUpper(suiAddr[2:]), Network: models.NetworkTestnet}
	req.Address = "0x" + req.Address
	assert.Equal(t, "https://suiscan.xyz/testnet/account/"+suiAddr, p.explorerURL(req))

	req.Address = "0x1234"
	assert.Equal(t, "https://suiscan.xyz/testnet/account/0x1234", p.explorerURL(req))
}

func TestView_PerNetworkColumns(t *testing.T) {
	cfg := config.Default()
	cfg.Chains[1].Networks[0].Name = "Development"
	cfg.SelectedChain = models.ChainSolana

	queries, err := query.NewClient(&fakeSource{}, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = queries.Close() })

	m, err := initialModel(cfg, Deps{Service: &fakeService{}, Queries: queries, Clock: clock.NewMock()})
	require.NoError(t, err)
	p := m.page()
	require.Equal(t, models.ChainSolana, p.machine.Profile().Chain)

	now := time.Now()
	p.analytics.Apply(p.analytics.Key, models.Analytics{
		TotalRequests: 1234,
		Networks: map[models.Network]models.NetworkStats{
			models.NetworkDevnet:  {TotalRequests: 1200, TotalDistributed: 1.5},
			models.NetworkTestnet: {TotalRequests: 34, TotalDistributed: 7},
		},
	}, nil, now)
	p.recent.Apply(p.recent.Key, []models.AirdropRequest{
		{ID: 1, Address: solanaAddr, Amount: 1, Network: models.NetworkDevnet, CreatedAt: now},
	}, nil, now)

	stats := m.viewStats(p)
	assert.Contains(t, stats, "Develo...")
	assert.NotContains(t, stats, "Development")
	assert.Contains(t, stats, "1,200 req")
	assert.Contains(t, stats, "1.50 SOL")
	assert.Contains(t, stats, "7.00 SOL")

	recent := m.viewRecent(p)
	assert.Contains(t, recent, "Develo...")
	assert.NotContains(t, recent, "Development")
}

func TestSubmit_InvalidatesNetworkItWasSentTo(t *testing.T) {
	m, h := newHarness(t)
	m, _ = update(t, m, key("tab"))
	m, _ = update(t, m, key("esc"))
	p := m.page()
	queries := m.deps.Queries

	// Warm both networks.
	m = run(t, m, m.refetch(p)...)
	m, cmd := update(t, m, key("right"))
	m = run(t, m, cmd)
	m, _ = update(t, m, key("left"))
	require.Equal(t, models.NetworkDevnet, p.machine.State().Network)

	p.input.SetValue(solanaAddr)
	m, submit := update(t, m, key("enter"))
	require.NotNil(t, submit)
	res, ok := submit().(submitResultMsg)
	require.True(t, ok)
	assert.Equal(t, models.NetworkDevnet, h.svc.last.Network)
	assert.Equal(t, models.NetworkDevnet, res.network)

	// The user moves to testnet before the result lands.
	m, _ = update(t, m, key("right"))
	require.Equal(t, models.NetworkTestnet, p.machine.State().Network)
	m, _ = update(t, m, res)
	require.True(t, p.machine.State().Success)

	_, devnetCached := queries.CachedRecentRequests(models.ChainSolana, models.NetworkDevnet)
	assert.False(t, devnetCached)
	_, testnetCached := queries.CachedRecentRequests(models.ChainSolana, models.NetworkTestnet)
	assert.True(t, testnetCached)
	assert.Equal(t, models.NetworkDevnet, p.machine.State().Receipt.Network)
}
