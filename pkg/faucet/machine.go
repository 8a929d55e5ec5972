// Package faucet holds the request orchestrator: the per-page state machine
// that validates, submits and settles a token request.
package faucet

import (
	"fmt"
	"strconv"
	"time"

	"faucetui/pkg/cooldown"
	"faucetui/pkg/metrics"
	"faucetui/pkg/models"

	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
)

// Phase is a step of the submission lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	MsgEmptyAddress   = "Please enter a wallet address"
	MsgRequestFailed  = "Failed to request tokens. Please try again."
	cooldownMsgFormat = "Please wait %s before requesting again"
)

// ErrInFlight is returned by Submit while a request is outstanding.
var ErrInFlight = errors.New("a request is already in flight")

// ValidationError is a failed client-side precondition. Its message is shown
// to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Receipt describes the last granted request.
type Receipt struct {
	Address string
	Amount  float64
	Symbol  string
	Network models.Network
	TxHash  string
	At      time.Time
}

// State is a snapshot of a page's form and submission status.
type State struct {
	Phase    Phase
	Outcome  Phase // PhaseSucceeded or PhaseFailed after the first settled request
	Address  string
	Network  models.Network
	Amount   string
	InFlight bool
	Cooldown cooldown.Timer
	Error    string
	Success  bool
	Receipt  *Receipt
}

// Machine is the pure state holder of one faucet page. It performs no I/O and
// is owned by a single goroutine.
type Machine struct {
	profile Profile
	clock   clock.Clock
	state   State

	pending        models.AirdropPayload
	pendingNetwork models.Network
}

// NewMachine creates an idle machine with the profile's default network and
// amount selected.
func NewMachine(p Profile, c clock.Clock) *Machine {
	if c == nil {
		c = clock.New()
	}
	return &Machine{
		profile: p,
		clock:   c,
		state: State{
			Network: p.DefaultNetwork(),
			Amount:  p.DefaultAmount,
		},
	}
}

// Profile returns the page's chain profile.
func (m *Machine) Profile() Profile { return m.profile }

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// SetAddress replaces the wallet address.
func (m *Machine) SetAddress(addr string) {
	m.state.Address = addr
}

// AddressMessage is the inline validation message for the current address.
// An empty address has no message.
func (m *Machine) AddressMessage() string {
	if m.state.Address == "" || m.profile.Validator.Valid(m.state.Address) {
		return ""
	}
	return m.profile.Validator.InvalidMessage()
}

// SelectNetwork switches the target network. It reports whether the
// selection changed.
func (m *Machine) SelectNetwork(id models.Network) (bool, error) {
	if _, ok := m.profile.Network(id); !ok {
		return false, errors.Newf("unknown network %q for %s", id, m.profile.Name)
	}
	if id == m.state.Network {
		return false, nil
	}
	m.state.Network = id
	return true, nil
}

// SelectAmount switches the requested amount to one of the profile options.
func (m *Machine) SelectAmount(value string) error {
	if _, ok := m.profile.Amount(value); !ok {
		return errors.Newf("amount %q is not offered for %s", value, m.profile.Name)
	}
	m.state.Amount = value
	return nil
}

// RequestNetwork is the network the next request and the queries target.
func (m *Machine) RequestNetwork() models.Network {
	return m.profile.RequestNetwork(m.state.Network)
}

// Tick consumes one elapsed cooldown second and reports whether the
// countdown is still running.
func (m *Machine) Tick() bool {
	return m.state.Cooldown.Tick()
}

// Submit checks the preconditions in order and, when they hold, marks the
// request in flight and returns the payload to send. A failed precondition
// sets the error message and leaves the machine idle.
func (m *Machine) Submit() (models.AirdropPayload, error) {
	if m.state.InFlight {
		return models.AirdropPayload{}, ErrInFlight
	}
	m.state.Phase = PhaseValidating
	m.state.Error = ""
	m.state.Success = false

	if msg := m.precondition(); msg != "" {
		m.state.Error = msg
		m.state.Phase = PhaseIdle
		metrics.SubmissionsTotal.WithLabelValues(string(m.profile.Chain), "rejected").Inc()
		return models.AirdropPayload{}, &ValidationError{Message: msg}
	}

	amount, err := strconv.ParseFloat(m.state.Amount, 64)
	if err != nil {
		m.state.Error = MsgRequestFailed
		m.state.Phase = PhaseIdle
		return models.AirdropPayload{}, errors.Wrapf(err, "parse amount %q", m.state.Amount)
	}

	m.state.InFlight = true
	m.state.Phase = PhaseSubmitting
	m.pending = models.AirdropPayload{
		Address: m.state.Address,
		Amount:  amount,
		Network: m.RequestNetwork(),
	}
	m.pendingNetwork = m.state.Network
	return m.pending, nil
}

func (m *Machine) precondition() string {
	switch {
	case m.state.Address == "":
		return MsgEmptyAddress
	case !m.profile.Validator.Valid(m.state.Address):
		return m.profile.Validator.InvalidMessage()
	case m.state.Cooldown.Active():
		return fmtCooldown(m.state.Cooldown.Remaining())
	}
	return ""
}

// Resolve settles the in-flight request with the service outcome. It reports
// whether the request was granted, in which case the caller refreshes both
// queries once.
func (m *Machine) Resolve(env models.Envelope[models.AirdropResult], err error) bool {
	m.state.InFlight = false
	defer func() { m.state.Phase = PhaseIdle }()

	if err == nil && env.OK() {
		m.state.Receipt = &Receipt{
			Address: m.pending.Address,
			Amount:  m.pending.Amount,
			Symbol:  m.profile.Symbol,
			Network: m.pendingNetwork,
			TxHash:  env.Data.TxHash,
			At:      m.clock.Now(),
		}
		m.state.Phase = PhaseSucceeded
		m.state.Outcome = PhaseSucceeded
		m.state.Error = ""
		m.state.Success = true
		m.state.Cooldown.Reset(m.profile.Cooldown())
		m.state.Address = ""
		metrics.SubmissionsTotal.WithLabelValues(string(m.profile.Chain), "succeeded").Inc()
		return true
	}

	m.state.Phase = PhaseFailed
	m.state.Outcome = PhaseFailed
	m.state.Success = false
	m.state.Error = MsgRequestFailed
	if err == nil && env.Message != "" {
		m.state.Error = env.Message
	}
	metrics.SubmissionsTotal.WithLabelValues(string(m.profile.Chain), "failed").Inc()
	return false
}

// ClearBanners drops the success and error banners.
func (m *Machine) ClearBanners() {
	m.state.Error = ""
	m.state.Success = false
}

func fmtCooldown(remaining int) string {
	return fmt.Sprintf(cooldownMsgFormat, cooldown.Format(remaining))
}
