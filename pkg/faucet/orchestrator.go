package faucet

import (
	"context"

	"faucetui/pkg/models"
	"faucetui/pkg/query"

	"go.uber.org/zap"
)

// Service submits airdrop requests.
type Service interface {
	RequestAirdrop(ctx context.Context, chain models.Chain, payload models.AirdropPayload) (models.Envelope[models.AirdropResult], error)
}

// Refresher reloads the read queries of a page.
type Refresher interface {
	RefetchAll(ctx context.Context, chain models.Chain, network models.Network) (query.Snapshot, error)
}

// Orchestrator drives a Machine synchronously against a Service. The TUI
// drives the machine through its own event loop instead.
type Orchestrator struct {
	machine   *Machine
	service   Service
	refresher Refresher
	log       *zap.Logger
}

// NewOrchestrator wires a machine to its collaborators. refresher may be nil.
func NewOrchestrator(m *Machine, service Service, refresher Refresher, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		machine:   m,
		service:   service,
		refresher: refresher,
		log:       log.Named("faucet").With(zap.String("chain", string(m.Profile().Chain))),
	}
}

// Machine returns the driven state machine.
func (o *Orchestrator) Machine() *Machine { return o.machine }

// Submit runs one request to completion. A non-nil error means the request
// never reached the service (a failed precondition or one already in flight);
// service and transport failures are reported through the returned state.
func (o *Orchestrator) Submit(ctx context.Context) (State, error) {
	payload, err := o.machine.Submit()
	if err != nil {
		o.log.Debug("submission rejected", zap.Error(err))
		return o.machine.State(), err
	}

	var (
		env     models.Envelope[models.AirdropResult]
		callErr error
		settled bool
	)
	defer func() {
		if !settled {
			o.machine.Resolve(models.Envelope[models.AirdropResult]{}, context.Canceled)
		}
	}()

	env, callErr = o.service.RequestAirdrop(ctx, o.machine.Profile().Chain, payload)
	granted := o.machine.Resolve(env, callErr)
	settled = true

	if !granted {
		o.log.Info("airdrop request failed",
			zap.String("address", payload.Address),
			zap.String("message", env.Message),
			zap.Error(callErr))
		return o.machine.State(), nil
	}

	o.log.Info("airdrop request granted",
		zap.String("address", payload.Address),
		zap.Float64("amount", payload.Amount),
		zap.String("network", string(payload.Network)))

	if o.refresher != nil {
		if _, err := o.refresher.RefetchAll(ctx, o.machine.Profile().Chain, payload.Network); err != nil {
			o.log.Warn("refresh after request failed", zap.Error(err))
		}
	}
	return o.machine.State(), nil
}
