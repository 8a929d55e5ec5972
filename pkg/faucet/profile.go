package faucet

import (
	"strconv"

	"faucetui/pkg/config"
	"faucetui/pkg/models"
	"faucetui/pkg/validator"

	"github.com/cockroachdb/errors"
)

// Profile is the chain-specific configuration of a faucet page.
type Profile struct {
	config.ChainConfig
	Validator validator.Validator
}

// NewProfile binds a chain configuration to its address validator.
func NewProfile(cfg config.ChainConfig) (Profile, error) {
	v, err := validator.ForChain(cfg.Chain)
	if err != nil {
		return Profile{}, err
	}
	if len(cfg.Networks) == 0 {
		return Profile{}, errors.Newf("chain %q has no networks", cfg.Chain)
	}
	if _, err := strconv.ParseFloat(cfg.DefaultAmount, 64); err != nil {
		return Profile{}, errors.Wrapf(err, "chain %q: default amount", cfg.Chain)
	}
	return Profile{ChainConfig: cfg, Validator: v}, nil
}

// NewProfiles builds one profile per configured chain, in order.
func NewProfiles(cfgs []config.ChainConfig) ([]Profile, error) {
	profiles := make([]Profile, 0, len(cfgs))
	for _, c := range cfgs {
		p, err := NewProfile(c)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// RequestNetwork is the network sent to the service and used in query keys.
// Single-network chains leave it implicit.
func (p Profile) RequestNetwork(selected models.Network) models.Network {
	if !p.MultiNetwork() {
		return ""
	}
	return selected
}

// NetworkName returns the display name of a network, falling back to its id.
func (p Profile) NetworkName(id models.Network) string {
	if id == "" {
		id = p.DefaultNetwork()
	}
	if n, ok := p.Network(id); ok && n.Name != "" {
		return n.Name
	}
	return string(id)
}

// Amount looks up an amount option by value.
func (p Profile) Amount(value string) (config.AmountOption, bool) {
	for _, a := range p.Amounts {
		if a.Value == value {
			return a, true
		}
	}
	return config.AmountOption{}, false
}
