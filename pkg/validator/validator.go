// Package validator holds the chain specific wallet address checks used on
// every keystroke and before a faucet submission. They only check format; the
// faucet service still validates on its side.
package validator

import (
	"crypto/rand"
	"regexp"

	"faucetui/pkg/models"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

var (
	suiAddressRe    = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// Validator checks wallet address syntax for one chain.
type Validator interface {
	Chain() models.Chain
	Valid(address string) bool
	InvalidMessage() string
}

type SuiValidator struct{}

func (SuiValidator) Chain() models.Chain { return models.ChainSui }

func (SuiValidator) Valid(address string) bool {
	return suiAddressRe.MatchString(address)
}

func (SuiValidator) InvalidMessage() string {
	return "Please enter a valid Sui wallet address (0x followed by 64 hex characters)"
}

type SolanaValidator struct{}

func (SolanaValidator) Chain() models.Chain { return models.ChainSolana }

func (SolanaValidator) Valid(address string) bool {
	return solanaAddressRe.MatchString(address)
}

func (SolanaValidator) InvalidMessage() string {
	return "Please enter a valid Solana wallet address"
}

// ForChain returns the validator for chain.
func ForChain(chain models.Chain) (Validator, error) {
	switch chain {
	case models.ChainSui:
		return SuiValidator{}, nil
	case models.ChainSolana:
		return SolanaValidator{}, nil
	}
	return nil, errors.Newf("no address validator for chain %q", chain)
}

// ParseSuiAddress returns the 32 byte address behind a valid Sui address.
func ParseSuiAddress(address string) (common.Hash, error) {
	if !suiAddressRe.MatchString(address) {
		return common.Hash{}, errors.Newf("invalid sui address %q", address)
	}
	b, err := hexutil.Decode(address)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

// RandomAddress generates a well formed address for chain. It backs the
// "connect wallet" shortcut and holds no key material.
func RandomAddress(chain models.Chain) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	switch chain {
	case models.ChainSui:
		return hexutil.Encode(buf), nil
	case models.ChainSolana:
		return base58.Encode(buf), nil
	}
	return "", errors.Newf("no address format for chain %q", chain)
}
