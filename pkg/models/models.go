package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Chain identifies a faucet.
type Chain string

const (
	ChainSui    Chain = "sui"
	ChainSolana Chain = "solana"
)

// Network is a deployment within a chain.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// RequestStatus is the service-side status tag.
type RequestStatus string

const (
	StatusSuccess RequestStatus = "success"
	StatusError   RequestStatus = "error"
	StatusPending RequestStatus = "pending"
)

// AirdropRequest is a single faucet request as reported by the service.
type AirdropRequest struct {
	ID        int64         `json:"id"`
	Address   string        `json:"address"`
	Amount    float64       `json:"amount"`
	Status    RequestStatus `json:"status"`
	Network   Network       `json:"network"`
	Chain     Chain         `json:"chain"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// AirdropPayload is the body of an airdrop submission.
type AirdropPayload struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
	Network Network `json:"network,omitempty"`
}

// Envelope is the response wrapper used by every faucet endpoint.
type Envelope[T any] struct {
	Status  RequestStatus `json:"status"`
	Message string        `json:"message,omitempty"`
	Data    T             `json:"data"`
}

// OK reports whether the service considered the call successful.
func (e Envelope[T]) OK() bool {
	return e.Status != StatusError
}

// AirdropResult is the optional data payload of a submission.
type AirdropResult struct {
	TxHash string `json:"txHash,omitempty"`
}

// NetworkStats holds per-network aggregates.
type NetworkStats struct {
	TotalRequests    int64   `json:"totalRequests"`
	TotalDistributed float64 `json:"totalDistributed"`
}

// Analytics is the aggregate distribution snapshot for a chain.
type Analytics struct {
	TotalRequests    int64                    `json:"totalRequests"`
	TotalDistributed float64                  `json:"totalDistributed"`
	ActiveUsers      int64                    `json:"activeUsers"`
	Networks         map[Network]NetworkStats `json:"networks,omitempty"`
}

// UnmarshalJSON accepts both the generic field names and the chain specific
// aliases (totalSuiDistributed, totalSolDistributed). Any object valued key
// that parses as network stats is treated as a per-network breakdown.
func (a *Analytics) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = Analytics{}
	for key, val := range raw {
		switch {
		case key == "totalRequests":
			if err := json.Unmarshal(val, &a.TotalRequests); err != nil {
				return err
			}
		case key == "activeUsers":
			if err := json.Unmarshal(val, &a.ActiveUsers); err != nil {
				return err
			}
		case isDistributedKey(key):
			if err := json.Unmarshal(val, &a.TotalDistributed); err != nil {
				return err
			}
		case key == "networks":
			var nets map[string]json.RawMessage
			if err := json.Unmarshal(val, &nets); err != nil {
				return err
			}
			for name, nv := range nets {
				if s, ok := parseNetworkStats(nv); ok {
					a.setNetwork(Network(name), s)
				}
			}
		default:
			if s, ok := parseNetworkStats(val); ok {
				a.setNetwork(Network(key), s)
			}
		}
	}
	return nil
}

func (a *Analytics) setNetwork(n Network, s NetworkStats) {
	if a.Networks == nil {
		a.Networks = make(map[Network]NetworkStats)
	}
	a.Networks[n] = s
}

func isDistributedKey(key string) bool {
	return strings.HasPrefix(key, "total") && strings.HasSuffix(key, "Distributed")
}

func parseNetworkStats(b json.RawMessage) (NetworkStats, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return NetworkStats{}, false
	}
	var s NetworkStats
	found := false
	for key, val := range raw {
		switch {
		case key == "totalRequests":
			if json.Unmarshal(val, &s.TotalRequests) == nil {
				found = true
			}
		case isDistributedKey(key):
			if json.Unmarshal(val, &s.TotalDistributed) == nil {
				found = true
			}
		}
	}
	return s, found
}

// EndpointResult holds the self-test result for one chain/network pair.
type EndpointResult struct {
	Chain     Chain   `json:"chain"`
	Network   Network `json:"network"`
	Status    string  `json:"status"` // "ok" or "error"
	LatencyMs int64   `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string           `json:"config_path"`
	APIURL          string           `json:"api_url"`
	ValidStructure  bool             `json:"valid_structure"`
	StructureErrors []string         `json:"structure_errors,omitempty"`
	ChainCount      int              `json:"chain_count"`
	Endpoints       []EndpointResult `json:"endpoints,omitempty"`
	Reachable       bool             `json:"reachable"`
}
