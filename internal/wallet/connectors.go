// Package wallet describes the browser wallet connectors offered to clients.
package wallet

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/vaultfeed/internal/domain"
)

// Kind names a wallet connector.
type Kind string

const (
	KindInjected      Kind = "injected"
	KindWalletConnect Kind = "walletconnect"
	KindWalletLink    Kind = "walletlink"
)

// Chain ids served in each environment.
const (
	MainnetChainID = 1
	KovanChainID   = 42
)

// Config selects the network and RPC endpoints.
type Config struct {
	Development bool
	TestnetURI  string
	MainnetURI  string
	AppName     string
}

// Connector is the connection handle a client activates.
type Connector struct {
	ID                uuid.UUID      `json:"id"`
	Kind              Kind           `json:"kind"`
	SupportedChainIDs []int          `json:"supported_chain_ids"`
	RPC               map[int]string `json:"rpc,omitempty"`
	URL               string         `json:"url,omitempty"`
	AppName           string         `json:"app_name,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Factory produces a connector handle.
type Factory func() Connector

// Connectors hands out connector handles. The injected and walletlink
// handles are built once; walletconnect handles are built per call.
type Connectors struct {
	injected      Connector
	walletLink    Connector
	walletConnect Factory
}

// New builds the connector set for cfg.
func New(cfg Config) *Connectors {
	chainID, uri := MainnetChainID, cfg.MainnetURI
	if cfg.Development {
		chainID, uri = KovanChainID, cfg.TestnetURI
	}
	now := time.Now()

	return &Connectors{
		injected: Connector{
			ID:                uuid.New(),
			Kind:              KindInjected,
			SupportedChainIDs: []int{chainID},
			CreatedAt:         now,
		},
		walletLink: Connector{
			ID:                uuid.New(),
			Kind:              KindWalletLink,
			SupportedChainIDs: []int{chainID},
			URL:               uri,
			AppName:           cfg.AppName,
			CreatedAt:         now,
		},
		walletConnect: NewWalletConnectFactory(chainID, uri),
	}
}

// NewWalletConnectFactory returns a Factory that builds a new walletconnect
// handle on every call and keeps nothing between calls.
//
// Compatibility shim: the web3-react walletconnect connector hangs forever
// when activated a second time
// (https://github.com/NoahZinsmeister/web3-react/pull/130), so clients must
// discard it and fetch a fresh one before every connection attempt. Once
// the upstream fix lands this can return a shared handle like the others
// without touching callers.
func NewWalletConnectFactory(chainID int, rpcURI string) Factory {
	return func() Connector {
		return Connector{
			ID:                uuid.New(),
			Kind:              KindWalletConnect,
			SupportedChainIDs: []int{chainID},
			RPC:               map[int]string{chainID: rpcURI},
			CreatedAt:         time.Now(),
		}
	}
}

// Get returns the handle for kind. Injected and walletlink handles are
// copies of one shared handle; walletconnect handles are always new.
func (c *Connectors) Get(kind Kind) (Connector, error) {
	switch kind {
	case KindInjected:
		return cloneConnector(c.injected), nil
	case KindWalletLink:
		return cloneConnector(c.walletLink), nil
	case KindWalletConnect:
		return c.walletConnect(), nil
	default:
		return Connector{}, domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("unknown wallet connector %q", kind), nil)
	}
}

// Kinds lists the supported connector kinds.
func Kinds() []Kind {
	return []Kind{KindInjected, KindWalletConnect, KindWalletLink}
}

func cloneConnector(c Connector) Connector {
	c.SupportedChainIDs = slices.Clone(c.SupportedChainIDs)
	return c
}
