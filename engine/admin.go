package engine

import (
	"github.com/cloudx-io/matchingengine/auctionconfig"
	"github.com/cloudx-io/matchingengine/ledger"
	"github.com/cloudx-io/matchingengine/wire"
)

// AddEndpoint registers chain's router address (spec.md §4.2,
// admin-only by convention of the caller).
func (e *Engine) AddEndpoint(chain wire.Chain, router wire.Bytes32) error {
	return e.registry.AddEndpoint(chain, router)
}

// EndpointOf exposes the registry lookup the simulator CLI uses to
// resolve the router that redeems a fast fill.
func (e *Engine) EndpointOf(chain wire.Chain) (wire.Bytes32, bool) {
	return e.registry.EndpointOf(chain)
}

// SetConfig replaces the auction config immediately (spec.md §4.3's
// direct path, e.g. bootstrapping a fresh engine with no prior config).
func (e *Engine) SetConfig(cfg auctionconfig.Config) error {
	return e.config.SetConfig(cfg)
}

// GetConfig returns the current auction config.
func (e *Engine) GetConfig() (auctionconfig.Config, error) {
	return e.config.GetConfig()
}

// ProposeConfig and EnactConfig implement the propose/enact admin flow
// supplemental to spec.md §4.3 (SPEC_FULL.md §3).
func (e *Engine) ProposeConfig(cfg auctionconfig.Config, currentBlock uint64, by string) (auctionconfig.Proposal, error) {
	return e.config.ProposeConfig(cfg, currentBlock, by)
}

func (e *Engine) EnactConfig(proposalID uint64, currentBlock uint64) error {
	return e.config.EnactConfig(proposalID, currentBlock)
}

// UpdateFeeRecipient sets the account ExecuteSlowAndReconcile pays
// base_fee to on the "slow beat fast" path (spec.md §6 entry points).
func (e *Engine) UpdateFeeRecipient(recipient ledger.Account) {
	e.feeRecipient = recipient
}

// FeeRecipient returns the currently configured fee recipient.
func (e *Engine) FeeRecipient() ledger.Account {
	return e.feeRecipient
}
