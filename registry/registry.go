// Package registry implements the endpoint registry: the authoritative
// chain_id → router_address map used to authenticate inbound emitters and
// address outbound transfers.
package registry

import (
	"errors"
	"sync"

	"github.com/cloudx-io/matchingengine/wire"
)

// ErrChainNotAllowed is returned when chain 0 is used as a key.
var ErrChainNotAllowed = errors.New("registry: chain 0 is not a valid endpoint key")

// ErrInvalidEndpoint is returned when a zero router address is registered.
var ErrInvalidEndpoint = errors.New("registry: router address must be non-zero")

// Registry is a mutex-guarded chain_id → router_address map. It follows
// the teacher's manager-struct idiom (enclave.KeyManager, enclave.TokenManager):
// a small guarded map with narrow accessors, safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[wire.Chain]wire.Bytes32
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{endpoints: make(map[wire.Chain]wire.Bytes32)}
}

// AddEndpoint registers (or overwrites) the router address for chain.
// Admin-only by convention of the caller; the registry itself enforces no
// authorization, only the two structural invariants from spec.md §4.2.
func (r *Registry) AddEndpoint(chain wire.Chain, router wire.Bytes32) error {
	if chain == wire.ChainUnset {
		return ErrChainNotAllowed
	}
	if router.IsZero() {
		return ErrInvalidEndpoint
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[chain] = router
	return nil
}

// RemoveEndpoint retires a chain's router address. Supplemental: lets an
// integrator walk back a bad AddEndpoint without restarting the process.
func (r *Registry) RemoveEndpoint(chain wire.Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, chain)
}

// EndpointOf returns the router address for chain and whether it is set.
func (r *Registry) EndpointOf(chain wire.Chain) (wire.Bytes32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	router, ok := r.endpoints[chain]
	return router, ok
}
