package registry

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/matchingengine/wire"
)

func TestAddEndpointRejectsChainZero(t *testing.T) {
	r := New()
	err := r.AddEndpoint(wire.ChainUnset, wire.Bytes32{1})
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrChainNotAllowed))
}

func TestAddEndpointRejectsZeroRouter(t *testing.T) {
	r := New()
	err := r.AddEndpoint(wire.Chain(2), wire.Bytes32{})
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrInvalidEndpoint))
}

func TestAddEndpointOverwrites(t *testing.T) {
	r := New()
	chain := wire.Chain(2)

	check.Nil(t, r.AddEndpoint(chain, wire.Bytes32{1}))
	router, ok := r.EndpointOf(chain)
	check.True(t, ok)
	check.Equal(t, wire.Bytes32{1}, router)

	check.Nil(t, r.AddEndpoint(chain, wire.Bytes32{2}))
	router, ok = r.EndpointOf(chain)
	check.True(t, ok)
	check.Equal(t, wire.Bytes32{2}, router)
}

func TestEndpointOfMissing(t *testing.T) {
	r := New()
	_, ok := r.EndpointOf(wire.Chain(99))
	check.True(t, !ok)
}

func TestRemoveEndpoint(t *testing.T) {
	r := New()
	chain := wire.Chain(5)
	check.Nil(t, r.AddEndpoint(chain, wire.Bytes32{1}))

	r.RemoveEndpoint(chain)
	_, ok := r.EndpointOf(chain)
	check.True(t, !ok)
}
