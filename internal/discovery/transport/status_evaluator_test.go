package transport_test

import (
	"testing"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/transport"
	"github.com/stretchr/testify/assert"
)

func TestLegacyStatusEvaluator(t *testing.T) {
	e := transport.LegacyStatusEvaluator{}

	assert.True(t, e.Accept(200, transport.ReadRequest))
	assert.True(t, e.Accept(204, transport.WriteRequest))
	assert.False(t, e.Accept(404, transport.ReadRequest))
	assert.True(t, e.Accept(404, transport.WriteRequest))
	assert.False(t, e.Accept(500, transport.ReadRequest))
	assert.False(t, e.Accept(500, transport.WriteRequest))
	assert.False(t, e.Accept(302, transport.ReadRequest))
}
