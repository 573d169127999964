package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SessionLifecycle(t *testing.T) {
	m := NewManager()

	token := m.Start("13800000000")
	require.NotEmpty(t, token)

	identity, ok := m.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "13800000000", identity)

	m.End(token)
	_, ok = m.Resolve(token)
	assert.False(t, ok, "ended session must not resolve")
}

func TestManager_TokensAreDistinct(t *testing.T) {
	m := NewManager()
	a := m.Start("13800000000")
	b := m.Start("13800000000")
	assert.NotEqual(t, a, b, "each login mints a fresh token")
}

func TestManager_SingleFlight(t *testing.T) {
	m := NewManager()

	require.True(t, m.BeginFlight("13800000000"))
	assert.False(t, m.BeginFlight("13800000000"), "second submit while in flight is rejected")

	// Other identities are independent.
	assert.True(t, m.BeginFlight("13900000000"))

	m.EndFlight("13800000000")
	assert.True(t, m.BeginFlight("13800000000"), "slot reopens once the call settles")
}
