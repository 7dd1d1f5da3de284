package flow

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s, err := NewState()
		require.NoError(err)

		b, err := hex.DecodeString(s)
		require.NoError(err)
		assert.Len(b, stateEntropyBytes)

		assert.Falsef(seen[s], "state %q generated twice", s)
		seen[s] = true
	}
}

func TestStateKey(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("cognito.state:sess-1", stateKey("sess-1"))
	assert.NotEqual(stateKey("sess-1"), stateKey("sess-2"))
}
