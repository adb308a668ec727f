package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModeFlag(t *testing.T) {
	mode, rest, err := ParseMode([]string{"--mode=order-service", "--port=3001"})
	require.NoError(t, err)
	assert.Equal(t, ModeOrder, mode)
	assert.Equal(t, []string{"--port=3001"}, rest)
}

func TestParseModeShorthand(t *testing.T) {
	cases := map[string]string{
		"order":               ModeOrder,
		"events":              ModeEvents,
		"event-store":         ModeEventStore,
		"store":               ModeEventStore,
		"billing":             ModeBilling,
		"notify":              ModeNotify,
		"notification-worker": ModeNotify,
	}
	for arg, want := range cases {
		mode, _, err := ParseMode([]string{arg})
		require.NoError(t, err)
		assert.Equal(t, want, mode, "arg %q", arg)
	}
}

func TestParseModeEmptyWhenUnknown(t *testing.T) {
	mode, rest, err := ParseMode([]string{"make-coffee"})
	require.NoError(t, err)
	assert.Empty(t, mode)
	assert.Equal(t, []string{"make-coffee"}, rest)
}
