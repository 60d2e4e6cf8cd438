package llmclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deriveengine/internal/config"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(config.LLMConfig{Model: "gemini-2.5-flash"})
	require.Error(t, err)
}

func TestThrottle_EnforcesMinimumSpacing(t *testing.T) {
	c := &Client{}

	start := time.Now()
	c.throttle()
	c.throttle()
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, minRequestInterval)
}
