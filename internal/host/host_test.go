package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
)

func TestParsePhase(t *testing.T) {
	p, err := host.ParsePhase(" Capture ")
	require.NoError(t, err)
	assert.Equal(t, host.PhaseCapture, p)

	p, err = host.ParsePhase("bubble")
	require.NoError(t, err)
	assert.Equal(t, host.PhaseBubble, p)

	_, err = host.ParsePhase("target")
	assert.Error(t, err)
}

func TestHeadless(t *testing.T) {
	env := host.Headless()

	_, err := env.CurrentURL()
	assert.ErrorIs(t, err, host.ErrEnvironmentUnavailable)
	_, err = env.CurrentTitle()
	assert.ErrorIs(t, err, host.ErrEnvironmentUnavailable)
	_, err = env.AddClickListener(host.ListenerOptions{}, func(host.ClickEvent) error { return nil })
	assert.ErrorIs(t, err, host.ErrEnvironmentUnavailable)
	assert.Nil(t, env.Body())
}
