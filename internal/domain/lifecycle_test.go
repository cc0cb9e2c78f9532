package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextState_AllowedTransitions(t *testing.T) {
	tests := []struct {
		from    PlaybackState
		trigger Trigger
		want    PlaybackState
	}{
		{StateIdle, TriggerLoad, StateReady},
		{StateReady, TriggerPlay, StatePlaying},
		{StatePlaying, TriggerPause, StatePaused},
		{StatePaused, TriggerPlay, StatePlaying},
		{StatePlaying, TriggerEnded, StateEnded},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_"+tt.trigger.String(), func(t *testing.T) {
			got, err := NextState(tt.from, tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextState_ErrorFromAnyState(t *testing.T) {
	for _, s := range []PlaybackState{StateIdle, StateReady, StatePlaying, StatePaused, StateEnded, StateErrored} {
		got, err := NextState(s, TriggerError)
		require.NoError(t, err)
		assert.Equal(t, StateErrored, got, "from %s", s)
	}
}

func TestNextState_TerminalStatesRejectEverythingButError(t *testing.T) {
	for _, s := range []PlaybackState{StateEnded, StateErrored} {
		for _, tr := range []Trigger{TriggerLoad, TriggerPlay, TriggerPause, TriggerEnded} {
			got, err := NextState(s, tr)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, s, got, "state must be unchanged")
		}
	}
}

func TestNextState_InvalidPairs(t *testing.T) {
	invalid := []struct {
		from    PlaybackState
		trigger Trigger
	}{
		{StateIdle, TriggerPlay},
		{StateIdle, TriggerPause},
		{StateReady, TriggerPause},
		{StateReady, TriggerLoad},
		{StatePaused, TriggerEnded},
		{StatePlaying, TriggerPlay},
	}

	for _, tt := range invalid {
		_, err := NextState(tt.from, tt.trigger)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tt.trigger, tt.from)
	}
}

func TestPlaybackState_Predicates(t *testing.T) {
	assert.True(t, StatePlaying.Sampling())
	assert.False(t, StatePaused.Sampling())
	assert.True(t, StateEnded.IsTerminal())
	assert.True(t, StateErrored.IsTerminal())
	assert.False(t, StateReady.IsTerminal())
	assert.True(t, StateReady.CanPlay())
	assert.True(t, StatePaused.CanPlay())
	assert.False(t, StateEnded.CanPlay())
}

func TestElementEvent_Trigger(t *testing.T) {
	assert.Equal(t, TriggerPlay, ElementPlay.Trigger())
	assert.Equal(t, TriggerPause, ElementPause.Trigger())
	assert.Equal(t, TriggerEnded, ElementEnded.Trigger())
	assert.Equal(t, TriggerError, ElementError.Trigger())
	assert.Equal(t, "ended", ElementEnded.String())
}
