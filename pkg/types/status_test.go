package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValidate(t *testing.T) {
	for _, s := range []Status{StatusDiscovered, StatusHashed, StatusClassified, StatusCompleted, StatusFailed} {
		assert.NoError(t, s.Validate(), s)
	}
	assert.ErrorIs(t, Status("pending").Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, Status("").Validate(), ErrInvalidStatus)
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDiscovered, StatusHashed, true},
		{StatusHashed, StatusClassified, true},
		{StatusClassified, StatusCompleted, true},
		{StatusHashed, StatusFailed, true},
		{StatusFailed, StatusDiscovered, true},
		{StatusCompleted, StatusDiscovered, true},
		{StatusDiscovered, StatusCompleted, false},
		{StatusClassified, StatusHashed, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestLifecycle(t *testing.T) {
	t.Run("full pass", func(t *testing.T) {
		l := NewLifecycle("")
		require.NoError(t, l.Advance(StatusHashed))
		require.NoError(t, l.Advance(StatusClassified))
		require.NoError(t, l.Advance(StatusCompleted))
		assert.Equal(t, StatusCompleted, l.Current())
		assert.Equal(t, []Status{StatusDiscovered, StatusHashed, StatusClassified, StatusCompleted}, l.Visited())
	})

	t.Run("terminal records restart at discovered", func(t *testing.T) {
		assert.Equal(t, StatusDiscovered, NewLifecycle(StatusCompleted).Current())
		assert.Equal(t, StatusDiscovered, NewLifecycle(StatusFailed).Current())
	})

	t.Run("skipping a state is rejected", func(t *testing.T) {
		l := NewLifecycle(StatusDiscovered)
		err := l.Advance(StatusCompleted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StatusDiscovered, l.Current())
	})

	t.Run("fail from any non-terminal state", func(t *testing.T) {
		l := NewLifecycle(StatusDiscovered)
		require.NoError(t, l.Advance(StatusHashed))
		l.Fail()
		assert.Equal(t, StatusFailed, l.Current())
		l.Fail()
		assert.Equal(t, []Status{StatusDiscovered, StatusHashed, StatusFailed}, l.Visited())
	})
}
