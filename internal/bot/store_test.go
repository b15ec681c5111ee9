package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctorai/pkg"
)

func TestMemoryStoreDefaults(t *testing.T) {
	s := NewMemoryStore("dermatologist")
	ctx := context.Background()

	agent, err := s.Agent(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "dermatologist", agent)

	history, err := s.History(ctx, 42, historyWindow)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreSetAgentIsPerChat(t *testing.T) {
	s := NewMemoryStore("dermatologist")
	ctx := context.Background()

	require.NoError(t, s.SetAgent(ctx, 1, "therapist"))

	agent, err := s.Agent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "therapist", agent)

	other, err := s.Agent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "dermatologist", other)
}

func TestMemoryStoreRollingHistory(t *testing.T) {
	s := NewMemoryStore("dermatologist")
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, s.Append(ctx, 7,
			pkg.HistoryEntry{Role: "user", Content: fmt.Sprintf("q%d", i)},
			pkg.HistoryEntry{Role: "assistant", Content: fmt.Sprintf("a%d", i)},
		))
	}

	history, err := s.History(ctx, 7, historyWindow)
	require.NoError(t, err)
	require.Len(t, history, historyWindow)
	assert.Equal(t, "q2", history[0].Content)
	assert.Equal(t, "a5", history[len(history)-1].Content)
}

func TestMemoryStoreHistoryLimit(t *testing.T) {
	s := NewMemoryStore("dermatologist")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Append(ctx, 9, pkg.HistoryEntry{Role: "user", Content: fmt.Sprintf("m%d", i)}))
	}
	history, err := s.History(ctx, 9, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m2", history[0].Content)
	assert.Equal(t, "m3", history[1].Content)
}
