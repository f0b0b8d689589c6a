package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	flags, err := domain.ParseFlags([]string{"is_button", " IS_FOCUSABLE "})
	require.NoError(t, err)
	assert.True(t, flags.Has(domain.FlagIsButton))
	assert.True(t, flags.Has(domain.FlagIsFocusable))
	assert.False(t, flags.Has(domain.FlagIsHidden))
	assert.Equal(t, []string{"is_button", "is_focusable"}, flags.Names())

	_, err = domain.ParseFlags([]string{"is_spaceship"})
	assert.ErrorIs(t, err, domain.ErrUnknownFlag)
}

func TestParseActions(t *testing.T) {
	actions, err := domain.ParseActions([]string{"tap", "increase"})
	require.NoError(t, err)
	assert.True(t, actions.Has(domain.ActionTap))
	assert.True(t, actions.Has(domain.ActionIncrease))
	assert.Equal(t, "increase|tap", actions.String())
	assert.Equal(t, "none", domain.SemanticsAction(0).String())

	_, err = domain.ParseActions([]string{"teleport"})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestParseRemoteAction(t *testing.T) {
	action, err := domain.ParseRemoteAction("show_on_screen")
	require.NoError(t, err)
	assert.Equal(t, domain.RemoteActionShowOnScreen, action)
	assert.Equal(t, "show_on_screen", action.String())

	_, err = domain.ParseRemoteAction("explode")
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestSemanticsNode_IsPlatformViewNode(t *testing.T) {
	id := int64(3)
	invalid := int64(-1)
	assert.True(t, domain.SemanticsNode{PlatformViewID: &id}.IsPlatformViewNode())
	assert.False(t, domain.SemanticsNode{PlatformViewID: &invalid}.IsPlatformViewNode())
	assert.False(t, domain.SemanticsNode{}.IsPlatformViewNode())
}

func TestSyncHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.SyncHooks{
		OnCycle: func(context.Context, *domain.CycleEvent) { calls = append(calls, "a") },
	}
	b := domain.SyncHooks{
		OnCycle:       func(context.Context, *domain.CycleEvent) { calls = append(calls, "b") },
		OnNodeDropped: func(context.Context, *domain.NodeEvent) { calls = append(calls, "dropped") },
	}

	merged := a.Merge(b)
	merged.OnCycle(context.Background(), &domain.CycleEvent{})
	merged.OnNodeDropped(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, []string{"a", "b", "dropped"}, calls)
	assert.Nil(t, merged.OnAction)
}
