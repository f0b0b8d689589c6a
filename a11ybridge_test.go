package a11ybridge_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/pkg/adapters/memory"
	"github.com/aretw0/a11ybridge/pkg/codec"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() domain.SemanticsNodeUpdates {
	return domain.SemanticsNodeUpdates{
		0: {
			ID:                       0,
			Rect:                     domain.LTRB(0, 0, 200, 200),
			Transform:                domain.Identity(),
			ChildrenInHitTestOrder:   []int32{1},
			ChildrenInTraversalOrder: []int32{1},
		},
		1: {
			ID:        1,
			Label:     "Submit",
			Flags:     domain.FlagIsButton,
			Actions:   domain.ActionTap,
			Rect:      domain.LTRB(10, 10, 60, 30),
			Transform: domain.Identity(),
		},
	}
}

func TestBridge_UpdateAndQuery(t *testing.T) {
	ctx := context.Background()
	tr := memory.New()

	var taps []int32
	b := a11ybridge.New(tr,
		a11ybridge.WithName("main-window"),
		a11ybridge.WithDelegate(ports.DelegateFuncs{
			Dispatch: func(id int32, a domain.SemanticsAction) {
				if a == domain.ActionTap {
					taps = append(taps, id)
				}
			},
		}),
	)

	report, err := b.Update(ctx, sampleTree(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{0, 1}, report.Sent)

	tree := tr.Tree()
	require.Contains(t, tree, uint32(1))
	assert.Equal(t, domain.RoleButton, tree[1].Role)
	assert.Equal(t, "Submit", tree[1].Attributes.Label)
	assert.Equal(t, []domain.RemoteAction{domain.RemoteActionDefault}, tree[1].Actions)

	hit := b.HitTest(20, 20)
	assert.Equal(t, uint32(1), hit)
	assert.True(t, b.DispatchRemoteAction(ctx, hit, domain.RemoteActionDefault))
	assert.Equal(t, []int32{1}, taps)

	assert.Len(t, b.Snapshot(), 2)
	n, ok := b.Node(1)
	require.True(t, ok)
	assert.Equal(t, domain.LTRB(10, 10, 60, 30), n.ScreenRect)
	assert.Equal(t, float32(1), b.PixelRatio())
}

func TestBridge_SemanticsModeChanged(t *testing.T) {
	ctx := context.Background()

	var toggles []bool
	var b *a11ybridge.Bridge
	b = a11ybridge.New(memory.New(), a11ybridge.WithDelegate(ports.DelegateFuncs{
		SetEnabled: func(enabled bool) {
			toggles = append(toggles, enabled)
			// Forwarding happens outside the lock, so reading back is safe.
			assert.Equal(t, enabled, b.SemanticsEnabled())
		},
	}))

	b.OnSemanticsModeChanged(true)
	_, err := b.Update(ctx, sampleTree(), 1)
	require.NoError(t, err)
	assert.Len(t, b.Snapshot(), 2)

	b.OnSemanticsModeChanged(false)
	assert.Empty(t, b.Snapshot())
	assert.Equal(t, []bool{true, false}, toggles)

	b.SetSemanticsEnabled(true)
	assert.True(t, b.SemanticsEnabled())
}

func TestBridge_Hooks(t *testing.T) {
	ctx := context.Background()
	var first, second int
	b := a11ybridge.New(memory.New(),
		a11ybridge.WithHooks(domain.SyncHooks{OnCycle: func(context.Context, *domain.CycleEvent) { first++ }}),
		a11ybridge.WithHooks(domain.SyncHooks{OnCycle: func(context.Context, *domain.CycleEvent) { second++ }}),
	)

	_, err := b.Update(ctx, sampleTree(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestBridge_Limits(t *testing.T) {
	ctx := context.Background()
	tr := memory.New()
	b := a11ybridge.New(tr, a11ybridge.WithStringLimits(3, 2), a11ybridge.WithMaxMessageSize(4096))

	updates := sampleTree()
	n := updates[1]
	n.Value = "abcdef"
	updates[1] = n

	_, err := b.Update(ctx, updates, 1)
	require.NoError(t, err)
	wire := tr.Tree()[1]
	assert.Equal(t, "Sub", wire.Attributes.Label)
	assert.Equal(t, "ab", wire.States.Value)
}

func TestBridge_Announce(t *testing.T) {
	tr := memory.New()
	b := a11ybridge.New(tr)
	require.NoError(t, b.Announce(context.Background(), "Done"))
	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, codec.KindEvent, msgs[0].Kind)
}

func TestBridge_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	b := a11ybridge.New(memory.New())
	_, err := b.Update(ctx, sampleTree(), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				switch (i + j) % 4 {
				case 0:
					_, _ = b.Update(ctx, sampleTree(), float32(1+j%3))
				case 1:
					b.HitTest(20, 20)
				case 2:
					b.DispatchRemoteAction(ctx, 1, domain.RemoteActionDefault)
				case 3:
					b.Snapshot()
				}
			}
		}()
	}
	wg.Wait()
	assert.Len(t, b.Snapshot(), 2)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, a11ybridge.Version)
}
