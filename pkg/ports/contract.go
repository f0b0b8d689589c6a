package ports

import (
	"context"
	"testing"

	"github.com/aretw0/a11ybridge/pkg/codec"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTransportContract runs a suite of tests to verify that a Transport
// implementation adheres to the defined interface contract.
// read must return every message the transport has delivered so far, in
// delivery order.
func RunTransportContract(t *testing.T, transport Transport, read func(t *testing.T) []codec.Message) {
	ctx := context.Background()

	node := domain.WireNode{
		NodeID:     1,
		Role:       domain.RoleButton,
		States:     domain.States{CheckedState: domain.CheckedStateNone, Value: "v"},
		Attributes: domain.Attributes{Label: "OK"},
		Actions:    []domain.RemoteAction{domain.RemoteActionDefault},
		ChildIDs:   []uint32{2},
		Transform:  domain.Identity(),
	}

	t.Run("Cycle order is preserved", func(t *testing.T) {
		before := len(read(t))

		require.NoError(t, transport.UpdateSemanticNodes(ctx, []domain.WireNode{node}))
		require.NoError(t, transport.DeleteSemanticNodes(ctx, []uint32{5, 6}))

		done := make(chan struct{})
		require.NoError(t, transport.CommitUpdates(ctx, func() { close(done) }))
		<-done

		msgs := read(t)[before:]
		require.Len(t, msgs, 3)
		assert.Equal(t, codec.KindUpdate, msgs[0].Kind)
		require.Len(t, msgs[0].Nodes, 1)
		assert.Equal(t, node.NodeID, msgs[0].Nodes[0].NodeID)
		assert.Equal(t, "OK", msgs[0].Nodes[0].Attributes.Label)
		assert.Equal(t, []uint32{2}, msgs[0].Nodes[0].ChildIDs)

		assert.Equal(t, codec.KindDelete, msgs[1].Kind)
		assert.Equal(t, []uint32{5, 6}, msgs[1].DeletedIDs)

		assert.Equal(t, codec.KindCommit, msgs[2].Kind)
	})

	t.Run("Commit without callback", func(t *testing.T) {
		before := len(read(t))
		require.NoError(t, transport.CommitUpdates(ctx, nil))
		msgs := read(t)[before:]
		require.Len(t, msgs, 1)
		assert.Equal(t, codec.KindCommit, msgs[0].Kind)
	})

	t.Run("Semantic event", func(t *testing.T) {
		before := len(read(t))
		event := domain.SemanticEvent{Announce: &domain.AnnounceEvent{Message: "hello"}}
		require.NoError(t, transport.SendSemanticEvent(ctx, event))

		msgs := read(t)[before:]
		require.Len(t, msgs, 1)
		assert.Equal(t, codec.KindEvent, msgs[0].Kind)
		require.NotNil(t, msgs[0].Event)
		require.NotNil(t, msgs[0].Event.Announce)
		assert.Equal(t, "hello", msgs[0].Event.Announce.Message)
	})
}
