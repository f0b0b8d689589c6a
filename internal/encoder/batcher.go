// Package encoder partitions outbound wire data into messages that stay below
// the transport's maximum message size.
package encoder

import (
	"fmt"

	"github.com/aretw0/a11ybridge/internal/classifier"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

// DeletionOverhead is the fixed cost of a deletion message before its IDs.
const DeletionOverhead = 24

// Batch is one outbound update message.
type Batch struct {
	Nodes []domain.WireNode
	// Size is the running size estimate of Nodes.
	Size int
}

// IDs returns the node IDs in the batch, in order.
func (b Batch) IDs() []uint32 {
	ids := make([]uint32, len(b.Nodes))
	for i, n := range b.Nodes {
		ids[i] = n.NodeID
	}
	return ids
}

// Batcher accumulates wire nodes into batches whose estimated size never
// reaches the maximum.
type Batcher struct {
	max     int
	closed  []Batch
	current Batch
}

// NewBatcher creates a Batcher for the given maximum message size.
func NewBatcher(maxMessageSize int) *Batcher {
	if maxMessageSize <= 0 {
		maxMessageSize = classifier.DefaultMaxMessageSize
	}
	return &Batcher{max: maxMessageSize}
}

// Add appends node, whose estimated size is size, to the open batch. If that
// would make the batch reach the maximum, the open batch is closed first and
// node starts a new one. A node that alone reaches the maximum is rejected
// with ErrNodeTooLarge and nothing of it is kept.
func (b *Batcher) Add(node domain.WireNode, size int) error {
	if size >= b.max {
		return fmt.Errorf("%w: node %d needs %d bytes, limit %d",
			domain.ErrNodeTooLarge, node.NodeID, size, b.max)
	}
	if b.current.Size+size >= b.max {
		b.closeCurrent()
	}
	b.current.Nodes = append(b.current.Nodes, node)
	b.current.Size += size
	return nil
}

// Pending returns the size of the open batch.
func (b *Batcher) Pending() int { return b.current.Size }

// Finish closes the open batch and returns every non-empty batch in order.
// The Batcher is reset.
func (b *Batcher) Finish() []Batch {
	b.closeCurrent()
	out := b.closed
	b.closed = nil
	return out
}

func (b *Batcher) closeCurrent() {
	if len(b.current.Nodes) > 0 {
		b.closed = append(b.closed, b.current)
	}
	b.current = Batch{}
}

// DeletionChunker splits removed IDs into deletion messages whose estimated
// size, DeletionOverhead plus NodeIDSize per ID, stays below the maximum.
type DeletionChunker struct {
	max     int
	chunks  [][]uint32
	current []uint32
}

// NewDeletionChunker creates a DeletionChunker for the given maximum message size.
func NewDeletionChunker(maxMessageSize int) *DeletionChunker {
	if maxMessageSize <= 0 {
		maxMessageSize = classifier.DefaultMaxMessageSize
	}
	return &DeletionChunker{max: maxMessageSize}
}

// PerChunk is the largest number of IDs a chunk can hold.
func (d *DeletionChunker) PerChunk() int {
	n := (d.max - DeletionOverhead - 1) / classifier.NodeIDSize
	return max(n, 1)
}

// Add appends id, closing the current chunk first if it is full.
func (d *DeletionChunker) Add(id uint32) {
	if len(d.current) >= d.PerChunk() {
		d.chunks = append(d.chunks, d.current)
		d.current = nil
	}
	d.current = append(d.current, id)
}

// Finish returns every non-empty chunk in order and resets the chunker.
func (d *DeletionChunker) Finish() [][]uint32 {
	if len(d.current) > 0 {
		d.chunks = append(d.chunks, d.current)
	}
	out := d.chunks
	d.chunks, d.current = nil, nil
	return out
}
