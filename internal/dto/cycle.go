package dto

import (
	"errors"
	"fmt"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Cycle is one batch of node updates observed at a pixel ratio.
type Cycle struct {
	PixelRatio float32 `json:"pixel_ratio" yaml:"pixel_ratio" mapstructure:"pixel_ratio"`
	Nodes      []Node  `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// ErrDuplicateNode is returned when a cycle lists the same ID twice.
var ErrDuplicateNode = errors.New("duplicate node id in cycle")

// Updates converts the cycle into a batch keyed by node ID. A zero pixel ratio
// is reported as 1.
func (c Cycle) Updates() (domain.SemanticsNodeUpdates, float32, error) {
	updates := make(domain.SemanticsNodeUpdates, len(c.Nodes))
	for _, n := range c.Nodes {
		if _, dup := updates[n.ID]; dup {
			return nil, 0, fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
		}
		node, err := n.ToDomain()
		if err != nil {
			return nil, 0, err
		}
		updates[n.ID] = node
	}
	ratio := c.PixelRatio
	if ratio == 0 {
		ratio = 1
	}
	return updates, ratio, nil
}
