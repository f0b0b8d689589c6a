// Package codec serializes outbound messages for transports that cross a
// process boundary.
package codec

import (
	"errors"
	"fmt"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Kind identifies the operation a Message carries.
type Kind string

const (
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindCommit Kind = "commit"
	KindEvent  Kind = "event"
)

// Message is the envelope every transport operation is reduced to.
type Message struct {
	Kind       Kind                  `json:"kind"`
	Nodes      []domain.WireNode     `json:"nodes,omitempty"`
	DeletedIDs []uint32              `json:"deleted_ids,omitempty"`
	Event      *domain.SemanticEvent `json:"event,omitempty"`
}

// UpdateMessage wraps a batch of node updates.
func UpdateMessage(nodes []domain.WireNode) Message {
	return Message{Kind: KindUpdate, Nodes: nodes}
}

// DeleteMessage wraps a chunk of node deletions.
func DeleteMessage(ids []uint32) Message {
	return Message{Kind: KindDelete, DeletedIDs: ids}
}

// CommitMessage is the commit barrier.
func CommitMessage() Message {
	return Message{Kind: KindCommit}
}

// EventMessage wraps a semantic event.
func EventMessage(event domain.SemanticEvent) Message {
	return Message{Kind: KindEvent, Event: &event}
}

// ErrUnknownCodec is returned by ByName for unsupported codec names.
var ErrUnknownCodec = errors.New("unknown codec")

// ErrMalformed is returned when a payload cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Codec converts messages to and from bytes.
type Codec interface {
	Name() string
	Marshal(Message) ([]byte, error)
	Unmarshal([]byte) (Message, error)
}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", MsgpackName:
		return Msgpack{}, nil
	case ProtoName:
		return Proto{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}
