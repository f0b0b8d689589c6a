package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackName is the registered name of the msgpack codec.
const MsgpackName = "msgpack"

// Msgpack encodes messages as MessagePack maps keyed by the JSON field names.
type Msgpack struct{}

// Name implements Codec.
func (Msgpack) Name() string { return MsgpackName }

// Marshal implements Codec.
func (Msgpack) Marshal(m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("msgpack encode %s: %w", m.Kind, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Codec.
func (Msgpack) Unmarshal(data []byte) (Message, error) {
	var m Message
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}
