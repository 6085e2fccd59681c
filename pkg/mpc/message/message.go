// Package message defines the tagged-union wire messages parties
// exchange: a wire id plus a single Shamir share, classified by tag.
package message

import (
	"encoding/binary"
	"fmt"

	"github.com/pangea-net/bgw-node/pkg/mpc/circuit"
	"github.com/pangea-net/bgw-node/pkg/mpc/field"
	"github.com/pangea-net/bgw-node/pkg/mpc/sharing"
)

// Tag classifies a Message by the protocol phase/step that produced it.
type Tag uint8

const (
	InputShare Tag = iota
	MulShare
	Reshare
	OutputShare
)

func (t Tag) String() string {
	switch t {
	case InputShare:
		return "InputShare"
	case MulShare:
		return "MulShare"
	case Reshare:
		return "Reshare"
	case OutputShare:
		return "OutputShare"
	default:
		return fmt.Sprintf("Tag(%d)", t)
	}
}

// Message is the only inter-party data: a (wire, kind) tagged share.
// Receivers classify before consuming, so any interleaving of tags and
// wires across the three protocol phases is tolerated.
type Message struct {
	Tag   Tag
	Wire  circuit.WireID
	Share sharing.Share
}

// scalarSize is the canonical little-endian width of a field element,
// matching the wire format's fixed 32-byte encoding.
const scalarSize = 32

// MarshalBinary encodes m as tag(1) || wire_id(8, LE) || x(32, LE) || y(32, LE).
func (m Message) MarshalBinary() ([]byte, error) {
	xb, err := field.MarshalCanonical(m.Share.X)
	if err != nil {
		return nil, fmt.Errorf("message: marshal x: %w", err)
	}
	yb, err := field.MarshalCanonical(m.Share.Y)
	if err != nil {
		return nil, fmt.Errorf("message: marshal y: %w", err)
	}
	if len(xb) > scalarSize || len(yb) > scalarSize {
		return nil, fmt.Errorf("message: scalar encoding exceeds %d bytes", scalarSize)
	}

	buf := make([]byte, 1+8+scalarSize+scalarSize)
	buf[0] = byte(m.Tag)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(m.Wire))
	copy(buf[9:9+scalarSize], xb)
	copy(buf[9+scalarSize:9+2*scalarSize], yb)
	return buf, nil
}

// UnmarshalBinary decodes a Message previously produced by MarshalBinary.
func (m *Message) UnmarshalBinary(data []byte) error {
	const want = 1 + 8 + scalarSize + scalarSize
	if len(data) != want {
		return fmt.Errorf("message: expected %d bytes, got %d", want, len(data))
	}

	tag := Tag(data[0])
	wire := circuit.WireID(binary.LittleEndian.Uint64(data[1:9]))
	x, err := field.UnmarshalCanonical(data[9 : 9+scalarSize])
	if err != nil {
		return fmt.Errorf("message: unmarshal x: %w", err)
	}
	y, err := field.UnmarshalCanonical(data[9+scalarSize : 9+2*scalarSize])
	if err != nil {
		return fmt.Errorf("message: unmarshal y: %w", err)
	}

	m.Tag = tag
	m.Wire = wire
	m.Share = sharing.Share{X: x, Y: y}
	return nil
}
