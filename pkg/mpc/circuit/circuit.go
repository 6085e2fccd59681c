// Package circuit represents the arithmetic circuit every party
// evaluates identically: a DAG of gates, immutable once built, whose
// insertion order already satisfies the predecessor-first invariant.
package circuit

import (
	"errors"
	"fmt"

	"github.com/pangea-net/bgw-node/pkg/mpc/field"
)

// ErrInvalidCircuit is returned when a gate's wiring violates a circuit
// invariant: a missing predecessor, a predecessor with a larger id, or
// an operand arity that doesn't match the gate's type.
var ErrInvalidCircuit = errors.New("circuit: invalid gate wiring")

// WireID identifies a gate by its position in insertion order.
type WireID int

// Kind tags the variants of GateType.
type Kind int

const (
	KindInput Kind = iota
	KindAdd
	KindMul
	KindConstMul
	KindOutput
)

// GateType carries the payload a gate's Kind requires: Owner for
// Input, C for ConstMul; Add/Mul/Output carry no extra payload beyond
// the Gate's Left/Right wire references.
type GateType struct {
	Kind  Kind
	Owner int          // valid iff Kind == KindInput
	C     field.Scalar // valid iff Kind == KindConstMul
}

// Input returns a GateType for a wire owned by party owner.
func Input(owner int) GateType { return GateType{Kind: KindInput, Owner: owner} }

// Add returns a GateType for an addition gate.
func Add() GateType { return GateType{Kind: KindAdd} }

// Mul returns a GateType for a multiplication gate.
func Mul() GateType { return GateType{Kind: KindMul} }

// ConstMul returns a GateType multiplying its single operand by c.
func ConstMul(c field.Scalar) GateType { return GateType{Kind: KindConstMul, C: c} }

// Output returns a GateType that exposes its operand as a circuit output.
func Output() GateType { return GateType{Kind: KindOutput} }

// Gate is one node of the circuit.
type Gate struct {
	ID    WireID
	Type  GateType
	Left  *WireID
	Right *WireID
}

// Circuit is an ordered, immutable sequence of gates.
type Circuit struct {
	gates []Gate
}

// New returns an empty circuit.
func New() *Circuit {
	return &Circuit{}
}

// AddGate appends a gate and returns its WireID. left/right may be nil
// where the gate type does not require them. The caller is responsible
// for only referencing wires with strictly smaller ids; Validate checks
// this after construction.
func (c *Circuit) AddGate(t GateType, left, right *WireID) WireID {
	id := WireID(len(c.gates))
	c.gates = append(c.gates, Gate{ID: id, Type: t, Left: left, Right: right})
	return id
}

// Wire returns a pointer suitable for use as a Left/Right argument.
func Wire(id WireID) *WireID { return &id }

// Len returns the number of gates in the circuit.
func (c *Circuit) Len() int { return len(c.gates) }

// Gate returns the gate at id.
func (c *Circuit) Gate(id WireID) Gate { return c.gates[id] }

// InputWiresByOwner returns, in insertion order, the ids of Input
// gates owned by the given party.
func (c *Circuit) InputWiresByOwner(owner int) []WireID {
	var ids []WireID
	for _, g := range c.gates {
		if g.Type.Kind == KindInput && g.Type.Owner == owner {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// OutputWires returns, in insertion order, the ids of Output gates.
func (c *Circuit) OutputWires() []WireID {
	var ids []WireID
	for _, g := range c.gates {
		if g.Type.Kind == KindOutput {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// TopologicalOrder returns all wire ids in an order where every
// predecessor precedes its successors. Because wire ids increase with
// construction and every reference must point at a strictly smaller
// id (enforced by Validate), insertion order is already topological;
// returning it directly avoids the recursion depth of a DFS-from-
// outputs approach for large circuits.
func (c *Circuit) TopologicalOrder() []WireID {
	order := make([]WireID, len(c.gates))
	for i := range c.gates {
		order[i] = WireID(i)
	}
	return order
}

// Validate checks the circuit's structural invariants: every
// referenced predecessor exists and has a strictly smaller id, operand
// arity matches the gate's kind, and every Input gate has an owner in
// [0, n).
func (c *Circuit) Validate(n int) error {
	for _, g := range c.gates {
		if err := validateArity(g); err != nil {
			return err
		}
		for _, w := range []*WireID{g.Left, g.Right} {
			if w == nil {
				continue
			}
			if *w < 0 || *w >= g.ID {
				return fmt.Errorf("%w: gate %d references non-predecessor wire %d", ErrInvalidCircuit, g.ID, *w)
			}
		}
		if g.Type.Kind == KindInput && (g.Type.Owner < 0 || g.Type.Owner >= n) {
			return fmt.Errorf("%w: gate %d has owner %d outside [0,%d)", ErrInvalidCircuit, g.ID, g.Type.Owner, n)
		}
	}
	return nil
}

func validateArity(g Gate) error {
	needLeft, needRight := false, false
	switch g.Type.Kind {
	case KindInput:
		// neither
	case KindAdd, KindMul:
		needLeft, needRight = true, true
	case KindConstMul, KindOutput:
		needLeft = true
	default:
		return fmt.Errorf("%w: gate %d has unknown kind %d", ErrInvalidCircuit, g.ID, g.Type.Kind)
	}
	if needLeft && g.Left == nil {
		return fmt.Errorf("%w: gate %d missing left operand", ErrInvalidCircuit, g.ID)
	}
	if needRight && g.Right == nil {
		return fmt.Errorf("%w: gate %d missing right operand", ErrInvalidCircuit, g.ID)
	}
	if !needLeft && g.Left != nil {
		return fmt.Errorf("%w: gate %d has unexpected left operand", ErrInvalidCircuit, g.ID)
	}
	if !needRight && g.Right != nil {
		return fmt.Errorf("%w: gate %d has unexpected right operand", ErrInvalidCircuit, g.ID)
	}
	return nil
}
