package circuit

import (
	"testing"

	"github.com/pangea-net/bgw-node/pkg/mpc/field"
)

// buildSumMul builds the (a+b)*c circuit used by spec scenario S2.
func buildSumMul(t *testing.T) (*Circuit, WireID, WireID, WireID, WireID) {
	t.Helper()
	c := New()
	a := c.AddGate(Input(0), nil, nil)
	b := c.AddGate(Input(1), nil, nil)
	in3 := c.AddGate(Input(2), nil, nil)
	sum := c.AddGate(Add(), Wire(a), Wire(b))
	prod := c.AddGate(Mul(), Wire(sum), Wire(in3))
	out := c.AddGate(Output(), Wire(prod), nil)
	return c, a, b, in3, out
}

func TestAddGateAssignsSequentialIDs(t *testing.T) {
	c, a, b, in3, out := buildSumMul(t)
	if a != 0 || b != 1 || in3 != 2 || out != 5 {
		t.Fatalf("unexpected wire ids: a=%d b=%d in3=%d out=%d", a, b, in3, out)
	}
	if c.Len() != 6 {
		t.Fatalf("expected 6 gates, got %d", c.Len())
	}
}

func TestInputWiresByOwner(t *testing.T) {
	c, a, _, _, _ := buildSumMul(t)
	wires := c.InputWiresByOwner(0)
	if len(wires) != 1 || wires[0] != a {
		t.Fatalf("expected owner 0 to own wire %d, got %v", a, wires)
	}
	if wires := c.InputWiresByOwner(9); len(wires) != 0 {
		t.Fatalf("expected no wires for owner with no inputs, got %v", wires)
	}
}

func TestOutputWires(t *testing.T) {
	c, _, _, _, out := buildSumMul(t)
	wires := c.OutputWires()
	if len(wires) != 1 || wires[0] != out {
		t.Fatalf("expected single output wire %d, got %v", out, wires)
	}
}

// TestTopologicalOrderIsPredecessorFirst pins invariant 6: for every
// gate, all referenced predecessor ids are strictly smaller, so
// insertion order (0..len) is already a valid topological order.
func TestTopologicalOrderIsPredecessorFirst(t *testing.T) {
	c, _, _, _, _ := buildSumMul(t)
	order := c.TopologicalOrder()

	position := make(map[WireID]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	for _, id := range order {
		g := c.Gate(id)
		for _, w := range []*WireID{g.Left, g.Right} {
			if w == nil {
				continue
			}
			if position[*w] >= position[id] {
				t.Fatalf("gate %d's predecessor %d does not come first in topological order", id, *w)
			}
			if *w >= id {
				t.Fatalf("gate %d references non-predecessor wire %d", id, *w)
			}
		}
	}
}

func TestValidateAcceptsWellFormedCircuit(t *testing.T) {
	c, _, _, _, _ := buildSumMul(t)
	if err := c.Validate(3); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsForwardReference(t *testing.T) {
	c := New()
	a := c.AddGate(Input(0), nil, nil)
	// Manually construct an invalid gate referencing a wire that does
	// not yet exist relative to insertion order by forging an id.
	bad := a + 5
	c.gates = append(c.gates, Gate{ID: WireID(len(c.gates)), Type: Add(), Left: &bad, Right: &a})

	if err := c.Validate(1); err == nil {
		t.Fatal("expected ErrInvalidCircuit for forward reference")
	}
}

func TestValidateRejectsBadArity(t *testing.T) {
	c := New()
	a := c.AddGate(Input(0), nil, nil)
	c.gates = append(c.gates, Gate{ID: WireID(len(c.gates)), Type: Add(), Left: &a, Right: nil})

	if err := c.Validate(1); err == nil {
		t.Fatal("expected ErrInvalidCircuit for missing right operand on Add")
	}
}

func TestValidateRejectsOwnerOutOfRange(t *testing.T) {
	c := New()
	c.AddGate(Input(7), nil, nil)

	if err := c.Validate(3); err == nil {
		t.Fatal("expected ErrInvalidCircuit for owner outside [0,n)")
	}
}

func TestConstMulGateCarriesConstant(t *testing.T) {
	c := New()
	a := c.AddGate(Input(0), nil, nil)
	seven := field.FromUint64(7)
	cm := c.AddGate(ConstMul(seven), Wire(a), nil)

	got := c.Gate(cm).Type.C
	if !field.Equal(got, seven) {
		t.Fatalf("ConstMul constant = %v, want %v", got, seven)
	}
}
