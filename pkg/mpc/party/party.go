// Package party drives the three BGW protocol phases for a single
// participant: input sharing, gate-by-gate evaluation with interactive
// degree reduction at multiplication gates, and output reconstruction.
//
// A Party owns its shares map exclusively; nothing outside the
// goroutine running its phases touches it. All suspension happens at
// Transport.Send/Recv and the optional phase Barrier — field
// arithmetic, Lagrange interpolation, and local gate evaluation never
// suspend.
package party

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pangea-net/bgw-node/pkg/mpc/circuit"
	"github.com/pangea-net/bgw-node/pkg/mpc/field"
	"github.com/pangea-net/bgw-node/pkg/mpc/message"
	"github.com/pangea-net/bgw-node/pkg/mpc/sharing"
	"github.com/pangea-net/bgw-node/pkg/mpc/transport"
)

// DefaultTimeout bounds each single Send and each single transport
// Recv. A loop collecting several messages starts a fresh timeout for
// every Recv, so the loop as a whole has no overall bound.
const DefaultTimeout = 10 * time.Second

// Party is one of the N participants. Construct with New and drive
// InputPhase, EvaluateCircuit, OutputPhase in strict sequence.
type Party struct {
	ID      int
	N       int
	T       int
	Circuit *circuit.Circuit

	transport transport.Transport
	rnd       io.Reader
	timeout   time.Duration
	barrier   *Barrier

	shares  map[circuit.WireID]sharing.Share
	pending []message.Message // misclassified messages buffered for a later recv
}

// New constructs a party. rnd must be a cryptographically strong
// source; it is used only by this party's own goroutine, never
// shared. barrier may be nil, in which case no cross-phase rendezvous
// is performed and per-(wire,kind) message classification is the only
// synchronization (spec §9 permits either).
func New(id, n, t int, circ *circuit.Circuit, tr transport.Transport, rnd io.Reader, barrier *Barrier) *Party {
	return &Party{
		ID:        id,
		N:         n,
		T:         t,
		Circuit:   circ,
		transport: tr,
		rnd:       rnd,
		timeout:   DefaultTimeout,
		barrier:   barrier,
		shares:    make(map[circuit.WireID]sharing.Share),
	}
}

// SetTimeout overrides DefaultTimeout, mainly for tests that want
// fast failure instead of waiting 10 seconds for a deliberately wedged
// peer.
func (p *Party) SetTimeout(d time.Duration) { p.timeout = d }

// x returns this party's assigned x-coordinate: party p is x = p+1,
// never zero.
func (p *Party) x() field.Scalar { return field.FromUint64(uint64(p.ID + 1)) }

// InputPhase shares every wire this party owns and collects one share
// per input wire owned by every other party, per spec §4.3.1.
func (p *Party) InputPhase(ctx context.Context, inputs map[circuit.WireID]field.Scalar) error {
	for _, wire := range p.Circuit.InputWiresByOwner(p.ID) {
		secret, ok := inputs[wire]
		if !ok {
			return fmt.Errorf("%w: wire %d", ErrMissingInput, wire)
		}
		shares, err := sharing.Split(secret, p.T, p.N, p.rnd)
		if err != nil {
			return fmt.Errorf("party %d: sharing wire %d: %w", p.ID, wire, err)
		}
		for pid, sh := range shares {
			if pid == p.ID {
				p.shares[wire] = sh
				continue
			}
			if err := p.send(ctx, pid, message.Message{Tag: message.InputShare, Wire: wire, Share: sh}); err != nil {
				return fmt.Errorf("party %d: sending input share for wire %d to %d: %w", p.ID, wire, pid, err)
			}
		}
	}

	expected := 0
	for _, g := range p.Circuit.TopologicalOrder() {
		gate := p.Circuit.Gate(g)
		if gate.Type.Kind == circuit.KindInput && gate.Type.Owner != p.ID {
			expected++
		}
	}

	received := 0
	for received < expected {
		msg, err := p.recvMatching(ctx, func(m message.Message) bool {
			_, have := p.shares[m.Wire]
			return m.Tag == message.InputShare && !have
		})
		if err != nil {
			return fmt.Errorf("party %d: input phase recv: %w", p.ID, err)
		}
		p.shares[msg.Wire] = msg.Share
		received++
	}

	if p.barrier != nil {
		if err := p.barrier.Wait(ctx); err != nil {
			return fmt.Errorf("party %d: input-phase barrier: %w", p.ID, err)
		}
	}
	return nil
}

// EvaluateCircuit walks the circuit in topological order, computing
// each non-input gate's share from local state plus, for Mul gates,
// the interactive degree-reduction subprotocol.
func (p *Party) EvaluateCircuit(ctx context.Context) error {
	for _, id := range p.Circuit.TopologicalOrder() {
		gate := p.Circuit.Gate(id)
		switch gate.Type.Kind {
		case circuit.KindInput:
			if _, ok := p.shares[gate.ID]; !ok {
				return fmt.Errorf("%w: wire %d", ErrMissingInput, gate.ID)
			}
		case circuit.KindAdd:
			if err := p.evalAdd(gate); err != nil {
				return err
			}
		case circuit.KindConstMul:
			p.evalConstMul(gate)
		case circuit.KindMul:
			if err := p.evalMul(ctx, gate); err != nil {
				return err
			}
		case circuit.KindOutput:
			p.shares[gate.ID] = p.shares[*gate.Left]
		}
	}
	return nil
}

func (p *Party) evalAdd(gate circuit.Gate) error {
	a := p.shares[*gate.Left]
	b := p.shares[*gate.Right]
	if !field.Equal(a.X, b.X) {
		return fmt.Errorf("%w: gate %d", ErrInconsistentX, gate.ID)
	}
	p.shares[gate.ID] = sharing.Share{X: a.X, Y: field.Add(a.Y, b.Y)}
	return nil
}

func (p *Party) evalConstMul(gate circuit.Gate) {
	a := p.shares[*gate.Left]
	p.shares[gate.ID] = sharing.Share{X: a.X, Y: field.Mul(gate.Type.C, a.Y)}
}

// evalMul runs the degree-reduction subprotocol of spec §4.3.4: local
// product, broadcast, open the product in the clear, reshare, then
// average the N fresh resharings at this party's own x-coordinate.
//
// Opening the product in the clear before resharing discloses every
// intermediate multiplication result to every party. This is a
// deliberate simplification and is NOT the textbook BGW construction,
// which reduces degree via a fixed public matrix applied directly to
// shares without ever reconstructing the intermediate value. It is
// only appropriate when the threat model tolerates intermediate-value
// disclosure.
func (p *Party) evalMul(ctx context.Context, gate circuit.Gate) error {
	a := p.shares[*gate.Left]
	b := p.shares[*gate.Right]
	if !field.Equal(a.X, b.X) {
		return fmt.Errorf("%w: gate %d", ErrInconsistentX, gate.ID)
	}

	localProduct := sharing.Share{X: a.X, Y: field.Mul(a.Y, b.Y)}

	if err := p.broadcast(ctx, gate.ID, message.MulShare, localProduct); err != nil {
		return fmt.Errorf("party %d: broadcasting mul share for gate %d: %w", p.ID, gate.ID, err)
	}

	degree2tShares := []sharing.Share{localProduct}
	seenX := map[string]bool{scalarKey(localProduct.X): true}
	for len(degree2tShares) < 2*p.T+1 {
		msg, err := p.recvMatching(ctx, func(m message.Message) bool {
			return m.Tag == message.MulShare && m.Wire == gate.ID && !seenX[scalarKey(m.Share.X)]
		})
		if err != nil {
			return fmt.Errorf("party %d: collecting mul shares for gate %d: %w", p.ID, gate.ID, err)
		}
		degree2tShares = append(degree2tShares, msg.Share)
		seenX[scalarKey(msg.Share.X)] = true
	}

	product, err := sharing.Reconstruct(degree2tShares)
	if err != nil {
		return fmt.Errorf("party %d: opening product for gate %d: %w", p.ID, gate.ID, err)
	}
	log.Printf("🔐 [party %d] opened intermediate product for wire %d", p.ID, gate.ID)

	resharing, err := sharing.Split(product, p.T, p.N, p.rnd)
	if err != nil {
		return fmt.Errorf("party %d: resharing product for gate %d: %w", p.ID, gate.ID, err)
	}

	for pid, sh := range resharing {
		if pid == p.ID {
			continue
		}
		if err := p.send(ctx, pid, message.Message{Tag: message.Reshare, Wire: gate.ID, Share: sh}); err != nil {
			return fmt.Errorf("party %d: sending reshare for gate %d to %d: %w", p.ID, gate.ID, pid, err)
		}
	}

	myX := p.x()
	sum := resharing[p.ID].Y
	received := 1
	for received < p.N {
		msg, err := p.recvMatching(ctx, func(m message.Message) bool {
			return m.Tag == message.Reshare && m.Wire == gate.ID && field.Equal(m.Share.X, myX)
		})
		if err != nil {
			return fmt.Errorf("party %d: collecting reshares for gate %d: %w", p.ID, gate.ID, err)
		}
		sum = field.Add(sum, msg.Share.Y)
		received++
	}

	invN := field.Inv(field.FromUint64(uint64(p.N)))
	p.shares[gate.ID] = sharing.Share{X: myX, Y: field.Mul(sum, invN)}
	return nil
}

// OutputPhase exchanges output shares with every peer and reconstructs
// each output wire's value from at least T+1 distinct shares.
func (p *Party) OutputPhase(ctx context.Context) (map[circuit.WireID]field.Scalar, error) {
	outputs := p.Circuit.OutputWires()
	collected := make(map[circuit.WireID][]sharing.Share, len(outputs))

	for _, wire := range outputs {
		share := p.shares[wire]
		collected[wire] = []sharing.Share{share}
		if err := p.broadcast(ctx, wire, message.OutputShare, share); err != nil {
			return nil, fmt.Errorf("party %d: broadcasting output share for wire %d: %w", p.ID, wire, err)
		}
	}

	needed := p.T + 1
	for !allCollected(collected, needed) {
		msg, err := p.recvMatching(ctx, func(m message.Message) bool {
			return m.Tag == message.OutputShare && len(collected[m.Wire]) < needed
		})
		if err != nil {
			return nil, fmt.Errorf("party %d: output phase recv: %w", p.ID, err)
		}
		collected[msg.Wire] = append(collected[msg.Wire], msg.Share)
	}

	results := make(map[circuit.WireID]field.Scalar, len(outputs))
	for wire, shares := range collected {
		value, err := sharing.Reconstruct(shares[:needed])
		if err != nil {
			return nil, fmt.Errorf("party %d: reconstructing wire %d: %w", p.ID, wire, err)
		}
		results[wire] = value
	}
	return results, nil
}

// scalarKey renders a scalar's canonical encoding as a map key, used
// to detect duplicate x-coordinates in the degree-reduction subprotocol.
func scalarKey(s field.Scalar) string {
	b, err := field.MarshalCanonical(s)
	if err != nil {
		panic("party: scalar failed to marshal: " + err.Error())
	}
	return hex.EncodeToString(b)
}

func allCollected(collected map[circuit.WireID][]sharing.Share, needed int) bool {
	for _, shares := range collected {
		if len(shares) < needed {
			return false
		}
	}
	return true
}

// broadcast sends msg (tagged tag, addressed to wire) to every peer
// except self.
func (p *Party) broadcast(ctx context.Context, wire circuit.WireID, tag message.Tag, share sharing.Share) error {
	for pid := 0; pid < p.N; pid++ {
		if pid == p.ID {
			continue
		}
		if err := p.send(ctx, pid, message.Message{Tag: tag, Wire: wire, Share: share}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Party) send(ctx context.Context, to int, msg message.Message) error {
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.transport.Send(cctx, to, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrProtocolTimeout
		}
		return err
	}
	return nil
}

// recvMatching returns the first message satisfying accept, checking
// the pending buffer first. Messages read off the transport that
// don't satisfy accept are buffered for a later phase/step to consume
// — the protocol tolerates arbitrary interleavings because every
// message is self-describing by (wire, tag).
func (p *Party) recvMatching(ctx context.Context, accept func(message.Message) bool) (message.Message, error) {
	for i, m := range p.pending {
		if accept(m) {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return m, nil
		}
	}

	for {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		msg, err := p.transport.Recv(cctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return message.Message{}, ErrProtocolTimeout
			}
			if errors.Is(err, transport.ErrChannelClosed) {
				return message.Message{}, ErrChannelClosed
			}
			return message.Message{}, err
		}
		if accept(msg) {
			return msg, nil
		}
		p.pending = append(p.pending, msg)
	}
}
