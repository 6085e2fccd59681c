package party

import (
	"errors"

	"github.com/pangea-net/bgw-node/pkg/mpc/circuit"
	"github.com/pangea-net/bgw-node/pkg/mpc/sharing"
	"github.com/pangea-net/bgw-node/pkg/mpc/transport"
)

// Error taxonomy. Local invariant violations (ErrInconsistentX,
// ErrDuplicateX, ErrMissingInput, ErrInvalidCircuit) are fatal for the
// party: the protocol run cannot recover because honest parties'
// views would diverge, so callers should not retry — they should
// close the transport and propagate the failure.
var (
	// ErrMissingInput: the party owns an Input wire but was not
	// supplied a cleartext value for it.
	ErrMissingInput = errors.New("party: missing input value for owned wire")

	// ErrInconsistentX: an Add or Mul gate's two operand shares carry
	// different x-coordinates.
	ErrInconsistentX = errors.New("party: mismatched x-coordinates for gate operands")

	// ErrProtocolTimeout: a message wait exceeded the per-operation
	// timeout.
	ErrProtocolTimeout = errors.New("party: timed out waiting for a protocol message")

	// ErrDuplicateX re-exports sharing.ErrDuplicateX for callers that
	// only import party.
	ErrDuplicateX = sharing.ErrDuplicateX

	// ErrChannelClosed re-exports transport.ErrChannelClosed for
	// callers that only import party.
	ErrChannelClosed = transport.ErrChannelClosed

	// ErrInvalidCircuit re-exports circuit.ErrInvalidCircuit for
	// callers that only import party.
	ErrInvalidCircuit = circuit.ErrInvalidCircuit
)
