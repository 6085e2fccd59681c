// Package transport defines the contract the party engine consumes
// for inter-party delivery: a per-peer Send and a single Recv stream
// per party. It deliberately says nothing about how bytes move —
// memtransport and libp2ptransport provide two concrete, interchangeable
// implementations.
package transport

import (
	"context"
	"errors"

	"github.com/pangea-net/bgw-node/pkg/mpc/message"
)

// ErrChannelClosed is returned by Recv once the inbox is closed and
// drained, mirroring the protocol error a party surfaces when a peer
// terminates prematurely.
var ErrChannelClosed = errors.New("transport: channel closed")

// Transport is the per-party handle onto the network. Implementations
// must provide per-pair FIFO delivery, at-most-once semantics, and no
// loss absent peer failure; self-addressed sends are permitted and
// equivalent to a direct local enqueue. Send and Recv must be
// cooperatively cancellable via ctx.
type Transport interface {
	// Send delivers msg to the party identified by to. It suspends if
	// the peer's inbox is full and returns ctx.Err() if ctx is done
	// first.
	Send(ctx context.Context, to int, msg message.Message) error

	// Recv blocks for the next message addressed to this party. It
	// returns ErrChannelClosed once the inbox is closed with no more
	// buffered messages, or ctx.Err() if ctx is done first.
	Recv(ctx context.Context) (message.Message, error)

	// Close releases the transport's resources. Implementations must
	// make Close idempotent.
	Close() error
}
