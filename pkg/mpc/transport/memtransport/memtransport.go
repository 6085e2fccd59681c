// Package memtransport is the default in-process Transport: one
// buffered channel per ordered (from, to) pair, each forwarded by a
// small goroutine into the recipient's single inbox channel. This
// mirrors the reference harness's topology — a central inbox per
// party fed by N-1 per-pair forwarders — just expressed with Go
// channels and goroutines instead of tokio tasks and mpsc.
package memtransport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pangea-net/bgw-node/pkg/mpc/message"
	"github.com/pangea-net/bgw-node/pkg/mpc/transport"
)

const defaultCapacity = 128

// Network builds the full N-party topology and hands each party its
// own Transport handle. Call Close when the protocol run is complete
// to release every party's inbox and forwarder goroutine.
type Network struct {
	parties []*memTransport
	inboxes []chan message.Message
	wg      []*sync.WaitGroup // one per recipient, counts live forwarders into inboxes[i]
}

// NewNetwork constructs an N-party fully connected topology.
func NewNetwork(n int) *Network {
	net := &Network{
		parties: make([]*memTransport, n),
		inboxes: make([]chan message.Message, n),
		wg:      make([]*sync.WaitGroup, n),
	}
	for i := 0; i < n; i++ {
		net.inboxes[i] = make(chan message.Message, defaultCapacity)
		net.wg[i] = &sync.WaitGroup{}
	}

	senders := make([][]chan message.Message, n)
	for from := 0; from < n; from++ {
		senders[from] = make([]chan message.Message, n)
		for to := 0; to < n; to++ {
			if from == to {
				// Self-addressed sends are a direct local enqueue.
				senders[from][to] = net.inboxes[to]
				continue
			}
			p := make(chan message.Message, defaultCapacity)
			senders[from][to] = p
			net.wg[to].Add(1)
			go net.forward(p, to)
		}
	}

	for id := 0; id < n; id++ {
		net.parties[id] = &memTransport{
			id:      id,
			senders: senders[id],
			inbox:   net.inboxes[id],
		}
	}
	return net
}

// forward copies messages from a per-pair channel into recipient to's
// central inbox until the per-pair channel is closed, then signals the
// recipient's forwarder WaitGroup so Close can safely close the inbox
// once every forwarder writing into it has exited.
func (net *Network) forward(from chan message.Message, to int) {
	defer net.wg[to].Done()
	for msg := range from {
		net.inboxes[to] <- msg
	}
}

// Transport returns the handle for party id.
func (net *Network) Transport(id int) transport.Transport {
	return net.parties[id]
}

// Close closes every party's outbound channels, waits for the
// resulting forwarder goroutines to drain, then closes every inbox so
// blocked Recv calls return ErrChannelClosed instead of hanging.
func (net *Network) Close() {
	for _, p := range net.parties {
		p.closeOutbound()
	}
	for i, inbox := range net.inboxes {
		net.wg[i].Wait()
		close(inbox)
	}
}

type memTransport struct {
	id      int
	senders []chan message.Message
	inbox   chan message.Message

	closeOnce sync.Once
}

func (t *memTransport) Send(ctx context.Context, to int, msg message.Message) error {
	if to < 0 || to >= len(t.senders) {
		return fmt.Errorf("memtransport: unknown peer %d", to)
	}
	select {
	case t.senders[to] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memTransport) Recv(ctx context.Context) (message.Message, error) {
	select {
	case msg, ok := <-t.inbox:
		if !ok {
			return message.Message{}, transport.ErrChannelClosed
		}
		return msg, nil
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

// Close closes this party's outbound channels. The shared inboxes are
// only closed once, by Network.Close, after every forwarder has
// drained — a single party closing early would break peers still
// mid-phase.
func (t *memTransport) Close() error {
	t.closeOutbound()
	return nil
}

func (t *memTransport) closeOutbound() {
	t.closeOnce.Do(func() {
		seen := make(map[chan message.Message]bool)
		for to, ch := range t.senders {
			if to == t.id {
				continue // self-loop aliases the inbox; never closed directly
			}
			if seen[ch] {
				continue
			}
			seen[ch] = true
			close(ch)
		}
	})
}
