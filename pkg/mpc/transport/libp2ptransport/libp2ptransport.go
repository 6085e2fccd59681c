// Package libp2ptransport is the networked Transport: one libp2p host
// per party, TCP + Noise + yamux for the wire, a dedicated protocol ID
// for party-to-party traffic, and one stream opened per outbound
// message — the same "open, write framed payload, close" shape the
// node's compute protocol uses for task dispatch.
package libp2ptransport

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/libp2p/go-libp2p"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"github.com/google/uuid"
	"github.com/multiformats/go-multiaddr"

	"github.com/pangea-net/bgw-node/pkg/mpc/message"
	"github.com/pangea-net/bgw-node/pkg/mpc/runconfig"
	"github.com/pangea-net/bgw-node/pkg/mpc/transport"
)

// ProtocolID is the libp2p stream protocol carrying BGW wire messages.
const ProtocolID = protocol.ID("/bgw/party/1.0.0")

const inboxCapacity = 256

// GenerateIdentity creates a fresh libp2p Ed25519 identity and returns
// it base64-encoded for storage in a runconfig.Config.
func GenerateIdentity() (string, error) {
	priv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("libp2ptransport: generating identity: %w", err)
	}
	raw, err := libp2pcrypto.MarshalPrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("libp2ptransport: marshaling identity: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Node is a single party's libp2p-backed Transport.
type Node struct {
	id      int
	host    host.Host
	peerIDs map[int]peer.ID

	inbox chan message.Message

	mu     sync.Mutex
	closed bool
}

// New constructs a Node for cfg.PartyID, listening on cfg.ListenAddr
// and resolving every entry in cfg.Peers to a libp2p peer.ID (each
// multiaddr must carry a /p2p/<peer-id> suffix).
func New(ctx context.Context, cfg *runconfig.Config) (*Node, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(cfg.PrivateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("libp2ptransport: decoding private key: %w", err)
	}
	priv, err := libp2pcrypto.UnmarshalPrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("libp2ptransport: parsing private key: %w", err)
	}

	opts := []libp2p.Option{
		libp2p.Identity(priv),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
	}
	if cfg.ListenAddr != "" {
		opts = append(opts, libp2p.ListenAddrStrings(cfg.ListenAddr))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("libp2ptransport: constructing host: %w", err)
	}

	n := &Node{
		id:      cfg.PartyID,
		host:    h,
		peerIDs: make(map[int]peer.ID, len(cfg.Peers)),
		inbox:   make(chan message.Message, inboxCapacity),
	}

	for _, p := range cfg.Peers {
		addr, err := multiaddr.NewMultiaddr(p.Multiaddr)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("libp2ptransport: parsing peer %d multiaddr: %w", p.ID, err)
		}
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("libp2ptransport: resolving peer %d address: %w", p.ID, err)
		}
		h.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.PermanentAddrTTL)
		n.peerIDs[p.ID] = info.ID
	}

	h.SetStreamHandler(ProtocolID, n.handleStream)
	log.Printf("🌐 [party %d] libp2p host up at %s (peer id %s)", n.id, h.Addrs(), h.ID())
	return n, nil
}

func (n *Node) handleStream(s network.Stream) {
	defer s.Close()
	data, err := io.ReadAll(s)
	if err != nil {
		log.Printf("❌ [party %d] reading stream from %s: %v", n.id, s.Conn().RemotePeer(), err)
		return
	}
	var msg message.Message
	if err := msg.UnmarshalBinary(data); err != nil {
		log.Printf("❌ [party %d] decoding message from %s: %v", n.id, s.Conn().RemotePeer(), err)
		return
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return
	}
	select {
	case n.inbox <- msg:
	default:
		log.Printf("⚠️ [party %d] inbox full, dropping message for wire %d", n.id, msg.Wire)
	}
}

// Send opens a fresh stream to party `to`, writes msg's wire encoding,
// then closes the stream — one round of "open, write, close" per
// message, same as the node's task-dispatch protocol.
func (n *Node) Send(ctx context.Context, to int, msg message.Message) error {
	pid, ok := n.peerIDs[to]
	if !ok {
		return fmt.Errorf("libp2ptransport: unknown peer %d", to)
	}

	s, err := n.host.NewStream(ctx, pid, ProtocolID)
	if err != nil {
		return fmt.Errorf("libp2ptransport: opening stream to %d: %w", to, err)
	}
	defer s.Close()
	log.Printf("📤 [party %d] sending %s for wire %d to %d (trace %s)", n.id, msg.Tag, msg.Wire, to, correlationID())

	payload, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("libp2ptransport: encoding message: %w", err)
	}
	if _, err := s.Write(payload); err != nil {
		return fmt.Errorf("libp2ptransport: writing to %d: %w", to, err)
	}
	return nil
}

// Recv blocks until a message arrives or ctx is done.
func (n *Node) Recv(ctx context.Context) (message.Message, error) {
	select {
	case msg, ok := <-n.inbox:
		if !ok {
			return message.Message{}, transport.ErrChannelClosed
		}
		return msg, nil
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

// Close shuts down the libp2p host and the inbox.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.inbox)
	return n.host.Close()
}

// correlationID is attached to log lines, not the wire format: each
// Send logs a fresh id on the sender's side only, so one send can be
// picked out of that party's log.
func correlationID() string { return uuid.NewString() }
