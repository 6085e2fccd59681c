// Command bgw-party runs one BGW protocol party, or, in -mode=local,
// an entire N-party run in a single process over an in-memory
// transport for local testing. Flag layout and lifecycle follow the
// node's own CLI entrypoint: flag.Parse up front, os/signal for
// graceful shutdown, emoji-prefixed log.Printf status lines.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pangea-net/bgw-node/pkg/mpc/circuit"
	"github.com/pangea-net/bgw-node/pkg/mpc/field"
	"github.com/pangea-net/bgw-node/pkg/mpc/party"
	"github.com/pangea-net/bgw-node/pkg/mpc/runconfig"
	"github.com/pangea-net/bgw-node/pkg/mpc/transport/libp2ptransport"
	"github.com/pangea-net/bgw-node/pkg/mpc/transport/memtransport"
)

func main() {
	var (
		mode       = flag.String("mode", "local", `"local" runs all parties in-process over memtransport; "networked" runs this process as one party over libp2p`)
		configPath = flag.String("config", "", "path to a runconfig JSON file (required for -mode=networked)")
		n          = flag.Int("n", 5, "number of parties (local mode only)")
		threshold  = flag.Int("t", 2, "corruption threshold T (local mode only)")
	)
	flag.Parse()

	log.Printf("🚀 starting bgw-party (mode=%s)", *mode)

	switch *mode {
	case "local":
		if err := runLocal(*n, *threshold); err != nil {
			log.Fatalf("❌ local run failed: %v", err)
		}
	case "networked":
		if *configPath == "" {
			log.Fatalf("❌ -config is required for -mode=networked")
		}
		if err := runNetworked(*configPath); err != nil {
			log.Fatalf("❌ networked run failed: %v", err)
		}
	default:
		log.Fatalf("❌ unknown -mode %q (want local or networked)", *mode)
	}
}

// sampleCircuit builds the (a+b)*c circuit: owners 0, 1, 2 contribute
// a, b, c respectively; every other party is a helper with no input.
func sampleCircuit() (c *circuit.Circuit, a, b, cw, out circuit.WireID) {
	c = circuit.New()
	a = c.AddGate(circuit.Input(0), nil, nil)
	b = c.AddGate(circuit.Input(1), nil, nil)
	cw = c.AddGate(circuit.Input(2), nil, nil)
	sum := c.AddGate(circuit.Add(), circuit.Wire(a), circuit.Wire(b))
	prod := c.AddGate(circuit.Mul(), circuit.Wire(sum), circuit.Wire(cw))
	out = c.AddGate(circuit.Output(), circuit.Wire(prod), nil)
	return c, a, b, cw, out
}

// runLocal runs the sample circuit end to end across n goroutines over
// memtransport, and exits non-zero if any party's reconstructed output
// disagrees with another's.
func runLocal(n, threshold int) error {
	circ, a, b, cw, out := sampleCircuit()
	if err := circ.Validate(n); err != nil {
		return fmt.Errorf("invalid circuit for n=%d: %w", n, err)
	}

	inputs := make([]map[circuit.WireID]field.Scalar, n)
	for i := range inputs {
		inputs[i] = map[circuit.WireID]field.Scalar{}
	}
	inputs[0][a] = field.FromUint64(2)
	inputs[1][b] = field.FromUint64(3)
	inputs[2][cw] = field.FromUint64(4)

	net := memtransport.NewNetwork(n)
	defer net.Close()
	barrier := party.NewBarrier(n)

	results := make([]map[circuit.WireID]field.Scalar, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for id := 0; id < n; id++ {
		go func(id int) {
			defer wg.Done()
			p := party.New(id, n, threshold, circ, net.Transport(id), rand.Reader, barrier)
			ctx := context.Background()

			if err := p.InputPhase(ctx, inputs[id]); err != nil {
				errs[id] = fmt.Errorf("input phase: %w", err)
				return
			}
			if err := p.EvaluateCircuit(ctx); err != nil {
				errs[id] = fmt.Errorf("evaluate: %w", err)
				return
			}
			out, err := p.OutputPhase(ctx)
			if err != nil {
				errs[id] = fmt.Errorf("output phase: %w", err)
				return
			}
			results[id] = out
		}(id)
	}
	wg.Wait()

	for id, err := range errs {
		if err != nil {
			return fmt.Errorf("party %d: %w", id, err)
		}
	}

	want := results[0][out]
	for id := 1; id < n; id++ {
		if !field.Equal(results[id][out], want) {
			return fmt.Errorf("party %d reconstructed a different output than party 0", id)
		}
	}
	log.Printf("✅ all %d parties agree on output wire %d", n, out)
	return nil
}

// runNetworked runs this process as the single party named by
// cfg.PartyID, dialing peers over libp2p. It evaluates the same
// sample circuit as runLocal; a real deployment would load the
// circuit from its own file rather than hardcoding it.
func runNetworked(configPath string) error {
	mgr := runconfig.NewManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	circ, a, b, cw, out := sampleCircuit()
	if err := circ.Validate(cfg.N); err != nil {
		return fmt.Errorf("invalid circuit for n=%d: %w", cfg.N, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node, err := libp2ptransport.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting libp2p transport: %w", err)
	}
	defer node.Close()

	// Give peers a moment to finish their own host startup before the
	// protocol's first broadcast.
	time.Sleep(2 * time.Second)

	inputs := map[circuit.WireID]field.Scalar{}
	switch cfg.PartyID {
	case 0:
		inputs[a] = field.FromUint64(2)
	case 1:
		inputs[b] = field.FromUint64(3)
	case 2:
		inputs[cw] = field.FromUint64(4)
	}

	p := party.New(cfg.PartyID, cfg.N, cfg.T, circ, node, rand.Reader, nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		runCtx := context.Background()
		if err := p.InputPhase(runCtx, inputs); err != nil {
			done <- fmt.Errorf("input phase: %w", err)
			return
		}
		if err := p.EvaluateCircuit(runCtx); err != nil {
			done <- fmt.Errorf("evaluate: %w", err)
			return
		}
		results, err := p.OutputPhase(runCtx)
		if err != nil {
			done <- fmt.Errorf("output phase: %w", err)
			return
		}
		log.Printf("✅ party %d reconstructed output wire %d = %v", cfg.PartyID, out, results[out])
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-sigCh:
		log.Printf("🛑 party %d interrupted", cfg.PartyID)
		return nil
	}
}
