// Copyright 2025 TGP Authors
//
// Command tgp-node runs one participant in a Two Generals / Coordinated
// Attack session over UDP, or one member of a BFT committee round,
// depending on -mode. Configuration is read entirely from the environment
// per pkg/config; the only flag, -mode, selects which mode to run.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/tgp-labs/tgp/pkg/bft"
	"github.com/tgp-labs/tgp/pkg/config"
	"github.com/tgp-labs/tgp/pkg/flood"
	"github.com/tgp-labs/tgp/pkg/ladder"
	"github.com/tgp-labs/tgp/pkg/logging"
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
	"github.com/tgp-labs/tgp/pkg/transport"
)

func main() {
	mode := flag.String("mode", "party", "run mode: \"party\" (two-party ladder over UDP) or \"bft\" (single BFT committee member: generates a key, logs its parameters and waits)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tgp-node: load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "tgp-node: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	log, err := logging.New(&logging.Config{Level: level, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tgp-node: init logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "party":
		err = runParty(ctx, cfg, log)
	case "bft":
		err = runBft(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown -mode %q, want \"party\" or \"bft\"", *mode)
	}
	if err != nil {
		log.WithComponent("main").Error("tgp-node exiting with error", "error", err)
		os.Exit(1)
	}
}

func loadSigner(path string) (*signer.Signer, error) {
	if path == "" {
		return signer.Generate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode signing key hex: %w", err)
	}
	return signer.FromPrivateKey(ed25519.PrivateKey(key))
}

func runParty(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	comp := log.WithComponent("party").WithSession(uuid.NewString())

	var self party.Party
	switch cfg.Party {
	case "A":
		self = party.A
	case "B":
		self = party.B
	}

	s, err := loadSigner(cfg.SigningKeyPath)
	if err != nil {
		return err
	}

	l := ladder.New(self, s)
	if _, err := l.Create([]byte(cfg.CommitmentMessage)); err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	comp.Info("commitment created", "party", self.String())

	tr, err := transport.DialUDP(cfg.ListenAddr, cfg.PeerAddr)
	if err != nil {
		return fmt.Errorf("dial peer: %w", err)
	}
	defer tr.Close()

	driver := flood.New(l, tr, flood.Config{Interval: cfg.FloodInterval, Deadline: cfg.Deadline}, comp)
	outcome, err := driver.Run(ctx)
	if err != nil {
		// Run returns nil on every protocol outcome, deadline expiry and
		// transport loss included; anything else is a genuine failure.
		return fmt.Errorf("run session: %w", err)
	}

	decision := "ABORT"
	if outcome.CanAttack {
		decision = "ATTACK"
	}
	fields := []any{
		"decision", decision,
		"complete", outcome.Complete,
		"complete_v3", outcome.CompleteV3,
	}
	if outcome.CompleteV3 {
		fields = append(fields, "receipt_hash", hex.EncodeToString(outcome.Receipt.ReceiptHash[:]))
	}
	comp.Info("session complete", fields...)
	return nil
}

func runBft(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	comp := log.WithComponent("bft").WithSession(uuid.NewString())

	bftCfg, err := bft.NewBftConfig(len(cfg.BftPeers), cfg.BftF)
	if err != nil {
		return fmt.Errorf("bft config: %w", err)
	}

	kp, err := bft.GenerateBlsKeyPair()
	if err != nil {
		return fmt.Errorf("generate bls key pair: %w", err)
	}
	pub := kp.Public.Bytes()
	comp.Info("bft node ready",
		"node_id", cfg.BftNodeID, "n", bftCfg.N, "f", bftCfg.F, "threshold", bftCfg.Threshold(),
		"bls_public_key", hex.EncodeToString(pub),
	)
	comp.Warn("bft mode starts a single committee member; wiring it to peer transports and real proposal ingestion is left to pkg/simulate and future integration work")
	<-ctx.Done()
	return nil
}
