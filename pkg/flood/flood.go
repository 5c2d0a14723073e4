// Copyright 2025 TGP Authors
//
// Package flood implements the continuous flooding driver: it repeatedly
// re-emits only the current highest-level own-artifact over a transport,
// and feeds every inbound datagram to a ladder. Because each artifact
// embeds everything beneath it, there is no "special" message and no
// acknowledgement protocol — a fair-lossy channel that keeps being driven
// long enough eventually delivers, and the ladder's idempotent Receive
// makes arbitrary duplication and reordering harmless.
package flood

import (
	"context"
	"time"

	"github.com/tgp-labs/tgp/pkg/artifact"
	"github.com/tgp-labs/tgp/pkg/codec"
	"github.com/tgp-labs/tgp/pkg/ladder"
	"github.com/tgp-labs/tgp/pkg/logging"
	"github.com/tgp-labs/tgp/pkg/tgperrors"
	"github.com/tgp-labs/tgp/pkg/transport"
)

// Config controls the driver's pacing.
type Config struct {
	// Interval between re-emissions of the current outbound artifact.
	Interval time.Duration
	// Deadline bounds the whole session; once elapsed the driver aborts the
	// ladder (a no-op once the own Quad exists) and returns its outcome with
	// a nil error. Zero or negative means no deadline.
	Deadline time.Duration
}

// lingerTicks is how many further intervals the driver keeps re-emitting
// its final artifact after reaching V3 completion. The peer completes only
// once that artifact reaches it, so it is sent this many more times before
// Run returns.
const lingerTicks = 20

// DefaultConfig mirrors the values pkg/config exposes as TGP_FLOOD_INTERVAL
// and TGP_DEADLINE defaults.
func DefaultConfig() Config {
	return Config{Interval: 200 * time.Millisecond, Deadline: 30 * time.Second}
}

// Driver owns one ladder session and the transport it floods over.
type Driver struct {
	ladder  *ladder.Ladder
	tr      transport.Transport
	cfg     Config
	log     *logging.Logger
	stateCh chan struct{}
	emitSeq uint64
}

// New creates a flooding driver bound to l over tr.
func New(l *ladder.Ladder, tr transport.Transport, cfg Config, log *logging.Logger) *Driver {
	if log == nil {
		log = logging.Discard()
	}
	return &Driver{ladder: l, tr: tr, cfg: cfg, log: log, stateCh: make(chan struct{}, 1)}
}

// Outcome is the terminal result of Run.
type Outcome struct {
	// CanAttack is the base-protocol decision: true iff this participant's
	// own Quad was constructed before the deadline.
	CanAttack bool
	// Complete means both participants' Quads became mutually known.
	Complete bool
	// CompleteV3 means the full V3 confirmation exchange reached its
	// terminal, receipt-bearing state.
	CompleteV3 bool
	// Receipt is populated iff CompleteV3.
	Receipt artifact.FinalReceipt
}

// Run drives the flood loop until the ladder reaches V3 completion and
// lingerTicks further emissions have gone out, ctx is canceled, or
// cfg.Deadline elapses — whichever comes first. With a positive
// cfg.Deadline every wait is bounded by the deadline context.
//
// Deadline expiry and a dead transport are normal outcomes, not errors:
// the driver aborts the ladder and returns whatever decision the machine
// settled on. The only outputs of a session are the Outcome's ATTACK/ABORT
// decision; the error return is reserved for failures outside the
// protocol's own taxonomy and is nil on every terminating path here.
func (d *Driver) Run(ctx context.Context) (Outcome, error) {
	deadlineCtx := ctx
	var cancel context.CancelFunc
	if d.cfg.Deadline > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, d.cfg.Deadline)
		defer cancel()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- d.recvLoop(deadlineCtx) }()

	ticker := time.NewTicker(d.interval())
	defer ticker.Stop()

	linger := lingerTicks
	d.emit(deadlineCtx)
	for {
		select {
		case <-ticker.C:
			if d.ladder.IsCompleteV3() {
				if linger == 0 {
					return d.outcome(), nil
				}
				linger--
			}
			d.emit(deadlineCtx)
		case <-d.stateCh:
			// The receive activity advanced the machine; re-emit the new
			// highest artifact right away instead of waiting out the tick.
			d.emit(deadlineCtx)
		case err := <-errCh:
			if d.ladder.IsCompleteV3() {
				// The receive loop ends at V3 completion; the ticker
				// finishes the linger.
				errCh = nil
				continue
			}
			if deadlineCtx.Err() != nil {
				d.log.Info("flood: deadline expired before completion, aborting")
			} else {
				// A dead transport is indistinguishable from a permanent
				// partition; treat it like deadline expiry.
				d.log.Info("flood: transport unusable, aborting", "error", err)
			}
			d.ladder.Abort()
			return d.outcome(), nil
		case <-deadlineCtx.Done():
			if d.ladder.IsCompleteV3() {
				return d.outcome(), nil
			}
			d.log.Info("flood: deadline expired before completion, aborting")
			d.ladder.Abort()
			return d.outcome(), nil
		}
	}
}

func (d *Driver) interval() time.Duration {
	if d.cfg.Interval <= 0 {
		return DefaultConfig().Interval
	}
	return d.cfg.Interval
}

func (d *Driver) outcome() Outcome {
	o := Outcome{
		CanAttack:  d.ladder.CanAttack(),
		Complete:   d.ladder.IsComplete(),
		CompleteV3: d.ladder.IsCompleteV3(),
	}
	if r, ok := d.ladder.FinalReceipt(); ok {
		o.Receipt = r
	}
	return o
}

// emit re-sends the current highest-level own artifact, if any exists yet.
// A send failure is logged and swallowed: the next tick retries, which is
// exactly the behavior a fair-lossy channel needs.
func (d *Driver) emit(ctx context.Context) {
	out, ok := d.ladder.Outbound()
	if !ok {
		return
	}
	frame, err := encodeOutbound(out)
	if err != nil {
		d.log.Warn("flood: failed to encode outbound artifact", "error", err)
		return
	}
	d.emitSeq++
	if err := d.tr.Send(ctx, frame); err != nil {
		d.log.Debug("flood: send failed, will retry next tick", "seq", d.emitSeq, "error", err)
		return
	}
	d.log.Debug("flood: emitted current highest artifact", "seq", d.emitSeq, "state", d.ladder.State().String())
}

// recvLoop blocks on the transport, decoding and feeding every frame into
// the ladder. Malformed frames and rejected artifacts are recoverable per
// tgperrors.IsRecoverable and are logged, not escalated; anything else
// (most commonly TransportClosed) ends the loop.
func (d *Driver) recvLoop(ctx context.Context) error {
	for {
		dg, err := d.tr.Receive(ctx)
		if err != nil {
			return err
		}
		frame, _, err := codec.Decode(dg.Payload)
		if err != nil {
			d.log.Debug("flood: dropping malformed frame", "error", err)
			continue
		}
		art, err := decodeFrame(frame)
		if err != nil {
			d.log.Debug("flood: dropping undecodable artifact", "error", err)
			continue
		}
		before := d.ladder.State()
		if err := d.ladder.Receive(art); err != nil {
			if tgperrors.IsRecoverable(err) {
				d.log.Debug("flood: rejected inbound artifact", "error", err)
				continue
			}
			return err
		}
		if d.ladder.State() != before {
			select {
			case d.stateCh <- struct{}{}:
			default:
			}
		}
		if d.ladder.IsCompleteV3() {
			return nil
		}
	}
}
