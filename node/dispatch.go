// Package node wires the four-packet transaction engine to a wire channel:
// it decodes inbound frames into protocol packets, dispatches them to a
// txn.Manager, and ships the resulting packet back out over the same
// channel. One Dispatcher runs per connected peer, mirroring the
// per-connection Peer loop the teacher's p2p server keeps for its mesh
// links (p2p/server.go), generalized here to a single bilateral channel
// instead of a gossip fanout.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tokenmesh/channel"
	"tokenmesh/core/txn"
	"tokenmesh/reliability"
)

// Kind identifies which four-packet message an envelope carries.
type Kind string

const (
	KindInitiation     Kind = "initiation"
	KindResponse       Kind = "response"
	KindConfirmation   Kind = "confirmation"
	KindAcknowledgement Kind = "acknowledgement"
)

// envelope is the JSON wrapper placed inside Frame.Payload so a single
// channel can carry any of the four packet types plus the node's own
// framing metadata.
type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher pumps frames between a channel.MessageChannel and a
// txn.Manager for the duration of one peer connection.
type Dispatcher struct {
	ch      channel.MessageChannel
	mgr     *txn.Manager
	guard   *reliability.FrameGuard
	acks    *reliability.AckTracker
	pacer   *reliability.Pacer
	logger  *slog.Logger
	nextSeq uint64
}

// New constructs a Dispatcher. guard, acks, and pacer may be nil; nil pacer
// and nil logger are both handled safely by their respective zero
// behaviors (reliability.Pacer and slog.Default).
func New(ch channel.MessageChannel, mgr *txn.Manager, guard *reliability.FrameGuard, acks *reliability.AckTracker, pacer *reliability.Pacer, logger *slog.Logger) *Dispatcher {
	if guard == nil {
		guard = reliability.NewFrameGuard(0)
	}
	if acks == nil {
		acks = reliability.NewAckTracker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{ch: ch, mgr: mgr, guard: guard, acks: acks, pacer: pacer, logger: logger}
}

// Run processes frames until the channel closes or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		frame, err := d.ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("node: receive: %w", err)
		}
		if frame.Type != channel.FrameData {
			continue
		}
		if cached, seen := d.guard.Seen(frame.FrameID); seen {
			if cached != nil {
				if err := d.replyRaw(ctx, cached); err != nil {
					d.logger.Warn("node: failed to resend cached response", slog.String("frameId", frame.FrameID), slog.Any("error", err))
				}
			}
			continue
		}

		response, handleErr := d.handle(ctx, frame.Payload)
		if handleErr != nil {
			d.logger.Error("node: dispatch failed", slog.String("frameId", frame.FrameID), slog.Any("error", handleErr))
			continue
		}
		d.guard.Remember(frame.FrameID, response)
		if response == nil {
			continue
		}
		if err := d.replyRaw(ctx, response); err != nil {
			d.logger.Warn("node: failed to send response", slog.String("frameId", frame.FrameID), slog.Any("error", err))
		}
	}
}

func (d *Dispatcher) replyRaw(ctx context.Context, payload []byte) error {
	if d.pacer != nil {
		if err := d.pacer.Wait(ctx); err != nil {
			return err
		}
	}
	d.nextSeq++
	out := channel.NewDataFrame(uuid.NewString(), payload, d.nextSeq, time.Now())
	d.acks.Track(out)
	return d.ch.Send(ctx, out)
}

func (d *Dispatcher) handle(ctx context.Context, raw []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Kind {
	case KindInitiation:
		var pkt txn.InitiationPacket
		if err := json.Unmarshal(env.Payload, &pkt); err != nil {
			return nil, err
		}
		resp, err := d.mgr.RespondToTransaction(ctx, &pkt)
		if err != nil {
			return nil, err
		}
		return encode(KindResponse, resp)
	case KindResponse:
		var pkt txn.ResponsePacket
		if err := json.Unmarshal(env.Payload, &pkt); err != nil {
			return nil, err
		}
		resp, err := d.mgr.ProcessResponse(ctx, &pkt)
		if err != nil {
			return nil, err
		}
		return encode(KindConfirmation, resp)
	case KindConfirmation:
		var pkt txn.ConfirmationPacket
		if err := json.Unmarshal(env.Payload, &pkt); err != nil {
			return nil, err
		}
		resp, err := d.mgr.ProcessConfirmation(ctx, &pkt)
		if err != nil {
			return nil, err
		}
		return encode(KindAcknowledgement, resp)
	case KindAcknowledgement:
		var pkt txn.AcknowledgementPacket
		if err := json.Unmarshal(env.Payload, &pkt); err != nil {
			return nil, err
		}
		if err := d.mgr.FinalizeTransaction(ctx, &pkt); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("node: unknown envelope kind %q", env.Kind)
	}
}

func encode(kind Kind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kind, Payload: raw})
}
