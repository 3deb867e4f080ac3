// Package timegate implements the time-integrity check the state machine
// consults at the two commit-boundary points of the four-packet protocol
// (spec §4.1): before the sender emits Confirmation, and before the
// receiver emits Acknowledgement. It is the only point where an external
// time authority can veto a commit.
package timegate

import (
	"context"
	"errors"

	coreerrors "tokenmesh/core/errors"
)

// Status is the time-consensus verdict returned by the external
// time-source collaborator (spec §1: time-source management is out of
// scope for the core; this is the narrow contract consumed).
type Status uint8

const (
	StatusUnknown Status = iota
	StatusInadequate
	StatusVerified
	StatusConsensus
)

// Source is implemented by the external time-consensus collaborator.
type Source interface {
	TimeStatus(ctx context.Context) (Status, error)
}

// Gate wraps a Source with the pass/fail decision the state machine needs.
type Gate struct {
	source Source
}

func New(source Source) *Gate {
	return &Gate{source: source}
}

// Check returns nil if the time source reports Verified or Consensus, and a
// PEER_REJECTED/TIME *TxError otherwise (spec §4.1).
func (g *Gate) Check(ctx context.Context) error {
	if g == nil || g.source == nil {
		return coreerrors.WithReason(coreerrors.CodePeerRejected, "TIME", errNoSource)
	}
	status, err := g.source.TimeStatus(ctx)
	if err != nil {
		return coreerrors.WithReason(coreerrors.CodePeerRejected, "TIME", err)
	}
	if status != StatusVerified && status != StatusConsensus {
		return coreerrors.WithReason(coreerrors.CodePeerRejected, "TIME", errInadequate)
	}
	return nil
}

var (
	errNoSource   = errors.New("timegate: no time-consensus source configured")
	errInadequate = errors.New("timegate: time consensus status is Inadequate")
)
