package timegate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "tokenmesh/core/errors"
)

type fixedSource struct {
	status Status
	err    error
}

func (s fixedSource) TimeStatus(ctx context.Context) (Status, error) { return s.status, s.err }

func TestGateAcceptsVerifiedOrConsensus(t *testing.T) {
	require.NoError(t, New(fixedSource{status: StatusVerified}).Check(context.Background()))
	require.NoError(t, New(fixedSource{status: StatusConsensus}).Check(context.Background()))
}

func TestGateRejectsInadequate(t *testing.T) {
	err := New(fixedSource{status: StatusInadequate}).Check(context.Background())
	require.Error(t, err)
	code, ok := coreerrors.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.CodePeerRejected, code)

	var txErr *coreerrors.TxError
	require.True(t, errors.As(err, &txErr))
	require.Equal(t, "TIME", txErr.Reason)
}

func TestGateRejectsSourceError(t *testing.T) {
	err := New(fixedSource{err: errors.New("boom")}).Check(context.Background())
	require.Error(t, err)
}

func TestGateWithNoSourceConfigured(t *testing.T) {
	var g *Gate
	err := g.Check(context.Background())
	require.Error(t, err)
}
