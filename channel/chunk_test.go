package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkReassembleRoundTrip(t *testing.T) {
	payload := make([]byte, 10_000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	pieces, infos := Chunk(payload, 4096)
	require.Len(t, pieces, 3)
	require.Len(t, infos, 3)

	received := make(map[int][]byte)
	for i, p := range pieces {
		received[i] = p
	}
	out, err := Reassemble(received, infos)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestReassembleMissingChunk(t *testing.T) {
	payload := []byte("some transaction packet payload")
	pieces, infos := Chunk(payload, 8)
	received := make(map[int][]byte)
	for i, p := range pieces {
		if i == 1 {
			continue
		}
		received[i] = p
	}
	_, err := Reassemble(received, infos)
	require.Error(t, err)

	missing := MissingChunks(infos, received)
	require.Equal(t, []int{1}, missing)
}

func TestReassembleCorruptChunkDetected(t *testing.T) {
	payload := []byte("another packet")
	pieces, infos := Chunk(payload, 4)
	received := make(map[int][]byte)
	for i, p := range pieces {
		received[i] = p
	}
	received[0][0] ^= 0xFF
	_, err := Reassemble(received, infos)
	require.Error(t, err)
}

func TestEmptyPayloadProducesSingleChunk(t *testing.T) {
	pieces, infos := Chunk(nil, 4096)
	require.Len(t, pieces, 1)
	require.Len(t, infos, 1)
	require.Equal(t, 0, infos[0].Size)
}

func TestGzipRoundTrip(t *testing.T) {
	payload := []byte("compress me please, repeat repeat repeat repeat")
	compressed, err := CompressGzip(payload)
	require.NoError(t, err)
	require.NotEqual(t, payload, compressed)

	out, err := DecompressGzip(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}
