package channel

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// DefaultChunkSize bounds a single chunk's payload size for transports (QR,
// BLE) with small per-message limits. WS/NFC adapters may send everything
// as chunk 0/1 instead.
const DefaultChunkSize = 4096

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Chunk splits payload into pieces no larger than size, each with its own
// content hash and a shared completeHash identifying the reassembled whole.
// A nil or empty payload still produces one zero-length chunk so recipients
// see a single expected chunk rather than none.
func Chunk(payload []byte, size int) ([][]byte, []ChunkInfo) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	complete := hashHex(payload)

	var pieces [][]byte
	for start := 0; start < len(payload); start += size {
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}
		pieces = append(pieces, payload[start:end])
	}
	if len(pieces) == 0 {
		pieces = [][]byte{{}}
	}

	infos := make([]ChunkInfo, len(pieces))
	for i, p := range pieces {
		infos[i] = ChunkInfo{
			Index:        i,
			Total:        len(pieces),
			Size:         len(p),
			ChunkHash:    hashHex(p),
			CompleteHash: complete,
		}
	}
	return pieces, infos
}

// Reassemble concatenates pieces in index order and verifies each chunk hash
// plus the overall completeHash recorded in infos.
func Reassemble(pieces map[int][]byte, infos []ChunkInfo) ([]byte, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("channel: no chunk metadata to reassemble against")
	}
	total := infos[0].Total
	buf := make([]byte, 0, total*DefaultChunkSize)
	for i := 0; i < total; i++ {
		piece, ok := pieces[i]
		if !ok {
			return nil, fmt.Errorf("channel: missing chunk %d of %d", i, total)
		}
		if hashHex(piece) != infos[i].ChunkHash {
			return nil, fmt.Errorf("channel: chunk %d hash mismatch", i)
		}
		buf = append(buf, piece...)
	}
	if hashHex(buf) != infos[0].CompleteHash {
		return nil, fmt.Errorf("channel: reassembled payload hash mismatch")
	}
	return buf, nil
}

// MissingChunks reports which of infos' indices are absent from received.
func MissingChunks(infos []ChunkInfo, received map[int][]byte) []int {
	var missing []int
	for _, info := range infos {
		if _, ok := received[info.Index]; !ok {
			missing = append(missing, info.Index)
		}
	}
	return missing
}

// CompressGzip compresses payload; used when Frame.Compression == CompressionGzip.
func CompressGzip(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressGzip reverses CompressGzip.
func DecompressGzip(payload []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
