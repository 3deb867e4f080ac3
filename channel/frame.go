// Package channel defines the wire framing the transaction core is carried
// over, and the MessageChannel capability transport adapters implement. The
// core never depends on a concrete transport: it sends and receives Frames
// through whatever MessageChannel its caller constructs (QR, NFC, BLE, WS, ...).
package channel

import "time"

// FrameType distinguishes a data frame carrying a transaction payload from
// the ack/control frames the reliability layer uses to manage delivery.
type FrameType uint8

const (
	FrameData FrameType = iota
	FrameAck
	FrameControl
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameAck:
		return "ACK"
	case FrameControl:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Compression names the codec applied to Frame.Payload before it was chunked.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "NONE"
	case CompressionGzip:
		return "GZIP"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "UNKNOWN"
	}
}

// ProtocolVersion is the current wire version (spec §6); bumped only on a
// breaking change to Frame's shape.
const ProtocolVersion uint32 = 1

// ChunkInfo describes one piece of a payload split for partial retransmission.
type ChunkInfo struct {
	Index        int    `json:"index"`
	Total        int    `json:"total"`
	Size         int    `json:"size"`
	ChunkHash    string `json:"chunkHash"`
	CompleteHash string `json:"completeHash"`
}

// Frame is the wire-level envelope every transaction packet (and every
// ack/recovery record) travels in. It is JSON-serialized here; the spec
// calls the wire format "protocol-buffer-compatible", which this field set
// satisfies without requiring a .proto toolchain the core doesn't otherwise
// need.
type Frame struct {
	FrameID         string      `json:"frameId"`
	Type            FrameType   `json:"type"`
	Payload         []byte      `json:"payload"`
	TimestampMs     int64       `json:"timestampMs"`
	Compression     Compression `json:"compression"`
	Chunks          []ChunkInfo `json:"chunks,omitempty"`
	ProtocolVersion uint32      `json:"protocolVersion"`
	SequenceNumber  uint64      `json:"sequenceNumber"`
}

// NewDataFrame builds a single-chunk, uncompressed data frame carrying payload.
func NewDataFrame(frameID string, payload []byte, sequenceNumber uint64, now time.Time) Frame {
	return Frame{
		FrameID:         frameID,
		Type:            FrameData,
		Payload:         payload,
		TimestampMs:     now.UnixMilli(),
		Compression:     CompressionNone,
		ProtocolVersion: ProtocolVersion,
		SequenceNumber:  sequenceNumber,
	}
}

// Ack is the acknowledgement frame payload (spec §6): success, or a partial
// ack listing which chunk indices arrived so the sender retransmits only
// what's missing.
type Ack struct {
	FrameID         string `json:"frameId"`
	Success         bool   `json:"success"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	ReceivedChunks  []int  `json:"receivedChunks,omitempty"`
}

// RecoveryRequest asks the peer to retransmit the named chunks of frameId.
type RecoveryRequest struct {
	FrameID       string `json:"frameId"`
	MissingChunks []int  `json:"missingChunks"`
	SessionID     string `json:"sessionId"`
}

// Session is the resumable channel state (spec §6). Sessions default to a
// 24h lifetime; StateData is an opaque blob carried with the session that
// reliability.SessionManager neither reads nor writes.
type Session struct {
	SessionID        string    `json:"sessionId"`
	ResumptionToken  string    `json:"resumptionToken"`
	LastSequence     uint64    `json:"lastSequence"`
	ExpiresAt        time.Time `json:"expiresAt"`
	StateData        []byte    `json:"stateData,omitempty"`
}

// DefaultSessionTTL is the lifetime a freshly created Session is given.
const DefaultSessionTTL = 24 * time.Hour

// NewSession creates a session rooted at now with the default TTL.
func NewSession(sessionID, resumptionToken string, now time.Time) *Session {
	return &Session{
		SessionID:       sessionID,
		ResumptionToken: resumptionToken,
		ExpiresAt:       now.Add(DefaultSessionTTL),
	}
}

// Expired reports whether the session's TTL has elapsed as of now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
