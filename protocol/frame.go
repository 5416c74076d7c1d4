package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("frame exceeds maximum message length")
	ErrBadLength    = errors.New("invalid frame length")
	ErrBadSequence  = errors.New("invalid sequence byte")
	ErrNoSync       = errors.New("missing sync byte")
	ErrBadCRC       = errors.New("frame CRC mismatch")
)

// Frame is one decoded message block.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// IsAck reports whether f carries no commands. Receivers answer every
// block with one of these, holding the next sequence they expect.
func (f Frame) IsAck() bool { return len(f.Payload) == 0 }

// AppendFrame wraps payload in a message block and appends it to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	msgLen := MessageLengthMin + len(payload)
	if msgLen > MessageLengthMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, byte(msgLen), seq&MessageSeqMask|MessageDest)
	dst = append(dst, payload...)
	dst = appendCRC(dst, CRC16(dst[start:]))
	return append(dst, MessageValueSync), nil
}

// AppendAck appends an empty block carrying seq.
func AppendAck(dst []byte, seq uint8) []byte {
	dst, _ = AppendFrame(dst, seq, nil)
	return dst
}

// ParseFrame decodes the block at the start of data and returns the
// number of bytes it occupies. A zero count with a nil error means data
// holds a partial block. On error the caller resynchronizes by skipping to
// the next sync byte. The payload aliases data.
func ParseFrame(data []byte) (Frame, int, error) {
	if len(data) < MessageLengthMin {
		return Frame{}, 0, nil
	}
	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Frame{}, 0, ErrBadLength
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Frame{}, 0, ErrBadSequence
	}
	if len(data) < msgLen {
		return Frame{}, 0, nil
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return Frame{}, 0, ErrNoSync
	}
	want := uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1])
	if CRC16(data[:msgLen-MessageTrailerSize]) != want {
		return Frame{}, 0, ErrBadCRC
	}
	return Frame{
		Seq:     seq,
		Payload: data[MessageHeaderSize : msgLen-MessageTrailerSize],
	}, msgLen, nil
}

// SkipToSync returns how many bytes to drop to get past the next sync
// byte, or len(data) when there is none.
func SkipToSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i + 1
		}
	}
	return len(data)
}
