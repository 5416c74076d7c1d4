// Package protocol implements the framed command link between the host
// tools and the ramp firmware: Klipper-style message blocks carrying VLQ
// encoded commands.
package protocol

// Version of the command set. Bumped when a message layout changes.
const Version = "1"

// Message block layout: [len][seq][payload...][crc hi][crc lo][sync]
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// High bits of every sequence byte.
	MessageDest    = 0x10
	MessageSeqMask = 0x0F
)

// NextSeq returns the sequence byte following seq.
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
