package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// maxVLQLen is the longest encoding of a 32-bit value.
const maxVLQLen = 5

// AppendVLQInt appends v in Klipper's VLQ encoding: big-endian 7-bit
// groups, continuation bit set on all but the last, and a biased range
// per length so small negative values stay short.
func AppendVLQInt(dst []byte, v int32) []byte {
	for shift := uint(28); shift >= 7; shift -= 7 {
		lim := int32(1) << (shift - 2)
		if v < -lim || v >= 3*lim {
			dst = append(dst, byte(v>>shift)&0x7F|0x80)
		}
	}
	return append(dst, byte(v)&0x7F)
}

// AppendVLQUint appends v, reinterpreted as signed like Klipper does.
func AppendVLQUint(dst []byte, v uint32) []byte {
	return AppendVLQInt(dst, int32(v))
}

// EncodeVLQInt writes v to output.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [maxVLQLen]byte
	output.Output(AppendVLQInt(buf[:0], v))
}

// EncodeVLQUint writes v to output.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes one value and advances data past it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}
	c := uint32(buf[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	i := 1
	for c&0x80 != 0 {
		if i == len(buf) {
			return 0, ErrBufferTooSmall
		}
		if i == maxVLQLen {
			return 0, ErrInvalidVLQ
		}
		c = uint32(buf[i])
		v = v<<7 | c&0x7F
		i++
	}
	*data = buf[i:]
	return int32(v), nil
}

// DecodeVLQUint decodes one value and advances data past it.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}
