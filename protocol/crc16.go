package protocol

// CRC16 is the CRC-16/MCRF4XX checksum (poly 0x1021 reflected, init
// 0xFFFF) that Klipper puts in every message block trailer.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc)
		b ^= b << 4
		w := uint16(b)
		crc = (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
	}
	return crc
}

func appendCRC(dst []byte, crc uint16) []byte {
	return append(dst, byte(crc>>8), byte(crc))
}
