// Package transport implements the downstream wire encoding of spec §6
// (credit-based backpressure lives in stepgen.Horizon). The framing (length-prefixed,
// CRC16-checked messages carrying VLQ-encoded integers) is adapted directly
// from the teacher's Klipper-style protocol package, retargeted from MCU
// command/response RPC onto this repository's own wire records:
// motion.StepEvent and motion.Diagnostic.
package transport

import "motioncore/mcerr"

// EncodeVLQInt appends v to buf using Klipper's signed variable-length
// quantity encoding: the smallest number of 7-bits-per-byte groups, most
// significant group first, continuation bit 0x80 on every byte but the
// last.
func EncodeVLQInt(buf []byte, v int32) []byte {
	if !(-(1 << 26) <= v && v < (3 << 26)) {
		buf = append(buf, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1 << 19) <= v && v < (3 << 19)) {
		buf = append(buf, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1 << 12) <= v && v < (3 << 12)) {
		buf = append(buf, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1 << 5) <= v && v < (3 << 5)) {
		buf = append(buf, byte((v>>7)&0x7F)|0x80)
	}
	return append(buf, byte(v&0x7F))
}

// EncodeVLQInt64 splits a 64-bit value into two VLQ32 groups (high then
// low), since step timestamps in nanoseconds overflow int32 within a
// handful of seconds.
func EncodeVLQInt64(buf []byte, v int64) []byte {
	buf = EncodeVLQInt(buf, int32(v>>32))
	return EncodeVLQInt(buf, int32(v))
}

// DecodeVLQInt decodes one VLQ-encoded signed integer from the front of
// data, returning the value and the remaining slice.
func DecodeVLQInt(data []byte) (int32, []byte, error) {
	if len(data) == 0 {
		return 0, nil, mcerr.New(mcerr.InvalidArgument, "vlq: empty buffer")
	}
	c := uint32(data[0])
	data = data[1:]
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	for c&0x80 != 0 {
		if len(data) == 0 {
			return 0, nil, mcerr.New(mcerr.InvalidArgument, "vlq: truncated buffer")
		}
		c = uint32(data[0])
		data = data[1:]
		v = (v << 7) | (c & 0x7F)
	}
	return int32(v), data, nil
}

// DecodeVLQInt64 is the inverse of EncodeVLQInt64.
func DecodeVLQInt64(data []byte) (int64, []byte, error) {
	hi, data, err := DecodeVLQInt(data)
	if err != nil {
		return 0, nil, err
	}
	lo, data, err := DecodeVLQInt(data)
	if err != nil {
		return 0, nil, err
	}
	return int64(hi)<<32 | int64(uint32(lo)), data, nil
}

// CRC16 computes the same CRC16 checksum Klipper/Anchor frames use.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}
