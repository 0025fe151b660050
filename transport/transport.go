package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"

	"motioncore/mcerr"
	"motioncore/motion"
)

const (
	msgStepEvent  byte = 1
	msgDiagnostic byte = 2

	// velocityScale fixes six decimal digits of precision when packing a
	// float64 velocity/duration into a VLQ integer.
	velocityScale = 1e6
)

// EncodeStepEvent appends the wire payload (message tag + fields) for ev to
// buf, without framing.
func EncodeStepEvent(buf []byte, ev motion.StepEvent) []byte {
	buf = append(buf, msgStepEvent)
	buf = EncodeVLQInt(buf, int32(ev.MotorID))
	dir := byte(0)
	if ev.Direction {
		dir = 1
	}
	if ev.Flush {
		dir |= 2
	}
	buf = append(buf, dir)
	buf = EncodeVLQInt64(buf, ev.TAbsNs)
	return buf
}

// EncodeDiagnostic appends the wire payload for a Diagnostic to buf.
func EncodeDiagnostic(buf []byte, d motion.Diagnostic) []byte {
	buf = append(buf, msgDiagnostic)
	buf = EncodeVLQInt64(buf, d.SeqID)
	buf = EncodeVLQInt(buf, int32(math.Round(d.PeakVelocity*velocityScale)))
	buf = EncodeVLQInt(buf, int32(math.Round(d.CruiseDurationSec*velocityScale)))
	buf = encodeString(buf, d.LimitingFactor)
	reduced := byte(0)
	if d.Reduced {
		reduced = 1
	}
	buf = append(buf, reduced)
	buf = encodeString(buf, d.Message)
	return buf
}

func encodeString(buf []byte, s string) []byte {
	buf = EncodeVLQInt(buf, int32(len(s)))
	return append(buf, s...)
}

func decodeString(data []byte) (string, []byte, error) {
	n, data, err := DecodeVLQInt(data)
	if err != nil {
		return "", nil, err
	}
	if n < 0 || int(n) > len(data) {
		return "", nil, mcerr.New(mcerr.InvalidArgument, "wire: string length %d exceeds buffer", n)
	}
	return string(data[:n]), data[n:], nil
}

// DecodeMessage decodes one tagged payload (without its frame) into either a
// *motion.StepEvent or a *motion.Diagnostic.
func DecodeMessage(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, mcerr.New(mcerr.InvalidArgument, "wire: empty message")
	}
	tag, data := data[0], data[1:]
	switch tag {
	case msgStepEvent:
		motorID, data, err := DecodeVLQInt(data)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, mcerr.New(mcerr.InvalidArgument, "wire: truncated step event")
		}
		flags := data[0]
		data = data[1:]
		tAbs, _, err := DecodeVLQInt64(data)
		if err != nil {
			return nil, err
		}
		return &motion.StepEvent{
			MotorID:   int(motorID),
			Direction: flags&1 != 0,
			Flush:     flags&2 != 0,
			TAbsNs:    tAbs,
		}, nil
	case msgDiagnostic:
		seqID, data, err := DecodeVLQInt64(data)
		if err != nil {
			return nil, err
		}
		peakI, data, err := DecodeVLQInt(data)
		if err != nil {
			return nil, err
		}
		cruiseI, data, err := DecodeVLQInt(data)
		if err != nil {
			return nil, err
		}
		limiter, data, err := decodeString(data)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, mcerr.New(mcerr.InvalidArgument, "wire: truncated diagnostic")
		}
		reduced := data[0] != 0
		data = data[1:]
		msg, _, err := decodeString(data)
		if err != nil {
			return nil, err
		}
		return &motion.Diagnostic{
			SeqID:             seqID,
			PeakVelocity:      float64(peakI) / velocityScale,
			CruiseDurationSec: float64(cruiseI) / velocityScale,
			LimitingFactor:    limiter,
			Reduced:           reduced,
			Message:           msg,
		}, nil
	default:
		return nil, mcerr.New(mcerr.InvalidArgument, "wire: unknown message tag %d", tag)
	}
}

// frame wraps a payload with a uint16 big-endian length prefix and a
// trailing CRC16, matching the teacher's MCU wire discipline.
func frame(w io.Writer, payload []byte) error {
	if len(payload) > math.MaxUint16 {
		return mcerr.New(mcerr.InvalidArgument, "wire: payload of %d bytes exceeds frame limit", len(payload))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	crc := CRC16(payload)
	var crcBuf [2]byte
	binary.BigEndian.PutUint16(crcBuf[:], crc)
	_, err := w.Write(crcBuf[:])
	return err
}

// readFrame reads one length-prefixed, CRC-checked payload from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	var crcBuf [2]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return nil, err
	}
	if want, got := binary.BigEndian.Uint16(crcBuf[:]), CRC16(payload); want != got {
		return nil, mcerr.New(mcerr.InvalidArgument, "wire: crc mismatch (frame %04x, computed %04x)", want, got)
	}
	return payload, nil
}

// Encoder is a controller.StepSink that frames and writes step events to an
// underlying io.Writer (a serial port, a socket, a file for replay).
// Diagnostics are written out-of-band via WriteDiagnostic on the same
// stream, distinguished by the leading message tag.
type Encoder struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewEncoder wraps w for buffered, framed writes. Send and WriteDiagnostic
// flush the buffer after every frame.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Send implements controller.StepSink.
func (e *Encoder) Send(_ context.Context, ev motion.StepEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	payload := EncodeStepEvent(nil, ev)
	if err := frame(e.w, payload); err != nil {
		return err
	}
	return e.w.Flush()
}

// WriteDiagnostic frames and writes a Diagnostic record to the stream.
func (e *Encoder) WriteDiagnostic(d motion.Diagnostic) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	payload := EncodeDiagnostic(nil, d)
	if err := frame(e.w, payload); err != nil {
		return err
	}
	return e.w.Flush()
}

// Decoder reads framed messages back into StepEvent/Diagnostic values, the
// inverse of Encoder — used by tests and by any offline replay tooling.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r for framed reads.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next reads and decodes the next frame, returning io.EOF when the stream
// is exhausted cleanly between frames.
func (d *Decoder) Next() (interface{}, error) {
	payload, err := readFrame(d.r)
	if err != nil {
		return nil, err
	}
	return DecodeMessage(payload)
}
