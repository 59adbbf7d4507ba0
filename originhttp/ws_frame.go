package originhttp

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/coriolis-labs/originhttp/internal/wire"
)

var framePool bytebufferpool.Pool

// readWSFrame parses one inbound frame off s, in the exact byte order
// spec.md §4.6 specifies. If the declared payload length exceeds
// maxPayload, it returns (nil, StatusPayloadToBig, nil): the caller
// closes the connection with that status without treating it as an I/O
// error.
func readWSFrame(s Stream, maxPayload int64) (*WSFrame, WSStatusCode, error) {
	hdr, err := wire.ReadExact(s, 2)
	if err != nil {
		return nil, 0, err
	}
	f := &WSFrame{
		Fin:    hdr[0]&0x80 != 0,
		Rsv1:   hdr[0]&0x40 != 0,
		Rsv2:   hdr[0]&0x20 != 0,
		Rsv3:   hdr[0]&0x10 != 0,
		Opcode: WSOpCode(hdr[0] & 0x0F),
		Mask:   hdr[1]&0x80 != 0,
	}
	len7 := hdr[1] & 0x7F

	switch {
	case len7 == 126:
		ext, err := wire.ReadExact(s, 2)
		if err != nil {
			return nil, 0, err
		}
		f.PayloadLen = uint64(binary.BigEndian.Uint16(ext))
	case len7 == 127:
		ext, err := wire.ReadExact(s, 8)
		if err != nil {
			return nil, 0, err
		}
		f.PayloadLen = binary.BigEndian.Uint64(ext)
	default:
		f.PayloadLen = uint64(len7)
	}

	if maxPayload > 0 && f.PayloadLen > uint64(maxPayload) {
		return nil, StatusPayloadToBig, nil
	}

	if f.Mask {
		mk, err := wire.ReadExact(s, 4)
		if err != nil {
			return nil, 0, err
		}
		copy(f.MaskKey[:], mk)
	}

	if f.PayloadLen > 0 {
		payload, err := wire.ReadExact(s, int64(f.PayloadLen))
		if err != nil {
			return nil, 0, err
		}
		f.Payload = payload
	}

	if f.Mask {
		unmask(f.Payload, f.MaskKey)
	}

	return f, 0, nil
}

// unmask applies RFC 6455 §5.3 XOR masking/unmasking in place: it is its
// own inverse, so the same function decodes an inbound masked payload and
// (in the self-test-only masked-send path) encodes an outbound one.
func unmask(payload []byte, key [4]byte) {
	for i := range payload {
		payload[i] ^= key[i%4]
	}
}

// writeWSFrame serializes f and writes it to s. The server always sends
// unmasked frames (masked=false); masked=true is exercised only by
// self-tests exercising the round-trip codec against itself.
func writeWSFrame(s Stream, f *WSFrame, masked bool) error {
	buf := framePool.Get()
	defer framePool.Put(buf)

	var b0 byte
	if f.Fin {
		b0 |= 0x80
	}
	if f.Rsv1 {
		b0 |= 0x40
	}
	if f.Rsv2 {
		b0 |= 0x20
	}
	if f.Rsv3 {
		b0 |= 0x10
	}
	b0 |= byte(f.Opcode) & 0x0F
	buf.WriteByte(b0)

	payloadLen := uint64(len(f.Payload))
	f.PayloadLen = payloadLen

	var b1 byte
	if masked {
		b1 |= 0x80
	}
	switch {
	case payloadLen < 126:
		buf.WriteByte(b1 | byte(payloadLen))
	case payloadLen <= 0xFFFF:
		buf.WriteByte(b1 | 126)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(payloadLen))
		buf.Write(ext[:])
	default:
		buf.WriteByte(b1 | 127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], payloadLen)
		buf.Write(ext[:])
	}

	payload := f.Payload
	if masked {
		var key [4]byte
		if _, err := rand.Read(key[:]); err != nil {
			return errors.Wrap(err, "originhttp: generating mask key")
		}
		buf.Write(key[:])
		masked := make([]byte, len(payload))
		copy(masked, payload)
		unmask(masked, key)
		payload = masked
	}
	if len(payload) > 0 {
		buf.Write(payload)
	}

	if _, err := s.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "originhttp: writing websocket frame")
	}
	return nil
}
