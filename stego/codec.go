package stego

import (
	"encoding/binary"
	"hash/crc32"
	"image"
	"math"

	ledgererr "github.com/mezonai/vessel/errors"
)

const (
	lengthBits       = 32
	crcBits          = 32
	channelsPerPixel = 3

	// MaxPayloadBytes is the largest length the 32-bit header can declare
	MaxPayloadBytes = math.MaxUint32
)

// RequiredBits is the number of channel bits a payload of n bytes occupies
func RequiredBits(n uint64) uint64 {
	return lengthBits + 8*n + crcBits
}

// Capacity is the number of channel bits img offers: width * height * 3
func Capacity(img image.Image) uint64 {
	b := img.Bounds()
	return uint64(b.Dx()) * uint64(b.Dy()) * channelsPerPixel
}

// MaxPayload is the largest payload, in bytes, that fits in img
func MaxPayload(img image.Image) uint64 {
	c := Capacity(img)
	if c < lengthBits+crcBits {
		return 0
	}
	return (c - lengthBits - crcBits) / 8
}

// newFrame builds the length-prefixed, CRC-terminated byte sequence that is
// embedded for payload.
func newFrame(payload []byte) []byte {
	frame := make([]byte, 4+len(payload)+4)
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	binary.BigEndian.PutUint32(frame[4+len(payload):], crc32.ChecksumIEEE(payload))
	return frame
}

// Encode returns a copy of cover whose channel LSBs carry payload. Channels past
// the frame, and every alpha sample, are left byte-for-byte unchanged. The cover
// itself is never modified.
func Encode(cover image.Image, payload []byte) (image.Image, error) {
	required := RequiredBits(uint64(len(payload)))
	available := Capacity(cover)
	if uint64(len(payload)) > MaxPayloadBytes || required > available {
		return nil, ledgererr.NewCapacityError(required, available)
	}

	out, buf, err := cloneBuffer(cover)
	if err != nil {
		return nil, err
	}

	w := bitWriter{buf: buf}
	w.writeBytes(newFrame(payload))
	return out, nil
}

// Decode extracts the payload embedded by Encode. A length header that points
// past the end of the image is a CapacityError; a CRC mismatch is an
// IntegrityError.
func Decode(img image.Image) ([]byte, error) {
	buf, err := viewBuffer(img)
	if err != nil {
		return nil, err
	}

	available := buf.capacity()
	if available < lengthBits+crcBits {
		return nil, ledgererr.NewCapacityError(lengthBits+crcBits, available)
	}

	r := bitReader{buf: buf}
	declared := r.readUint32()
	required := RequiredBits(uint64(declared))
	if required > available {
		return nil, ledgererr.NewDeclaredLengthError(declared, required, available)
	}

	payload := r.readBytes(uint64(declared))
	stored := r.readUint32()
	if computed := crc32.ChecksumIEEE(payload); computed != stored {
		return nil, ledgererr.NewIntegrityError(stored, computed)
	}
	return payload, nil
}

// Inspect reads only the length header, for diagnostics on damaged images
func Inspect(img image.Image) (declared uint32, available uint64, err error) {
	buf, err := viewBuffer(img)
	if err != nil {
		return 0, 0, err
	}
	available = buf.capacity()
	if available < lengthBits {
		return 0, available, ledgererr.NewCapacityError(lengthBits, available)
	}
	r := bitReader{buf: buf}
	return r.readUint32(), available, nil
}
