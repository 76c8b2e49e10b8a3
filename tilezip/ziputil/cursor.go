package ziputil

import (
	"encoding/binary"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
)

// ReadU16 reads a little-endian uint16 at pos.
func ReadU16(buf []byte, pos int) (uint16, error) {
	b, err := ReadBytes(buf, pos, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32 at pos.
func ReadU32(buf []byte, pos int) (uint32, error) {
	b, err := ReadBytes(buf, pos, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadBytes returns buf[pos:pos+length]. The result aliases buf; callers
// must copy it before mutating.
func ReadBytes(buf []byte, pos, length int) ([]byte, error) {
	if pos < 0 || length < 0 || pos > len(buf) || length > len(buf)-pos {
		return nil, tzerrors.NewOutOfBoundsError(pos, length, len(buf))
	}
	return buf[pos : pos+length : pos+length], nil
}
