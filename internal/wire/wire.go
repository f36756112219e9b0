// Package wire frames cached values before they reach the backend.
//
// The envelope lets the cache tell its own entries apart from foreign or
// truncated writes sharing the same backend: anything that fails framing is
// treated as corrupt, deleted on read, and reported as a miss.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("frontcache: corrupt entry")
	magic4     = [...]byte{'F', 'C', 'H', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Envelope: magic(4) | ver(1) | tier(1) | vlen(u32 be) | payload(vlen)
//
// tier records the TTL tier the entry was written with. The cache never
// derives expiry from it (the backend owns expiry); it exists for
// diagnostics only.
func EncodeValue(tier byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(tier)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeValue validates framing strictly: bad magic, unknown version, a
// length field disagreeing with the buffer, or trailing bytes all yield
// ErrCorrupt.
func DecodeValue(b []byte) (tier byte, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}

	tier = b[5]
	off := 6

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || off+vlen != len(b) { // reject truncation and trailing junk
		return 0, nil, ErrCorrupt
	}

	return tier, b[off : off+vlen], nil
}
