// Package uuid provides UUID v7 generation.
// UUID v7 is sortable by timestamp, which keeps session and turn identifiers
// in insertion order under database indexes.
package uuid

import (
	"crypto/rand"
	"fmt"
)

// UUID represents a UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 per RFC 9562:
// 48 bits of millisecond UNIX timestamp, then version/variant bits,
// the rest filled from crypto/rand.
func NewV7() UUID {
	var u UUID
	_, _ = rand.Read(u[:]) // crypto/rand.Read never fails on supported platforms

	now := nowMillis()
	u[0] = byte(now >> 40)
	u[1] = byte(now >> 32)
	u[2] = byte(now >> 24)
	u[3] = byte(now >> 16)
	u[4] = byte(now >> 8)
	u[5] = byte(now)

	u[6] = 0x70 | (u[6] & 0x0f) // version 7
	u[7] = 0x80 | (u[7] & 0x3f) // RFC 4122 variant

	return u
}

// NewString is shorthand for NewV7().String().
func NewString() string {
	return NewV7().String()
}

// String returns the UUID in standard form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4],
		u[4:6],
		u[6:8],
		u[8:10],
		u[10:16],
	)
}
