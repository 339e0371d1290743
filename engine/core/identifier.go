package core

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// NewUniqueID folds a random UUID into 64 bits. Zero is never returned so that
// callers can keep it as their invalid sentinel.
func NewUniqueID() uint64 {
	for {
		u := uuid.New()
		id := binary.LittleEndian.Uint64(u[:8]) ^ binary.LittleEndian.Uint64(u[8:])
		if id != 0 {
			return id
		}
	}
}
