package httpx

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// genID returns an identifier used to tag a connection's log lines.
func genID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	// Fallback to timestamp-based ID if rand fails (unlikely)
	t := time.Now().UnixNano()
	var fb [16]byte
	for i := 0; i < 16; i++ {
		fb[i] = byte(t >> (uint(i%8) * 8))
	}
	return hex.EncodeToString(fb[:])
}
