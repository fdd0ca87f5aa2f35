// utils/ids.go
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewOfflineID generates a locally-unique identifier for records created
// while offline (e.g. "player_1712345678901_a3f9c1"). Collision-resistant
// within a device's lifetime; superseded by a remote-assigned id once
// reconciliation succeeds.
func NewOfflineID(prefix string) string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
