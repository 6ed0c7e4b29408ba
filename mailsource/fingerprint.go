package mailsource

import (
	"encoding/hex"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

// fingerprintWidth is the number of hash bytes kept for the file-name
// fingerprint. 16 bytes of blake3 output is ample for dedup while keeping
// archive file names readable.
const fingerprintWidth = 16

// Fingerprint computes the deterministic content hash used to build
// collision-free archive file names. It covers the message-identifying
// fields only, so re-running over the same store reproduces the same names
// byte for byte.
func Fingerprint(msg *MessageRecord) string {
	var b strings.Builder
	b.WriteString(msg.MessageClass)
	b.WriteByte(0)
	b.WriteString(msg.Subject)
	b.WriteByte(0)
	b.WriteString(msg.Sender)
	b.WriteByte(0)
	if msg.ReceivedTime != nil {
		b.WriteString(msg.ReceivedTime.UTC().Format(time.RFC3339))
	}
	b.WriteByte(0)
	for _, r := range msg.Recipients {
		b.WriteString(r.Name)
		b.WriteByte(0)
	}

	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:fingerprintWidth])
}
