// Package mailsource provides the message-store access surface for the
// archiver: a normalized per-item MessageRecord, the Source interface the
// core iterates over, and implementations for IMAP stores, mbox archives,
// and directories of .eml files.
package mailsource

import (
	"context"
	"time"
)

// RecipientRef is either a resolved directory display name or a recorded
// distribution-list expansion failure. Distribution lists are pre-expanded by
// the source; the core never sees nested lists.
type RecipientRef struct {
	Name          string
	Resolved      bool
	FailureReason string
}

// Resolved returns a recipient reference for a resolved display name.
func ResolvedRecipient(name string) RecipientRef {
	return RecipientRef{Name: name, Resolved: true}
}

// FailedRecipient returns a reference recording an expansion failure.
func FailedRecipient(name, reason string) RecipientRef {
	return RecipientRef{Name: name, FailureReason: reason}
}

// MessageRecord is the normalized view of one source item. It is owned by
// the processing of that single item and discarded afterwards.
type MessageRecord struct {
	// ID is the source-internal handle used for deletion: a file path for
	// directory sources, a message index for mbox, a UID for IMAP.
	ID     string
	Folder string

	MessageClass string
	Subject      string
	Sender       string // display name or address; empty when unknown
	ReceivedTime *time.Time
	Recipients   []RecipientRef

	Body        []byte
	BodyPreview string

	// Fingerprint is the deterministic content hash assigned by the source.
	Fingerprint string

	// ComputedFilePath is assigned by the path builder once a route resolves.
	ComputedFilePath string
}

// ResolvedRecipients returns the names of all successfully expanded
// recipients, in order.
func (m *MessageRecord) ResolvedRecipients() []string {
	names := make([]string, 0, len(m.Recipients))
	for _, r := range m.Recipients {
		if r.Resolved {
			names = append(names, r.Name)
		}
	}
	return names
}

// Source is a message store opened for one archival run.
//
// Attach and Detach failures are fatal to the run. Walk yields messages one
// at a time in store order; returning an error from the callback stops the
// walk and propagates the error.
type Source interface {
	Attach(ctx context.Context) error
	Detach() error
	Count(ctx context.Context, folder string) (int, error)
	Walk(ctx context.Context, folder string, fn func(*MessageRecord) error) error
	Delete(ctx context.Context, msg *MessageRecord) error
}
