package routing

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mailarc/mailarc/helpers"
	"github.com/mailarc/mailarc/mailsource"
)

const (
	// noDateSegment buckets messages without a received time; the leading
	// underscore keeps it sorted ahead of year-month directories.
	noDateSegment = "_no_date"

	// unknownSenderSegment is the fallback for blank senders. It carries the
	// external marker prefix on top of the base name, so unknown senders
	// sort within the flagged block of a directory listing.
	unknownSenderSegment = "__unknown_sender"

	// noSubjectStem names files whose subject scrubs down to nothing.
	noSubjectStem = "(No Subject)"

	subjectStemLimit = 50
)

// emailPattern is the strict address shape used to tell raw SMTP addresses
// from directory display names. Internal senders reach the archiver already
// rendered as display names; a value matching this pattern is therefore an
// external (non-domain) sender and gets the underscore marker so externals
// sort adjacent in the archive tree.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// DirEnsurer is the single filesystem capability the path builder needs.
type DirEnsurer interface {
	EnsureDirectory(path string) error
}

// Builder computes save paths under a fixed archive root.
type Builder struct {
	Root string
	FS   DirEnsurer
}

// BuildPath computes the save path for a message under its route, creates
// the directory, and records the path on the message. Deterministic: the
// same message and route always produce the same path.
func (b *Builder) BuildPath(route Route, msg *mailsource.MessageRecord) (string, error) {
	dir := b.Root
	if route.SavePathUseDate {
		dir = filepath.Join(dir, dateSegment(msg))
	}
	if route.SavePathUseSender {
		dir = filepath.Join(dir, SenderSegment(msg.Sender))
	}
	if route.StaticSuffix != "" {
		dir = filepath.Join(dir, route.StaticSuffix)
	}

	if err := b.FS.EnsureDirectory(dir); err != nil {
		return "", fmt.Errorf("failed to create archive directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName(route, msg))
	msg.ComputedFilePath = path
	return path, nil
}

func dateSegment(msg *mailsource.MessageRecord) string {
	if msg.ReceivedTime == nil {
		return noDateSegment
	}
	return fmt.Sprintf("%04d-%02d", msg.ReceivedTime.Year(), int(msg.ReceivedTime.Month()))
}

// SenderSegment normalizes a sender value into a directory name. Blank
// senders collapse to the unknown-sender bucket; raw email addresses are
// marked with a leading underscore; directory display names pass through
// with path-hostile characters stripped.
func SenderSegment(sender string) string {
	s := strings.TrimSpace(sender)
	if s == "" {
		return unknownSenderSegment
	}
	if emailPattern.MatchString(s) {
		s = "_" + s
	}
	s = helpers.StripPathChars(s)
	if s == "" || s == "_" {
		return unknownSenderSegment
	}
	return s
}

// FileName computes the deduplicating file name: a scrubbed subject stem
// qualified by the message's content fingerprint and the route's extension.
func FileName(route Route, msg *mailsource.MessageRecord) string {
	stem := helpers.ScrubSubject(helpers.TruncateRunes(msg.Subject, subjectStemLimit))
	if stem == "" {
		stem = noSubjectStem
	}
	return stem + "." + msg.Fingerprint + route.FileExtension
}
