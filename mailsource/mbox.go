package mailsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/mailarc/mailarc/consts"
)

// MboxFolder is the single logical folder an mbox archive exposes.
const MboxFolder = "INBOX"

// MboxSource reads messages from a single mbox file. The whole archive
// appears as one folder. Deletions are collected during the run and applied
// on Detach by rewriting the mbox without the deleted items, so the source
// file is never left half-compacted.
type MboxSource struct {
	path    string
	deleted map[int]struct{}
}

// NewMboxSource returns a source over the given mbox file.
func NewMboxSource(path string) *MboxSource {
	return &MboxSource{path: path, deleted: make(map[int]struct{})}
}

// Attach verifies the mbox file exists.
func (s *MboxSource) Attach(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %s", consts.ErrStoreNotFound, s.path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", consts.ErrStoreNotFound, s.path)
	}
	return nil
}

// Detach compacts the mbox if any messages were deleted during the run.
func (s *MboxSource) Detach() error {
	if len(s.deleted) == 0 {
		return nil
	}
	if err := s.compact(); err != nil {
		return fmt.Errorf("failed to compact mbox after deletions: %w", err)
	}
	s.deleted = make(map[int]struct{})
	return nil
}

// Count reports the number of messages in the archive.
func (s *MboxSource) Count(ctx context.Context, folder string) (int, error) {
	if folder != MboxFolder {
		return 0, fmt.Errorf("%w: %s", consts.ErrFolderNotFound, folder)
	}
	count := 0
	err := s.scan(func(int, []byte) error {
		count++
		return nil
	})
	return count, err
}

// Walk yields each message in archive order.
func (s *MboxSource) Walk(ctx context.Context, folder string, fn func(*MessageRecord) error) error {
	if folder != MboxFolder {
		return fmt.Errorf("%w: %s", consts.ErrFolderNotFound, folder)
	}
	return s.scan(func(index int, raw []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := &MessageRecord{ID: strconv.Itoa(index), Folder: folder}
		parseRaw(raw, rec)
		rec.Fingerprint = Fingerprint(rec)
		return fn(rec)
	})
}

// Delete marks the message for removal on Detach.
func (s *MboxSource) Delete(ctx context.Context, msg *MessageRecord) error {
	index, err := strconv.Atoi(msg.ID)
	if err != nil {
		return fmt.Errorf("not an mbox message id: %q", msg.ID)
	}
	s.deleted[index] = struct{}{}
	return nil
}

func (s *MboxSource) scan(fn func(index int, raw []byte) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open mbox %s: %w", s.path, err)
	}
	defer f.Close()

	reader := mbox.NewReader(f)
	for index := 0; ; index++ {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read mbox message %d: %w", index, err)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			return fmt.Errorf("failed to read mbox message %d body: %w", index, err)
		}
		if err := fn(index, raw); err != nil {
			return err
		}
	}
}

// compact rewrites the mbox skipping deleted messages, then atomically
// replaces the original.
func (s *MboxSource) compact() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mailarc-compact-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := mbox.NewWriter(tmp)
	err = s.scan(func(index int, raw []byte) error {
		if _, gone := s.deleted[index]; gone {
			return nil
		}
		w, err := writer.CreateMessage("", time.Time{})
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	})
	if err != nil {
		tmp.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
