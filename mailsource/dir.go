package mailsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mailarc/mailarc/consts"
)

// DirSource reads messages from a directory tree of .eml files: one
// subdirectory per folder, one file per message. Deletion removes the file.
type DirSource struct {
	root     string
	attached bool
}

// NewDirSource returns a source rooted at the given directory.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Attach verifies the root directory exists.
func (s *DirSource) Attach(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("%w: %s", consts.ErrStoreNotFound, s.root)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", consts.ErrStoreNotFound, s.root)
	}
	s.attached = true
	return nil
}

// Detach releases the source. A directory source holds no resources.
func (s *DirSource) Detach() error {
	s.attached = false
	return nil
}

// Count reports the number of .eml files in the folder.
func (s *DirSource) Count(ctx context.Context, folder string) (int, error) {
	files, err := s.list(folder)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// Walk yields each message in the folder in lexical file order, so a run
// over an unchanged store visits items deterministically.
func (s *DirSource) Walk(ctx context.Context, folder string, fn func(*MessageRecord) error) error {
	files, err := s.list(folder)
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rec := &MessageRecord{ID: path, Folder: folder}
		parseRaw(raw, rec)
		rec.Fingerprint = Fingerprint(rec)

		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the message file from the store.
func (s *DirSource) Delete(ctx context.Context, msg *MessageRecord) error {
	if err := os.Remove(msg.ID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", msg.ID, err)
	}
	return nil
}

func (s *DirSource) list(folder string) ([]string, error) {
	dir := filepath.Join(s.root, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", consts.ErrFolderNotFound, dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".eml") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
