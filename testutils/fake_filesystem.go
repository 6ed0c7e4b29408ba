package testutils

import (
	"fmt"

	"github.com/mailarc/mailarc/perms"
)

// FakeFilesystem is an in-memory perms.Filesystem with per-path ACL storage
// and injectable failures.
type FakeFilesystem struct {
	Files map[string][]byte
	Dirs  map[string]struct{}
	ACLs  map[string]*perms.ACLSet

	EnsureDirErr error
	WriteFileErr error
	ReadACLErr   error
	WriteACLErr  error

	// WriteACLFailFor fails WriteACL only while the set contains an entry
	// for this account, for exercising per-principal persist failures.
	WriteACLFailFor string

	WriteACLCalls int
}

func NewFakeFilesystem() *FakeFilesystem {
	return &FakeFilesystem{
		Files: make(map[string][]byte),
		Dirs:  make(map[string]struct{}),
		ACLs:  make(map[string]*perms.ACLSet),
	}
}

func (f *FakeFilesystem) EnsureDirectory(path string) error {
	if f.EnsureDirErr != nil {
		return f.EnsureDirErr
	}
	f.Dirs[path] = struct{}{}
	return nil
}

func (f *FakeFilesystem) FileExists(path string) bool {
	_, ok := f.Files[path]
	return ok
}

func (f *FakeFilesystem) WriteFile(path string, data []byte) error {
	if f.WriteFileErr != nil {
		return f.WriteFileErr
	}
	f.Files[path] = data
	return nil
}

func (f *FakeFilesystem) ReadACL(path string) (*perms.ACLSet, error) {
	if f.ReadACLErr != nil {
		return nil, f.ReadACLErr
	}
	stored, ok := f.ACLs[path]
	if !ok {
		return &perms.ACLSet{}, nil
	}
	// Return a copy so callers mutate their own working set.
	cp := &perms.ACLSet{Entries: append([]perms.Entry(nil), stored.Entries...)}
	return cp, nil
}

func (f *FakeFilesystem) WriteACL(path string, acl *perms.ACLSet) error {
	f.WriteACLCalls++
	if f.WriteACLErr != nil {
		return f.WriteACLErr
	}
	if f.WriteACLFailFor != "" && acl.HasAccount(f.WriteACLFailFor) {
		return fmt.Errorf("simulated acl write failure for %s", f.WriteACLFailFor)
	}
	f.ACLs[path] = &perms.ACLSet{Entries: append([]perms.Entry(nil), acl.Entries...)}
	return nil
}
