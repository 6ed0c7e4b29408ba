package perms

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// aclXattrName is the extended attribute carrying the archiver's access
// rules on POSIX filesystems. Deployments exporting the archive over SMB
// translate these to share-level ACLs out of band.
const aclXattrName = "user.mailarc.acl"

// OSFilesystem implements Filesystem on the local filesystem, storing access
// rules as a JSON-encoded extended attribute.
type OSFilesystem struct{}

func (OSFilesystem) EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

func (OSFilesystem) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFilesystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

func (OSFilesystem) ReadACL(path string) (*ACLSet, error) {
	size, err := unix.Getxattr(path, aclXattrName, nil)
	if err == unix.ENODATA {
		return &ACLSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read acl of %s: %w", path, err)
	}

	buf := make([]byte, size)
	n, err := unix.Getxattr(path, aclXattrName, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read acl of %s: %w", path, err)
	}

	var acl ACLSet
	if err := json.Unmarshal(buf[:n], &acl); err != nil {
		return nil, fmt.Errorf("corrupt acl attribute on %s: %w", path, err)
	}
	return &acl, nil
}

func (OSFilesystem) WriteACL(path string, acl *ACLSet) error {
	data, err := json.Marshal(acl)
	if err != nil {
		return fmt.Errorf("failed to encode acl for %s: %w", path, err)
	}
	if err := unix.Setxattr(path, aclXattrName, data, 0); err != nil {
		return fmt.Errorf("failed to write acl of %s: %w", path, err)
	}
	return nil
}
