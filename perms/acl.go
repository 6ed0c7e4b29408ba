// Package perms reconciles file access-control lists with the recipient set
// of each archived message. Reconciliation is monotonic: entries recorded by
// earlier runs are preserved and only missing required entries are added.
package perms

// RightsReadExecute is the single permission this system grants. The model
// deliberately has no other rights; archived mail is read-only for everyone
// but the archiver itself.
const RightsReadExecute = "read-execute"

// Entry grants one named account a fixed permission on a file.
type Entry struct {
	Account string `json:"account"`
	Rights  string `json:"rights"`
}

// ACLSet is the ordered list of access rules attached to a file. Ownership
// and audit data are outside this model on purpose; the reconciler must not
// touch them.
type ACLSet struct {
	Entries []Entry `json:"entries"`
}

// HasAccount reports whether an entry for the account already exists.
func (s *ACLSet) HasAccount(account string) bool {
	for _, e := range s.Entries {
		if e.Account == account {
			return true
		}
	}
	return false
}

// Add appends an allow entry unless the account already has one, keeping the
// at-most-one-entry-per-account invariant.
func (s *ACLSet) Add(account, rights string) bool {
	if s.HasAccount(account) {
		return false
	}
	s.Entries = append(s.Entries, Entry{Account: account, Rights: rights})
	return true
}

// remove drops the entry for an account. Used only to back out an entry
// whose persist failed; reconciliation itself never removes entries.
func (s *ACLSet) remove(account string) {
	for i, e := range s.Entries {
		if e.Account == account {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return
		}
	}
}

// Filesystem is the file-store surface the archiver needs: directory
// creation, existence checks, and ACL read/write. ReadACL returns only
// access rules, never the full security descriptor.
type Filesystem interface {
	EnsureDirectory(path string) error
	FileExists(path string) bool
	WriteFile(path string, data []byte) error
	ReadACL(path string) (*ACLSet, error)
	WriteACL(path string, acl *ACLSet) error
}
