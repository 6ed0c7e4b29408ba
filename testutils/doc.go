// Package testutils provides testing utilities shared across the mailarc
// test suites.
//
// Key components:
//   - FakeDirectory: an in-memory directory.Client with controllable
//     replication-lag visibility, for exercising the convergence poll
//   - FakeFilesystem: an in-memory perms.Filesystem with per-path ACL
//     storage and injectable failures
//
// Example usage:
//
//	import "github.com/mailarc/mailarc/testutils"
//
//	func TestProvisioning(t *testing.T) {
//		dir := testutils.NewFakeDirectory()
//		dir.VisibilityDelay = 2 // visible after two reads
//		// ...
//	}
package testutils
