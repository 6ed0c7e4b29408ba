package perms

import (
	"context"

	"github.com/mailarc/mailarc/consts"
	"github.com/mailarc/mailarc/directory"
	"github.com/mailarc/mailarc/logger"
	"github.com/mailarc/mailarc/mailsource"
	"github.com/mailarc/mailarc/metrics"
	"github.com/mailarc/mailarc/provision"
	"github.com/mailarc/mailarc/result"
)

// GroupMapper resolves the access group carrying a principal's permissions.
// Implemented by provision.Provisioner; tests substitute fakes.
type GroupMapper interface {
	MapPrincipal(ctx context.Context, principal *directory.Principal) (*directory.Principal, error)
}

// Reconciler applies the required ACL entries for a message to its archived
// file. Application is best-effort per principal: one failing principal is
// recorded and the rest still get their entries, but the file-level result
// is unsuccessful if any principal failed.
type Reconciler struct {
	fs     Filesystem
	mapper GroupMapper
	cache  *directory.PrincipalCache
}

// NewReconciler wires the reconciler to its filesystem, group mapper, and
// the run's principal cache.
func NewReconciler(fs Filesystem, mapper GroupMapper, cache *directory.PrincipalCache) *Reconciler {
	return &Reconciler{fs: fs, mapper: mapper, cache: cache}
}

// Apply grants every required principal read-and-execute on the file.
// Required principals are the successfully expanded recipients plus the
// sender when it is non-empty and known to the directory. Entries already
// present are left alone, and nothing is ever removed.
func (r *Reconciler) Apply(ctx context.Context, path string, msg *mailsource.MessageRecord) *result.TaskResult {
	res := result.New()
	defer res.Finish()

	required := r.requiredPrincipals(msg, res)

	acl, err := r.fs.ReadACL(path)
	if err != nil {
		res.AddErrorf(consts.KindReadAclFailed, "%s: %v", path, err)
		return res
	}

	for _, name := range required {
		principal, ok := r.cache.Get(name)
		if !ok {
			res.AddErrorf(consts.KindResolveGroupFailed, "%s: not in directory", name)
			continue
		}

		group, err := r.mapper.MapPrincipal(ctx, principal)
		if err != nil {
			res.AddErrorf(provision.ErrorKindOf(err, consts.KindMapObjectFailed), "%s: %v", name, err)
			continue
		}

		account := accountName(group)
		if acl.HasAccount(account) {
			continue
		}

		acl.Add(account, RightsReadExecute)
		if err := r.fs.WriteACL(path, acl); err != nil {
			// Keep the in-memory set mirroring persisted state.
			acl.remove(account)
			res.AddErrorf(consts.KindSetAclFailed, "%s on %s: %v", account, path, err)
			continue
		}
		metrics.AclEntriesAdded.Inc()
		logger.Debug("granted file access", "account", account, "path", path)
	}

	return res
}

// requiredPrincipals collects the ordered, deduplicated display names that
// must hold an ACL entry, recording expansion failures on the result.
func (r *Reconciler) requiredPrincipals(msg *mailsource.MessageRecord, res *result.TaskResult) []string {
	seen := make(map[string]struct{})
	var names []string

	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, rcp := range msg.Recipients {
		if !rcp.Resolved {
			res.AddErrorf(consts.KindResolveGroupFailed, "%s: %s", rcp.Name, rcp.FailureReason)
			continue
		}
		add(rcp.Name)
	}

	if msg.Sender != "" {
		if _, known := r.cache.Get(msg.Sender); known {
			add(msg.Sender)
		}
	}

	return names
}

// accountName normalizes the grantee identity written into ACL entries.
func accountName(group *directory.Principal) string {
	if group.SAMAccountName != "" {
		return group.SAMAccountName
	}
	return group.DisplayName
}
