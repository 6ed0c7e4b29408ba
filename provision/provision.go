// Package provision creates and looks up the directory access groups that
// back file permissions. Group creation is idempotent across runs: the
// principal cache and a directory probe are consulted before any write, and
// a freshly created group is confirmed visible on the read path before it is
// handed to the ACL step.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailarc/mailarc/consts"
	"github.com/mailarc/mailarc/directory"
	"github.com/mailarc/mailarc/logger"
	"github.com/mailarc/mailarc/metrics"
	"github.com/mailarc/mailarc/pkg/retry"
)

// GroupNamePrefix names the personal access group of a user principal.
const GroupNamePrefix = "EmailAccess - "

// Error tags an underlying failure with its fixed error kind so callers can
// record it on a TaskResult without string matching.
type Error struct {
	Kind consts.ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindErr(kind consts.ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// ErrorKindOf extracts the error kind from a provisioning error, falling
// back to the given kind for untagged errors.
func ErrorKindOf(err error, fallback consts.ErrorKind) consts.ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return fallback
}

// Provisioner ensures access groups exist in the directory. It is not safe
// for concurrent use; the archiver runs it from a single worker.
type Provisioner struct {
	client    directory.Client
	cache     *directory.PrincipalCache
	container string
	backoff   retry.BackoffConfig
}

// New returns a provisioner writing groups into the given container DN.
func New(client directory.Client, cache *directory.PrincipalCache, container string, backoff retry.BackoffConfig) *Provisioner {
	return &Provisioner{
		client:    client,
		cache:     cache,
		container: container,
		backoff:   backoff,
	}
}

// EnsureAccessGroup returns the access group with the given name, creating
// it if necessary. The sequence per name is: cache hit, directory probe,
// create, then a bounded convergence poll until the new group is visible on
// the same read path the ACL step resolves against. A name that reaches the
// cache is terminal: later calls in the run perform no directory round trip.
func (p *Provisioner) EnsureAccessGroup(ctx context.Context, name string, initialMembers []string) (*directory.Principal, error) {
	if cached, ok := p.cache.Get(name); ok {
		return cached, nil
	}

	dn := directory.GroupDN(name, p.container)

	existing, err := p.client.FindObject(ctx, dn)
	if err == nil {
		p.cache.Put(existing)
		return existing, nil
	}
	if !errors.Is(err, consts.ErrObjectNotFound) {
		return nil, kindErr(consts.KindGetObjectFailed, "probe of %s: %w", dn, err)
	}

	if err := p.client.CreateGroup(ctx, name, p.container, initialMembers); err != nil {
		return nil, kindErr(consts.KindCreateGroupFailed, "create %s: %w", name, err)
	}
	metrics.GroupsCreated.Inc()
	logger.Info("created access group", "group", name, "members", len(initialMembers))

	created, err := p.awaitVisible(ctx, dn)
	if err != nil {
		return nil, kindErr(consts.KindGetObjectFailed, "group %s created but not confirmed: %w", name, err)
	}

	p.cache.Put(created)
	return created, nil
}

// awaitVisible re-reads the created object until the directory's replication
// catches up. The directory is eventually consistent; without this wait the
// ACL step may fail to resolve the brand-new group against another replica.
func (p *Provisioner) awaitVisible(ctx context.Context, dn string) (*directory.Principal, error) {
	var found *directory.Principal
	err := retry.WithRetry(ctx, func() error {
		metrics.ConvergencePolls.Inc()
		obj, err := p.client.FindObject(ctx, dn)
		if errors.Is(err, consts.ErrObjectNotFound) {
			return fmt.Errorf("%w: %s", consts.ErrGroupNotVisible, dn)
		}
		if err != nil {
			return retry.Stop(err)
		}
		found = obj
		return nil
	}, p.backoff)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// MapPrincipal resolves the group that should carry a principal's file
// permissions: a user maps to its personal access group (created on first
// use), a security group maps to itself, and anything else is a bad-type
// error that the caller records and skips.
func (p *Provisioner) MapPrincipal(ctx context.Context, principal *directory.Principal) (*directory.Principal, error) {
	switch principal.ObjectClass {
	case directory.ObjectClassGroup:
		return principal, nil

	case directory.ObjectClassUser:
		name := GroupNamePrefix + principal.DisplayName
		dn := directory.GroupDN(name, p.container)

		// An existing membership proves the group exists; fetch it without
		// risking a duplicate create.
		if principal.IsMemberOf(dn) {
			if cached, ok := p.cache.Get(name); ok {
				return cached, nil
			}
			group, err := p.client.FindObject(ctx, dn)
			if err != nil {
				return nil, kindErr(consts.KindGetObjectFailed, "read %s: %w", dn, err)
			}
			p.cache.Put(group)
			return group, nil
		}

		group, err := p.EnsureAccessGroup(ctx, name, []string{principal.DistinguishedName})
		if err != nil {
			return nil, err
		}
		principal.AddMembership(group.DistinguishedName)
		return group, nil

	default:
		return nil, kindErr(consts.KindMapObjectBadType,
			"%w: %s has object class %s, want user or group",
			consts.ErrBadObjectClass, principal.DisplayName, principal.ObjectClass)
	}
}
