// Package directory models principals in the corporate directory service and
// provides the read/write client used for group provisioning and ACL
// resolution. The same Client instance must serve both the existence probes
// performed during provisioning and the later account-name resolution for
// file ACLs; splitting them across connections voids the convergence
// guarantee for freshly created groups.
package directory

import "context"

// ObjectClass distinguishes the directory object types the archiver acts on.
type ObjectClass int

const (
	ObjectClassUnknown ObjectClass = iota
	ObjectClassUser
	ObjectClassGroup
)

func (c ObjectClass) String() string {
	switch c {
	case ObjectClassUser:
		return "user"
	case ObjectClassGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Principal is a user or group in the directory.
type Principal struct {
	DisplayName       string
	DistinguishedName string
	SAMAccountName    string
	ObjectClass       ObjectClass
	MemberOf          map[string]struct{}
}

// IsMemberOf reports whether the principal is a direct member of the group
// with the given distinguished name.
func (p *Principal) IsMemberOf(dn string) bool {
	_, ok := p.MemberOf[dn]
	return ok
}

// AddMembership records a direct group membership on the principal.
func (p *Principal) AddMembership(dn string) {
	if p.MemberOf == nil {
		p.MemberOf = make(map[string]struct{})
	}
	p.MemberOf[dn] = struct{}{}
}

// Client is the directory-service access surface required by the archiver.
//
// FindObject returns consts.ErrObjectNotFound when no object exists at the
// given distinguished name; any other error is a transport or protocol
// failure.
type Client interface {
	FindObject(ctx context.Context, dn string) (*Principal, error)
	CreateGroup(ctx context.Context, name, container string, memberDNs []string) error
	Search(ctx context.Context, filter, baseDN string) ([]*Principal, error)
}
