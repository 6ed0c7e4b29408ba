package testutils

import (
	"context"
	"fmt"

	"github.com/mailarc/mailarc/consts"
	"github.com/mailarc/mailarc/directory"
)

// FakeDirectory is an in-memory directory.Client. VisibilityDelay simulates
// replication lag: a freshly created object stays invisible for that many
// reads before FindObject starts returning it.
type FakeDirectory struct {
	Objects map[string]*directory.Principal // keyed by DN

	VisibilityDelay int
	pendingReads    map[string]int

	FindErr   error
	CreateErr error
	SearchErr error

	FindCalls   int
	CreateCalls int
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		Objects:      make(map[string]*directory.Principal),
		pendingReads: make(map[string]int),
	}
}

// AddUser registers a user principal under the given container.
func (d *FakeDirectory) AddUser(displayName, account, container string) *directory.Principal {
	p := &directory.Principal{
		DisplayName:       displayName,
		DistinguishedName: fmt.Sprintf("CN=%s,%s", displayName, container),
		SAMAccountName:    account,
		ObjectClass:       directory.ObjectClassUser,
		MemberOf:          make(map[string]struct{}),
	}
	d.Objects[p.DistinguishedName] = p
	return p
}

// AddGroup registers a security group under the given container.
func (d *FakeDirectory) AddGroup(displayName, account, container string) *directory.Principal {
	p := &directory.Principal{
		DisplayName:       displayName,
		DistinguishedName: directory.GroupDN(displayName, container),
		SAMAccountName:    account,
		ObjectClass:       directory.ObjectClassGroup,
		MemberOf:          make(map[string]struct{}),
	}
	d.Objects[p.DistinguishedName] = p
	return p
}

func (d *FakeDirectory) FindObject(ctx context.Context, dn string) (*directory.Principal, error) {
	d.FindCalls++
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if remaining, lagged := d.pendingReads[dn]; lagged {
		if remaining > 1 {
			d.pendingReads[dn] = remaining - 1
		} else {
			delete(d.pendingReads, dn)
		}
		return nil, consts.ErrObjectNotFound
	}
	p, ok := d.Objects[dn]
	if !ok {
		return nil, consts.ErrObjectNotFound
	}
	return p, nil
}

func (d *FakeDirectory) CreateGroup(ctx context.Context, name, container string, memberDNs []string) error {
	d.CreateCalls++
	if d.CreateErr != nil {
		return d.CreateErr
	}
	p := &directory.Principal{
		DisplayName:       name,
		DistinguishedName: directory.GroupDN(name, container),
		SAMAccountName:    directory.AccountNameForGroup(name),
		ObjectClass:       directory.ObjectClassGroup,
		MemberOf:          make(map[string]struct{}),
	}
	d.Objects[p.DistinguishedName] = p
	if d.VisibilityDelay > 0 {
		d.pendingReads[p.DistinguishedName] = d.VisibilityDelay
	}
	return nil
}

func (d *FakeDirectory) Search(ctx context.Context, filter, baseDN string) ([]*directory.Principal, error) {
	if d.SearchErr != nil {
		return nil, d.SearchErr
	}
	principals := make([]*directory.Principal, 0, len(d.Objects))
	for _, p := range d.Objects {
		principals = append(principals, p)
	}
	return principals, nil
}
