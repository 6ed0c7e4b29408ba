package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/consts"
)

// globalSecurityGroupType is the Active Directory groupType bitmask for a
// global security group (GROUP_TYPE_ACCOUNT_GROUP | GROUP_TYPE_SECURITY).
const globalSecurityGroupType = "-2147483646"

// LDAPClient implements Client against an LDAP directory (Active Directory
// in production deployments).
type LDAPClient struct {
	conn *ldap.Conn
}

// Connect dials and binds the directory connection. The returned client must
// be closed by the caller.
func Connect(cfg config.DirectoryConfig) (*LDAPClient, error) {
	conn, err := ldap.DialURL(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial directory %s: %w", cfg.Addr, err)
	}
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to bind as %s: %w", cfg.BindDN, err)
		}
	}
	return &LDAPClient{conn: conn}, nil
}

// Close releases the directory connection.
func (c *LDAPClient) Close() error {
	return c.conn.Close()
}

// FindObject reads the object at the given distinguished name.
func (c *LDAPClient) FindObject(ctx context.Context, dn string) (*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, 0, false,
		"(objectClass=*)",
		principalAttributes(),
		nil,
	)
	res, err := c.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, consts.ErrObjectNotFound
		}
		return nil, fmt.Errorf("directory read of %s failed: %w", dn, err)
	}
	if len(res.Entries) == 0 {
		return nil, consts.ErrObjectNotFound
	}
	return entryToPrincipal(res.Entries[0]), nil
}

// CreateGroup creates a global security group CN=<name> under the container.
func (c *LDAPClient) CreateGroup(ctx context.Context, name, container string, memberDNs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dn := GroupDN(name, container)
	add := ldap.NewAddRequest(dn, nil)
	add.Attribute("objectClass", []string{"top", "group"})
	add.Attribute("cn", []string{name})
	add.Attribute("displayName", []string{name})
	add.Attribute("sAMAccountName", []string{AccountNameForGroup(name)})
	add.Attribute("groupType", []string{globalSecurityGroupType})
	if len(memberDNs) > 0 {
		add.Attribute("member", memberDNs)
	}

	if err := c.conn.Add(add); err != nil {
		return fmt.Errorf("directory create of %s failed: %w", dn, err)
	}
	return nil
}

// Search runs a subtree search under baseDN.
func (c *LDAPClient) Search(ctx context.Context, filter, baseDN string) ([]*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		principalAttributes(),
		nil,
	)
	res, err := c.conn.SearchWithPaging(req, 500)
	if err != nil {
		return nil, fmt.Errorf("directory search under %s failed: %w", baseDN, err)
	}

	principals := make([]*Principal, 0, len(res.Entries))
	for _, e := range res.Entries {
		principals = append(principals, entryToPrincipal(e))
	}
	return principals, nil
}

func principalAttributes() []string {
	return []string{"displayName", "cn", "sAMAccountName", "objectClass", "memberOf"}
}

func entryToPrincipal(e *ldap.Entry) *Principal {
	p := &Principal{
		DisplayName:       e.GetAttributeValue("displayName"),
		DistinguishedName: e.DN,
		SAMAccountName:    e.GetAttributeValue("sAMAccountName"),
		ObjectClass:       parseObjectClass(e.GetAttributeValues("objectClass")),
		MemberOf:          make(map[string]struct{}),
	}
	if p.DisplayName == "" {
		p.DisplayName = e.GetAttributeValue("cn")
	}
	for _, dn := range e.GetAttributeValues("memberOf") {
		p.MemberOf[dn] = struct{}{}
	}
	return p
}

// parseObjectClass inspects the objectClass values; AD objects carry the
// whole class hierarchy, so "group" is checked before "user" ("user" is also
// an ancestor class of "computer" but never of "group").
func parseObjectClass(classes []string) ObjectClass {
	for _, c := range classes {
		if strings.EqualFold(c, "group") {
			return ObjectClassGroup
		}
	}
	for _, c := range classes {
		if strings.EqualFold(c, "user") || strings.EqualFold(c, "person") {
			return ObjectClassUser
		}
	}
	return ObjectClassUnknown
}

// GroupDN is the canonical distinguished name of a provisioned access group.
func GroupDN(name, container string) string {
	return "CN=" + ldap.EscapeDN(name) + "," + container
}

// AccountNameForGroup derives a sAMAccountName from a group display name.
// AD limits group account names to 64 characters; spaces are kept because
// provisioned names like "EmailAccess - Jane Doe" rely on them for
// readability in ACL listings.
func AccountNameForGroup(name string) string {
	if len(name) > 64 {
		return name[:64]
	}
	return name
}
