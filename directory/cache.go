package directory

import (
	"context"
	"fmt"

	"github.com/mailarc/mailarc/logger"
)

// seedFilter selects every user and group in scope for the cache seed.
const seedFilter = "(|(objectClass=user)(objectClass=group))"

// PrincipalCache is an in-memory index of directory principals keyed by
// display name. It is seeded once per run and then mutated in place as new
// access groups are created. It is the single source of truth for "does this
// principal or group already exist" during a run.
//
// The cache is deliberately unsynchronized: the archiver processes one
// message at a time and exactly one logical worker touches the cache per run.
type PrincipalCache struct {
	byName map[string]*Principal
}

// NewPrincipalCache returns an empty cache.
func NewPrincipalCache() *PrincipalCache {
	return &PrincipalCache{byName: make(map[string]*Principal)}
}

// Seed populates the cache with every user and group under baseDN.
// Duplicate display names are first-wins; later entries are dropped with a
// warning because a display-name collision cannot be resolved reliably.
func (c *PrincipalCache) Seed(ctx context.Context, client Client, baseDN string) error {
	principals, err := client.Search(ctx, seedFilter, baseDN)
	if err != nil {
		return fmt.Errorf("failed to seed principal cache from %s: %w", baseDN, err)
	}

	dropped := 0
	for _, p := range principals {
		if p.DisplayName == "" {
			continue
		}
		if _, exists := c.byName[p.DisplayName]; exists {
			dropped++
			logger.Warn("duplicate display name in directory, keeping first",
				"display_name", p.DisplayName, "dn", p.DistinguishedName)
			continue
		}
		c.byName[p.DisplayName] = p
	}

	logger.Info("principal cache seeded",
		"principals", len(c.byName), "duplicates_dropped", dropped)
	return nil
}

// Get returns the cached principal with the given display name.
func (c *PrincipalCache) Get(displayName string) (*Principal, bool) {
	p, ok := c.byName[displayName]
	return p, ok
}

// Put inserts or replaces a principal, typically a group created during the
// current run.
func (c *PrincipalCache) Put(p *Principal) {
	c.byName[p.DisplayName] = p
}

// Len reports the number of cached principals.
func (c *PrincipalCache) Len() int {
	return len(c.byName)
}
