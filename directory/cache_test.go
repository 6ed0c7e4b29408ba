package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/directory"
	"github.com/mailarc/mailarc/testutils"
)

func TestSeedLoadsUsersAndGroups(t *testing.T) {
	dir := testutils.NewFakeDirectory()
	dir.AddUser("Alice Archer", "aarcher", "OU=Staff,DC=example,DC=com")
	dir.AddGroup("Sales", "sales", "OU=Groups,DC=example,DC=com")

	cache := directory.NewPrincipalCache()
	require.NoError(t, cache.Seed(context.Background(), dir, "DC=example,DC=com"))

	assert.Equal(t, 2, cache.Len())

	alice, ok := cache.Get("Alice Archer")
	require.True(t, ok)
	assert.Equal(t, directory.ObjectClassUser, alice.ObjectClass)

	sales, ok := cache.Get("Sales")
	require.True(t, ok)
	assert.Equal(t, directory.ObjectClassGroup, sales.ObjectClass)
}

func TestSeedKeepsFirstOnDuplicateDisplayName(t *testing.T) {
	dir := testutils.NewFakeDirectory()
	dir.AddUser("Alex Smith", "asmith1", "OU=London,DC=example,DC=com")
	dir.AddUser("Alex Smith", "asmith2", "OU=Berlin,DC=example,DC=com")

	cache := directory.NewPrincipalCache()
	require.NoError(t, cache.Seed(context.Background(), dir, "DC=example,DC=com"))

	assert.Equal(t, 1, cache.Len())
}

func TestPutOverwritesAndGetMisses(t *testing.T) {
	cache := directory.NewPrincipalCache()

	_, ok := cache.Get("Nobody")
	assert.False(t, ok)

	cache.Put(&directory.Principal{DisplayName: "G", DistinguishedName: "CN=G,DC=example,DC=com"})
	cache.Put(&directory.Principal{DisplayName: "G", DistinguishedName: "CN=G,OU=New,DC=example,DC=com"})

	g, ok := cache.Get("G")
	require.True(t, ok)
	assert.Equal(t, "CN=G,OU=New,DC=example,DC=com", g.DistinguishedName)
	assert.Equal(t, 1, cache.Len())
}
