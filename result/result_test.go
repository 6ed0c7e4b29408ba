package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/consts"
)

func TestAddErrorFlipsSuccessPermanently(t *testing.T) {
	r := New()
	require.True(t, r.Success)

	r.Success = true
	r.AddError(consts.KindSetAclFailed, "acl write refused")
	assert.False(t, r.Success)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, consts.KindSetAclFailed, r.Errors[0].Kind)

	// Folding in a successful child must not resurrect success.
	ok := New()
	ok.TotalItems = 3
	r.Fold(ok)
	assert.False(t, r.Success)
	assert.Equal(t, 3, r.TotalItems)
}

func TestFoldConcatenatesAndSums(t *testing.T) {
	parent := New()
	parent.TotalItems = 1
	parent.SkippedItems = 2
	parent.AddError(consts.KindSaveMessageFailed, "disk full")

	child := New()
	child.TotalItems = 4
	child.MaxItems = 10
	child.SkippedItems = 1
	child.AddError(consts.KindResolveGroupFailed, "Sales Team")
	child.AddError(consts.KindDeleteMessageFailed, "item gone")

	parent.Fold(child)

	assert.Equal(t, 5, parent.TotalItems)
	assert.Equal(t, 10, parent.MaxItems)
	assert.Equal(t, 3, parent.SkippedItems)
	require.Len(t, parent.Errors, 3)
	// Parent's own errors come first, child's follow in order.
	assert.Equal(t, consts.KindSaveMessageFailed, parent.Errors[0].Kind)
	assert.Equal(t, consts.KindResolveGroupFailed, parent.Errors[1].Kind)
	assert.Equal(t, consts.KindDeleteMessageFailed, parent.Errors[2].Kind)
	assert.False(t, parent.Success)
}

func TestFoldSuccessfulChildren(t *testing.T) {
	parent := New()
	for i := 0; i < 3; i++ {
		child := New()
		child.TotalItems = 1
		parent.Fold(child)
	}
	assert.True(t, parent.Success)
	assert.Equal(t, 3, parent.TotalItems)
	assert.Empty(t, parent.Errors)
}

func TestFoldNilChild(t *testing.T) {
	parent := New()
	parent.Fold(nil)
	assert.True(t, parent.Success)
}

func TestTaskErrorString(t *testing.T) {
	e := TaskError{Kind: consts.KindFolderNotFound, Context: "Archive/2019"}
	assert.Equal(t, "FolderNotFound: Archive/2019", e.Error())
}

func TestDurationZeroBeforeFinish(t *testing.T) {
	r := New()
	assert.Zero(t, r.Duration())
	r.Finish()
	assert.False(t, r.FinishTime.IsZero())
	assert.GreaterOrEqual(t, r.Duration().Nanoseconds(), int64(0))
}
