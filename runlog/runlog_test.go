package runlog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/result"
)

func TestRunLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.db")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Event(EventMessageArchived, "INBOX/report.msg"))
	require.NoError(t, l.Event(EventMessageSkipped, "duplicate"))

	res := result.New()
	res.MaxItems = 5
	res.TotalItems = 3
	res.SkippedItems = 1
	res.Finish()
	require.NoError(t, l.Finish(res))

	var total, skipped, success int
	row := l.db.QueryRow(`SELECT total_items, skipped_items, success FROM runs WHERE id = ?`, l.RunID())
	require.NoError(t, row.Scan(&total, &skipped, &success))
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, success)

	var events int
	row = l.db.QueryRow(`SELECT COUNT(*) FROM run_events WHERE run_id = ?`, l.RunID())
	require.NoError(t, row.Scan(&events))
	// run started + two message events + run completed
	assert.Equal(t, 4, events)
}

func TestSeparateRunsGetSeparateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.db")

	first, err := Open(path)
	require.NoError(t, err)
	firstID := first.RunID()
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	assert.Greater(t, second.RunID(), firstID)
}
