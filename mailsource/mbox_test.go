package mailsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/consts"
)

func writeMbox(t *testing.T, path string, bodies []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := mbox.NewWriter(f)
	for _, body := range bodies {
		mw, err := w.CreateMessage("", time.Time{})
		require.NoError(t, err)
		_, err = mw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func mboxMessage(subject string) string {
	return "From: Jane Doe <jane@example.com>\r\n" +
		"To: Bob Smith <bob@example.com>\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: Sun, 15 Jan 2012 10:30:00 +0000\r\n" +
		"\r\n" +
		"body\r\n"
}

func TestMboxSourceWalk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.mbox")
	writeMbox(t, path, []string{mboxMessage("one"), mboxMessage("two")})

	src := NewMboxSource(path)
	ctx := context.Background()
	require.NoError(t, src.Attach(ctx))

	count, err := src.Count(ctx, MboxFolder)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var subjects []string
	err = src.Walk(ctx, MboxFolder, func(m *MessageRecord) error {
		subjects = append(subjects, m.Subject)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, subjects)
	require.NoError(t, src.Detach())
}

func TestMboxSourceDeleteCompactsOnDetach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.mbox")
	writeMbox(t, path, []string{mboxMessage("one"), mboxMessage("two"), mboxMessage("three")})

	src := NewMboxSource(path)
	ctx := context.Background()
	require.NoError(t, src.Attach(ctx))

	var second *MessageRecord
	require.NoError(t, src.Walk(ctx, MboxFolder, func(m *MessageRecord) error {
		if m.Subject == "two" {
			second = m
		}
		return nil
	}))
	require.NotNil(t, second)
	require.NoError(t, src.Delete(ctx, second))
	require.NoError(t, src.Detach())

	// Re-open and verify the deleted message is gone.
	reopened := NewMboxSource(path)
	require.NoError(t, reopened.Attach(ctx))
	var subjects []string
	require.NoError(t, reopened.Walk(ctx, MboxFolder, func(m *MessageRecord) error {
		subjects = append(subjects, m.Subject)
		return nil
	}))
	assert.Equal(t, []string{"one", "three"}, subjects)
}

func TestMboxSourceUnknownFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.mbox")
	writeMbox(t, path, []string{mboxMessage("one")})

	src := NewMboxSource(path)
	require.NoError(t, src.Attach(context.Background()))
	_, err := src.Count(context.Background(), "Sent")
	assert.ErrorIs(t, err, consts.ErrFolderNotFound)
}
