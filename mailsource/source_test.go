package mailsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/consts"
)

const sampleEML = "From: Jane Doe <jane.doe@example.com>\r\n" +
	"To: Bob Smith <bob@example.com>, sales@example.com\r\n" +
	"Cc: Eve Adams <eve@example.com>\r\n" +
	"Subject: RE: Q1 Report\r\n" +
	"Date: Sun, 15 Jan 2012 10:30:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Numbers attached.\r\n"

func TestFingerprintDeterministic(t *testing.T) {
	when := time.Date(2012, 1, 15, 10, 30, 0, 0, time.UTC)
	msg := func() *MessageRecord {
		return &MessageRecord{
			MessageClass: "IPM.Note",
			Subject:      "RE: Q1 Report",
			Sender:       "Jane Doe",
			ReceivedTime: &when,
			Recipients:   []RecipientRef{ResolvedRecipient("Bob Smith")},
		}
	}

	a := Fingerprint(msg())
	b := Fingerprint(msg())
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	changed := msg()
	changed.Subject = "RE: Q2 Report"
	assert.NotEqual(t, a, Fingerprint(changed))

	// Field concatenation must not be ambiguous across boundaries.
	left := &MessageRecord{MessageClass: "IPM.No", Subject: "teX"}
	right := &MessageRecord{MessageClass: "IPM.Note", Subject: "X"}
	assert.NotEqual(t, Fingerprint(left), Fingerprint(right))
}

func TestResolvedRecipients(t *testing.T) {
	msg := &MessageRecord{Recipients: []RecipientRef{
		ResolvedRecipient("Jane Doe"),
		FailedRecipient("Sales Team", "expansion timed out"),
		ResolvedRecipient("Bob Smith"),
	}}
	assert.Equal(t, []string{"Jane Doe", "Bob Smith"}, msg.ResolvedRecipients())

	empty := &MessageRecord{}
	assert.Empty(t, empty.ResolvedRecipients())
	assert.NotNil(t, empty.ResolvedRecipients())
}

func TestParseRaw(t *testing.T) {
	rec := &MessageRecord{}
	parseRaw([]byte(sampleEML), rec)

	assert.Equal(t, "IPM.Note", rec.MessageClass)
	assert.Equal(t, "RE: Q1 Report", rec.Subject)
	assert.Equal(t, "Jane Doe", rec.Sender)
	require.NotNil(t, rec.ReceivedTime)
	assert.Equal(t, 2012, rec.ReceivedTime.Year())
	require.Len(t, rec.Recipients, 3)
	assert.Equal(t, "Bob Smith", rec.Recipients[0].Name)
	assert.Equal(t, "sales@example.com", rec.Recipients[1].Name)
	assert.Equal(t, "Eve Adams", rec.Recipients[2].Name)
	assert.Equal(t, "Numbers attached.", rec.BodyPreview)
}

func TestParseRawMessageClassHeader(t *testing.T) {
	raw := "X-Message-Class: IPM.Note.Voicemail\r\nSubject: msg\r\n\r\nbody\r\n"
	rec := &MessageRecord{}
	parseRaw([]byte(raw), rec)
	assert.Equal(t, "IPM.Note.Voicemail", rec.MessageClass)
}

func TestParseRawGarbageStillArchivable(t *testing.T) {
	rec := &MessageRecord{}
	parseRaw([]byte("not a mail message"), rec)
	assert.Equal(t, "IPM.Note", rec.MessageClass)
	assert.NotEmpty(t, rec.Body)
}

func TestDirSourceWalkAndDelete(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "INBOX")
	require.NoError(t, os.MkdirAll(folder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "b.eml"), []byte(sampleEML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "a.eml"), []byte(sampleEML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("ignored"), 0644))

	src := NewDirSource(root)
	ctx := context.Background()
	require.NoError(t, src.Attach(ctx))
	defer src.Detach()

	count, err := src.Count(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var seen []string
	var first *MessageRecord
	err = src.Walk(ctx, "INBOX", func(m *MessageRecord) error {
		seen = append(seen, filepath.Base(m.ID))
		if first == nil {
			first = m
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.eml", "b.eml"}, seen)

	require.NoError(t, src.Delete(ctx, first))
	count, err = src.Count(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDirSourceMissingFolder(t *testing.T) {
	src := NewDirSource(t.TempDir())
	require.NoError(t, src.Attach(context.Background()))
	_, err := src.Count(context.Background(), "Nope")
	assert.ErrorIs(t, err, consts.ErrFolderNotFound)
}

func TestDirSourceMissingRoot(t *testing.T) {
	src := NewDirSource(filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, src.Attach(context.Background()), consts.ErrStoreNotFound)
}
