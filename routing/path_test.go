package routing

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/mailsource"
)

type fakeDirEnsurer struct {
	created []string
	err     error
}

func (f *fakeDirEnsurer) EnsureDirectory(path string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, path)
	return nil
}

func testMessage() *mailsource.MessageRecord {
	when := time.Date(2012, 1, 15, 10, 30, 0, 0, time.UTC)
	msg := &mailsource.MessageRecord{
		MessageClass: "IPM.Note",
		Subject:      "RE: Q1 Report",
		Sender:       "",
		ReceivedTime: &when,
		Recipients:   []mailsource.RecipientRef{mailsource.ResolvedRecipient("Jane Doe")},
	}
	msg.Fingerprint = mailsource.Fingerprint(msg)
	return msg
}

func TestBuildPathScenarioUnknownSender(t *testing.T) {
	route := Route{
		SavePathUseDate:   true,
		SavePathUseSender: true,
		FileExtension:     ".msg",
	}
	fs := &fakeDirEnsurer{}
	b := &Builder{Root: "/archive", FS: fs}

	msg := testMessage()
	path, err := b.BuildPath(route, msg)
	require.NoError(t, err)

	wantDir := filepath.Join("/archive", "2012-01", "__unknown_sender")
	assert.Equal(t, []string{wantDir}, fs.created)
	assert.Equal(t, filepath.Join(wantDir, "RE Q1 Report."+msg.Fingerprint+".msg"), path)
	assert.Equal(t, path, msg.ComputedFilePath)
}

func TestBuildPathDeterministic(t *testing.T) {
	route := Route{SavePathUseDate: true, SavePathUseSender: true, FileExtension: ".eml"}
	b := &Builder{Root: "/archive", FS: &fakeDirEnsurer{}}

	first, err := b.BuildPath(route, testMessage())
	require.NoError(t, err)
	second, err := b.BuildPath(route, testMessage())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildPathNoDate(t *testing.T) {
	route := Route{SavePathUseDate: true, FileExtension: ".eml"}
	b := &Builder{Root: "/archive", FS: &fakeDirEnsurer{}}

	msg := testMessage()
	msg.ReceivedTime = nil
	path, err := b.BuildPath(route, msg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, filepath.Join("/archive", "_no_date")+string(filepath.Separator)))
}

func TestBuildPathStaticSuffix(t *testing.T) {
	route := Route{StaticSuffix: "voicemail", FileExtension: ".msg"}
	fs := &fakeDirEnsurer{}
	b := &Builder{Root: "/archive", FS: fs}

	_, err := b.BuildPath(route, testMessage())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("/archive", "voicemail")}, fs.created)
}

func TestSenderSegment(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		expected string
	}{
		{
			name:     "Empty sender",
			sender:   "",
			expected: "__unknown_sender",
		},
		{
			name:     "Whitespace sender",
			sender:   "   ",
			expected: "__unknown_sender",
		},
		{
			name:     "Internal display name unprefixed",
			sender:   "Jane Doe",
			expected: "Jane Doe",
		},
		{
			name:     "External address flagged",
			sender:   "ceo@partner.example.com",
			expected: "_ceo@partner.example.com",
		},
		{
			name:     "Disallowed characters stripped",
			sender:   `Jane "JD" Doe <ops>`,
			expected: "Jane JD Doe ops",
		},
		{
			name:     "Only disallowed characters",
			sender:   `\/:*?`,
			expected: "__unknown_sender",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SenderSegment(tt.sender))
		})
	}
}

func TestFileNameEmptySubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = "!!!"
	name := FileName(Route{FileExtension: ".msg"}, msg)
	assert.Equal(t, "(No Subject)."+msg.Fingerprint+".msg", name)
}

func TestFileNameTruncatesSubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = strings.Repeat("a", 80)
	name := FileName(Route{FileExtension: ".eml"}, msg)
	assert.True(t, strings.HasPrefix(name, strings.Repeat("a", 50)+"."))
	assert.False(t, strings.HasPrefix(name, strings.Repeat("a", 51)))
}
