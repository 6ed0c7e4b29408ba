package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/consts"
)

func testTemplates() []config.TemplateConfig {
	return []config.TemplateConfig{
		{Name: "default", UseDate: true, UseSender: true, FileExtension: ".eml"},
		{Name: "voicemail", UseDate: true, StaticSuffix: "voicemail", FileExtension: ".msg"},
	}
}

func TestNewTableAndResolve(t *testing.T) {
	table, err := NewTable(testTemplates(), []config.RouteConfig{
		{Class: "IPM.Note", Template: "default", Action: "save", ApplyPermissions: true, WriteToSink: true},
		{Class: "IPM.Note.Voicemail", Template: "voicemail", Action: "delete"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	route, ok := table.Resolve("IPM.Note")
	require.True(t, ok)
	assert.Equal(t, ActionSave, route.Action)
	assert.True(t, route.SavePathUseDate)
	assert.True(t, route.SavePathUseSender)
	assert.True(t, route.ApplyPermissions)
	assert.Equal(t, ".eml", route.FileExtension)

	route, ok = table.Resolve("IPM.Note.Voicemail")
	require.True(t, ok)
	assert.Equal(t, ActionDelete, route.Action)
	assert.Equal(t, "voicemail", route.StaticSuffix)
	assert.False(t, route.ApplyPermissions)
}

func TestResolveUnknownClass(t *testing.T) {
	table, err := NewTable(testTemplates(), []config.RouteConfig{
		{Class: "IPM.Note", Template: "default", Action: "save"},
	})
	require.NoError(t, err)

	// No wildcard or prefix inference: a subclass does not inherit.
	_, ok := table.Resolve("IPM.Note.SMIME")
	assert.False(t, ok)
	_, ok = table.Resolve("IPM.Appointment")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	table, err := NewTable(testTemplates(), []config.RouteConfig{
		{Class: "IPM.Note", Template: "default", Action: "save"},
	})
	require.NoError(t, err)

	route, err := table.Lookup("IPM.Note")
	require.NoError(t, err)
	assert.Equal(t, "IPM.Note", route.Class)

	_, err = table.Lookup("IPM.Appointment")
	require.Error(t, err)
	assert.ErrorIs(t, err, consts.ErrRouteNotFound)
	assert.Contains(t, err.Error(), "IPM.Appointment")
}

func TestNewTableRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		routes []config.RouteConfig
	}{
		{
			name:   "unknown template",
			routes: []config.RouteConfig{{Class: "IPM.Note", Template: "missing", Action: "save"}},
		},
		{
			name:   "unknown action",
			routes: []config.RouteConfig{{Class: "IPM.Note", Template: "default", Action: "purge"}},
		},
		{
			name: "duplicate class",
			routes: []config.RouteConfig{
				{Class: "IPM.Note", Template: "default", Action: "save"},
				{Class: "IPM.Note", Template: "default", Action: "delete"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(testTemplates(), tt.routes)
			assert.Error(t, err)
		})
	}
}
