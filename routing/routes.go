// Package routing maps message classes to archival routes and computes the
// deterministic save path for each message. Routes are loaded once at
// startup from validated configuration and never mutated afterwards.
package routing

import (
	"fmt"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/consts"
)

// Action is the archival action a route prescribes for matched messages.
type Action int

const (
	// ActionSave archives the message to a file; the source item is deleted
	// only after save and permission propagation succeed.
	ActionSave Action = iota
	// ActionDelete deletes the source item without keeping a file.
	ActionDelete
)

func (a Action) String() string {
	if a == ActionDelete {
		return "delete"
	}
	return "save"
}

// Route is the immutable rule for one message class.
type Route struct {
	Class             string
	SavePathUseDate   bool
	SavePathUseSender bool
	StaticSuffix      string
	FileExtension     string
	ApplyPermissions  bool
	Action            Action
	WriteToSink       bool
}

// Table resolves message classes to routes by exact match. There is no
// wildcard or class-hierarchy inference.
type Table struct {
	byClass map[string]Route
}

// NewTable builds the route table from configuration. Config validation has
// already run, but the constructor re-checks template references and actions
// so a Table can never hold a half-built route.
func NewTable(templates []config.TemplateConfig, routes []config.RouteConfig) (*Table, error) {
	byName := make(map[string]config.TemplateConfig, len(templates))
	for _, t := range templates {
		byName[t.Name] = t
	}

	table := &Table{byClass: make(map[string]Route, len(routes))}
	for _, rc := range routes {
		tpl, ok := byName[rc.Template]
		if !ok {
			return nil, fmt.Errorf("route %q references unknown template %q", rc.Class, rc.Template)
		}

		var action Action
		switch rc.Action {
		case "save":
			action = ActionSave
		case "delete":
			action = ActionDelete
		default:
			return nil, fmt.Errorf("route %q has unknown action %q", rc.Class, rc.Action)
		}

		if _, dup := table.byClass[rc.Class]; dup {
			return nil, fmt.Errorf("duplicate route for message class %q", rc.Class)
		}
		table.byClass[rc.Class] = Route{
			Class:             rc.Class,
			SavePathUseDate:   tpl.UseDate,
			SavePathUseSender: tpl.UseSender,
			StaticSuffix:      tpl.StaticSuffix,
			FileExtension:     tpl.FileExtension,
			ApplyPermissions:  rc.ApplyPermissions,
			Action:            action,
			WriteToSink:       rc.WriteToSink,
		}
	}
	return table, nil
}

// Resolve looks up the route for a message class. A missing route is not an
// error; the caller skips the message and counts it as skipped.
func (t *Table) Resolve(messageClass string) (Route, bool) {
	r, ok := t.byClass[messageClass]
	return r, ok
}

// Lookup is the error-returning form of Resolve for callers that treat a
// missing route as a failure rather than a skip.
func (t *Table) Lookup(messageClass string) (Route, error) {
	r, ok := t.byClass[messageClass]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", consts.ErrRouteNotFound, messageClass)
	}
	return r, nil
}

// Len reports the number of configured routes.
func (t *Table) Len() int {
	return len(t.byClass)
}
