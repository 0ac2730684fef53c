// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

import "fmt"

// Action is an interaction a session asks permission for.
type Action int

// Action constants. ActionUnknown is the zero value and is never authorized.
const (
	ActionUnknown   Action = iota // unknown
	ActionSubscribe               // subscribe
	ActionPublish                 // publish
	ActionRegister                // register
	ActionCall                    // call
)

var actionStrings = [...]string{
	"unknown",
	"subscribe",
	"publish",
	"register",
	"call",
}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionStrings) {
		return actionStrings[a]
	}
	return fmt.Sprintf("unknown(%d)", int(a))
}

// Valid reports whether a is one of the four WAMP actions.
func (a Action) Valid() bool {
	return a >= ActionSubscribe && a <= ActionCall
}

// Actions returns the supported actions in declaration order.
func Actions() []Action {
	return []Action{ActionSubscribe, ActionPublish, ActionRegister, ActionCall}
}

// ParseAction converts a wire action name to an Action.
// Unknown names fail with AUTHZ_UNSUPPORTED_ACTION.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions() {
		if actionStrings[a] == s {
			return a, nil
		}
	}
	return ActionUnknown, unsupportedActionError(s)
}
