package domain

import (
	"fmt"
	"strings"
)

// Role is the remote service's semantic role for a node.
type Role uint32

const (
	RoleUnknown Role = iota + 1
	RoleButton
	RoleHeader
	RoleImage
	RoleTextField
	RoleSlider
	RoleLink
	RoleCheckBox
	RoleRadioButton
	RoleToggleSwitch
)

var roleNames = map[Role]string{
	RoleUnknown:      "unknown",
	RoleButton:       "button",
	RoleHeader:       "header",
	RoleImage:        "image",
	RoleTextField:    "text_field",
	RoleSlider:       "slider",
	RoleLink:         "link",
	RoleCheckBox:     "check_box",
	RoleRadioButton:  "radio_button",
	RoleToggleSwitch: "toggle_switch",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint32(r))
}

// CheckedState is the remote checked state.
type CheckedState uint32

const (
	CheckedStateNone CheckedState = iota + 1
	CheckedStateChecked
	CheckedStateUnchecked
	CheckedStateMixed
)

func (c CheckedState) String() string {
	switch c {
	case CheckedStateNone:
		return "none"
	case CheckedStateChecked:
		return "checked"
	case CheckedStateUnchecked:
		return "unchecked"
	case CheckedStateMixed:
		return "mixed"
	}
	return fmt.Sprintf("checked_state(%d)", uint32(c))
}

// ToggledState is the remote toggled state. The zero value means "not set".
type ToggledState uint32

const (
	ToggledStateOn ToggledState = iota + 1
	ToggledStateOff
	ToggledStateIndeterminate
)

func (t ToggledState) String() string {
	switch t {
	case 0:
		return "unset"
	case ToggledStateOn:
		return "on"
	case ToggledStateOff:
		return "off"
	case ToggledStateIndeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("toggled_state(%d)", uint32(t))
}

// RemoteAction is an action in the remote service's vocabulary.
type RemoteAction uint32

const (
	RemoteActionDefault RemoteAction = iota + 1
	RemoteActionSecondary
	RemoteActionSetFocus
	RemoteActionSetValue
	RemoteActionShowOnScreen
	RemoteActionDecrement
	RemoteActionIncrement
)

var remoteActionNames = map[RemoteAction]string{
	RemoteActionDefault:      "default",
	RemoteActionSecondary:    "secondary",
	RemoteActionSetFocus:     "set_focus",
	RemoteActionSetValue:     "set_value",
	RemoteActionShowOnScreen: "show_on_screen",
	RemoteActionDecrement:    "decrement",
	RemoteActionIncrement:    "increment",
}

func (a RemoteAction) String() string {
	if name, ok := remoteActionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", uint32(a))
}

// ParseRemoteAction resolves a remote action by name.
func ParseRemoteAction(name string) (RemoteAction, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for action, n := range remoteActionNames {
		if n == name {
			return action, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Attributes are the descriptive properties of a wire node.
type Attributes struct {
	Label         string `json:"label"`
	IsKeyboardKey bool   `json:"is_keyboard_key,omitempty"`
}

// States are the dynamic properties of a wire node.
type States struct {
	CheckedState CheckedState `json:"checked_state"`
	Selected     bool         `json:"selected"`
	Value        string       `json:"value"`
	ToggledState ToggledState `json:"toggled_state,omitempty"`
}

// WireNode is the remote representation of one node. It is built during
// encoding and never stored.
type WireNode struct {
	NodeID     uint32         `json:"node_id"`
	Role       Role           `json:"role"`
	States     States         `json:"states"`
	Attributes Attributes     `json:"attributes"`
	Actions    []RemoteAction `json:"actions,omitempty"`
	ChildIDs   []uint32       `json:"child_ids,omitempty"`
	Location   BoundingBox    `json:"location"`
	Transform  Mat4           `json:"transform"`
}

// AnnounceEvent asks the remote service to speak a message.
type AnnounceEvent struct {
	Message string `json:"message"`
}

// SemanticEvent is a fire-and-forget notification to the remote service.
type SemanticEvent struct {
	Announce *AnnounceEvent `json:"announce,omitempty"`
}
