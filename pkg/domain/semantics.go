package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RootNodeID identifies the root of every semantics tree.
const RootNodeID int32 = 0

// Flags is the framework's semantic flag bitset.
type Flags uint32

const (
	FlagHasCheckedState Flags = 1 << iota
	FlagIsChecked
	FlagIsSelected
	FlagIsButton
	FlagIsTextField
	FlagIsFocused
	FlagHasEnabledState
	FlagIsEnabled
	FlagIsInMutuallyExclusiveGroup
	FlagIsHeader
	FlagIsObscured
	FlagScopesRoute
	FlagNamesRoute
	FlagIsHidden
	FlagIsImage
	FlagIsLiveRegion
	FlagHasToggledState
	FlagIsToggled
	FlagHasImplicitScrolling
	FlagIsMultiline
	FlagIsReadOnly
	FlagIsFocusable
	FlagIsLink
	FlagIsSlider
	FlagIsKeyboardKey
)

var flagNames = map[string]Flags{
	"has_checked_state":              FlagHasCheckedState,
	"is_checked":                     FlagIsChecked,
	"is_selected":                    FlagIsSelected,
	"is_button":                      FlagIsButton,
	"is_text_field":                  FlagIsTextField,
	"is_focused":                     FlagIsFocused,
	"has_enabled_state":              FlagHasEnabledState,
	"is_enabled":                     FlagIsEnabled,
	"is_in_mutually_exclusive_group": FlagIsInMutuallyExclusiveGroup,
	"is_header":                      FlagIsHeader,
	"is_obscured":                    FlagIsObscured,
	"scopes_route":                   FlagScopesRoute,
	"names_route":                    FlagNamesRoute,
	"is_hidden":                      FlagIsHidden,
	"is_image":                       FlagIsImage,
	"is_live_region":                 FlagIsLiveRegion,
	"has_toggled_state":              FlagHasToggledState,
	"is_toggled":                     FlagIsToggled,
	"has_implicit_scrolling":         FlagHasImplicitScrolling,
	"is_multiline":                   FlagIsMultiline,
	"is_read_only":                   FlagIsReadOnly,
	"is_focusable":                   FlagIsFocusable,
	"is_link":                        FlagIsLink,
	"is_slider":                      FlagIsSlider,
	"is_keyboard_key":                FlagIsKeyboardKey,
}

// Has reports whether every bit of flag is set.
func (f Flags) Has(flag Flags) bool { return f&flag == flag }

// Names returns the snake_case names of the set flags, sorted.
func (f Flags) Names() []string {
	return bitNames(uint32(f), flagNames)
}

// ParseFlags turns flag names into a bitset.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		bit, ok := flagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
		}
		f |= bit
	}
	return f, nil
}

// SemanticsAction is the framework's action bitset.
type SemanticsAction uint32

const (
	ActionTap SemanticsAction = 1 << iota
	ActionLongPress
	ActionScrollLeft
	ActionScrollRight
	ActionScrollUp
	ActionScrollDown
	ActionIncrease
	ActionDecrease
	ActionShowOnScreen
	ActionMoveCursorForwardByCharacter
	ActionMoveCursorBackwardByCharacter
	ActionSetSelection
	ActionCopy
	ActionCut
	ActionPaste
	ActionDidGainAccessibilityFocus
	ActionDidLoseAccessibilityFocus
	ActionCustomAction
	ActionDismiss
	ActionMoveCursorForwardByWord
	ActionMoveCursorBackwardByWord
	ActionSetText
)

var actionNames = map[string]SemanticsAction{
	"tap":                                ActionTap,
	"long_press":                         ActionLongPress,
	"scroll_left":                        ActionScrollLeft,
	"scroll_right":                       ActionScrollRight,
	"scroll_up":                          ActionScrollUp,
	"scroll_down":                        ActionScrollDown,
	"increase":                           ActionIncrease,
	"decrease":                           ActionDecrease,
	"show_on_screen":                     ActionShowOnScreen,
	"move_cursor_forward_by_character":   ActionMoveCursorForwardByCharacter,
	"move_cursor_backward_by_character":  ActionMoveCursorBackwardByCharacter,
	"set_selection":                      ActionSetSelection,
	"copy":                               ActionCopy,
	"cut":                                ActionCut,
	"paste":                              ActionPaste,
	"did_gain_accessibility_focus":       ActionDidGainAccessibilityFocus,
	"did_lose_accessibility_focus":       ActionDidLoseAccessibilityFocus,
	"custom_action":                      ActionCustomAction,
	"dismiss":                            ActionDismiss,
	"move_cursor_forward_by_word":        ActionMoveCursorForwardByWord,
	"move_cursor_backward_by_word":       ActionMoveCursorBackwardByWord,
	"set_text":                           ActionSetText,
}

// Has reports whether every bit of action is set.
func (a SemanticsAction) Has(action SemanticsAction) bool { return a&action == action }

// Names returns the snake_case names of the set actions, sorted.
func (a SemanticsAction) Names() []string {
	return bitNames(uint32(a), actionNames)
}

// String returns the action names joined by "|".
func (a SemanticsAction) String() string {
	if a == 0 {
		return "none"
	}
	return strings.Join(a.Names(), "|")
}

// ParseActions turns action names into a bitset.
func ParseActions(names []string) (SemanticsAction, error) {
	var a SemanticsAction
	for _, name := range names {
		bit, ok := actionNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
		}
		a |= bit
	}
	return a, nil
}

func bitNames[T ~uint32](v uint32, table map[string]T) []string {
	var names []string
	for name, bit := range table {
		if v&uint32(bit) != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SemanticsNode is a snapshot of one framework semantics node.
// The engine only reads it.
type SemanticsNode struct {
	ID        int32           `json:"id"`
	Flags     Flags           `json:"flags"`
	Actions   SemanticsAction `json:"actions"`
	Label     string          `json:"label,omitempty"`
	Value     string          `json:"value,omitempty"`
	Hint      string          `json:"hint,omitempty"`
	Rect      Rect            `json:"rect"`
	Transform Mat4            `json:"transform"`
	Elevation float64         `json:"elevation,omitempty"`
	Thickness float64         `json:"thickness,omitempty"`

	// PlatformViewID is set when the node hosts an embedded platform view.
	PlatformViewID *int64 `json:"platform_view_id,omitempty"`

	ChildrenInHitTestOrder   []int32 `json:"children_in_hit_test_order,omitempty"`
	ChildrenInTraversalOrder []int32 `json:"children_in_traversal_order,omitempty"`
}

// HasFlag reports whether the node carries flag.
func (n SemanticsNode) HasFlag(flag Flags) bool { return n.Flags.Has(flag) }

// HasAction reports whether the node supports action.
func (n SemanticsNode) HasAction(action SemanticsAction) bool { return n.Actions.Has(action) }

// IsPlatformViewNode reports whether the node hosts a platform view.
func (n SemanticsNode) IsPlatformViewNode() bool {
	return n.PlatformViewID != nil && *n.PlatformViewID >= 0
}

// SemanticsNodeUpdates is one batch of node updates keyed by node ID.
type SemanticsNodeUpdates map[int32]SemanticsNode
