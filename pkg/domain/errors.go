package domain

import "errors"

// ErrNodeTooLarge is returned when a single node's wire form alone reaches the
// transport's maximum message size. Such a node is never sent.
var ErrNodeTooLarge = errors.New("semantics node exceeds maximum message size")

// ErrNodeNotFound is returned when an ID is not present in the mirrored tree.
var ErrNodeNotFound = errors.New("semantics node not found")

// ErrUnsupportedAction is returned when a remote action has no framework equivalent.
var ErrUnsupportedAction = errors.New("unsupported remote action")

// ErrMissingRoot signals an update arriving before any root node.
var ErrMissingRoot = errors.New("update received without a root node")

// ErrNegativeID is returned for node IDs below zero, which are reserved as sentinels.
var ErrNegativeID = errors.New("negative semantics node id")

// ErrDuplicateChild signals a child listed under more than one parent, or a cycle.
var ErrDuplicateChild = errors.New("semantics node listed as child of multiple parents")

// ErrUnknownFlag is returned when parsing an unrecognized flag name.
var ErrUnknownFlag = errors.New("unknown semantics flag")

// ErrUnknownAction is returned when parsing an unrecognized action name.
var ErrUnknownAction = errors.New("unknown semantics action")
