package mesh

import "errors"

// Domain errors for the mesh bridge.
var (
	// ErrNotStarted is returned when an operation requires a running
	// bridge but Start has not completed.
	ErrNotStarted = errors.New("mesh: bridge not started")

	// ErrAlreadyStarted is returned by Start when the bridge is already
	// running.
	ErrAlreadyStarted = errors.New("mesh: bridge already started")

	// ErrDuplicateName is returned when a classified device resolves to a
	// display name already registered by a different source.
	ErrDuplicateName = errors.New("mesh: duplicate device name")

	// ErrMaterialize is returned when the device runtime rejects a shape.
	ErrMaterialize = errors.New("mesh: materialisation failed")

	// ErrUnknownDevice is returned for attribute or command operations
	// against a source id with no registered mesh device.
	ErrUnknownDevice = errors.New("mesh: unknown device")

	// ErrUnsupportedCommand is returned by the reverse translation path
	// for a command name outside the entity's declared capability set.
	ErrUnsupportedCommand = errors.New("mesh: unsupported command")
)
