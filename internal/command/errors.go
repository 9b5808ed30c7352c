package command

import "errors"

var (
	// ErrUnknownCommand is returned when executing a name with no
	// registered command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoPicker is returned when a button click has no picker to
	// collect files from.
	ErrNoPicker = errors.New("no file picker configured")
)
