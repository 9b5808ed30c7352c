// Package command exposes the editor-facing actions of the upload
// subsystem: a registry of named commands and the upload command that
// turns picked or dropped files into tasks and anchor nodes.
package command

import (
	"context"

	"github.com/dshills/filestorm/internal/filerepo"
)

// ResultStatus indicates the outcome of a command.
type ResultStatus uint8

const (
	// StatusOK indicates the command did work.
	StatusOK ResultStatus = iota
	// StatusNoOp indicates the command had nothing to do.
	StatusNoOp
	// StatusError indicates the command failed.
	StatusError
)

// String returns a string representation of the status.
func (s ResultStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Request carries the files of one command invocation, in user order.
type Request struct {
	// Files are the sources to upload.
	Files []filerepo.Source

	// SplitLinks permits splitting a hyperlink run at the caret. The
	// default inserts after the run instead.
	SplitLinks bool
}

// Result is the outcome of one command invocation.
type Result struct {
	// Status indicates the result status.
	Status ResultStatus

	// Created lists the upload ids opened, in file order.
	Created []string

	// Skipped lists display names of files that produced no task, either
	// because their type is not accepted or no adapter is configured.
	Skipped []string

	// Err is set when Status is StatusError.
	Err error
}

// Command executes one named editor action.
type Command interface {
	// Name returns the canonical command name.
	Name() string

	// Execute runs the command.
	Execute(ctx context.Context, req Request) Result
}
