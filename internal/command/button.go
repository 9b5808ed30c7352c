package command

import (
	"context"
	"log/slog"

	"github.com/dshills/filestorm/internal/filerepo"
)

// Picker opens the host's file chooser and returns the user's picks, in
// pick order. Returning an empty slice means the dialog was dismissed.
type Picker interface {
	Pick(ctx context.Context) ([]filerepo.Source, error)
}

// PickerFunc adapts a function to the Picker interface.
type PickerFunc func(ctx context.Context) ([]filerepo.Source, error)

// Pick implements the Picker interface.
func (f PickerFunc) Pick(ctx context.Context) ([]filerepo.Source, error) {
	return f(ctx)
}

// DropPayload is content dropped or pasted onto the editor surface.
type DropPayload struct {
	// Files are the dropped sources, in drop order.
	Files []filerepo.Source
}

// FileButton is the toolbar control for file uploads. Hosts register it
// under both Names for compatibility; clicks collect files through the
// picker and drops take the payload as-is, both dispatching the upload
// command through the registry.
type FileButton struct {
	registry *Registry
	picker   Picker
	logger   *slog.Logger
}

// ButtonOption configures a FileButton.
type ButtonOption func(*FileButton)

// WithButtonLogger sets the button logger.
func WithButtonLogger(l *slog.Logger) ButtonOption {
	return func(b *FileButton) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewFileButton creates the toolbar control. The picker may be nil for
// hosts that only deliver drops.
func NewFileButton(registry *Registry, picker Picker, opts ...ButtonOption) *FileButton {
	b := &FileButton{
		registry: registry,
		picker:   picker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Names returns every name the control registers under.
func (b *FileButton) Names() []string {
	return []string{NameFileUpload, NameUploadFile}
}

// Click opens the picker and uploads the chosen files.
func (b *FileButton) Click(ctx context.Context) Result {
	if b.picker == nil {
		return Result{Status: StatusError, Err: ErrNoPicker}
	}

	files, err := b.picker.Pick(ctx)
	if err != nil {
		return Result{Status: StatusError, Err: err}
	}
	if len(files) == 0 {
		return Result{Status: StatusNoOp}
	}
	return b.registry.Execute(ctx, NameFileUpload, Request{Files: files})
}

// Drop uploads a dropped payload.
func (b *FileButton) Drop(ctx context.Context, payload DropPayload) Result {
	if len(payload.Files) == 0 {
		return Result{Status: StatusNoOp}
	}
	return b.registry.Execute(ctx, NameFileUpload, Request{Files: payload.Files})
}
