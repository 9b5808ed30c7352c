package command

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/filestorm/internal/filerepo"
)

func TestFileButton_clickDispatchesPicks(t *testing.T) {
	reg := NewRegistry()
	cmd := &stubCommand{name: NameFileUpload}
	reg.Register(cmd, NameUploadFile)

	picks := []filerepo.Source{{URI: "file:///tmp/a.pdf", Name: "a.pdf"}}
	btn := NewFileButton(reg, PickerFunc(func(_ context.Context) ([]filerepo.Source, error) {
		return picks, nil
	}))

	res := btn.Click(context.Background())
	if res.Status != StatusOK {
		t.Fatalf("Status = %s, want %s", res.Status, StatusOK)
	}
	if cmd.calls != 1 {
		t.Fatalf("calls = %d, want 1", cmd.calls)
	}
	if len(cmd.last.Files) != 1 || cmd.last.Files[0].Name != "a.pdf" {
		t.Errorf("request files = %+v, want the picked file", cmd.last.Files)
	}
}

func TestFileButton_clickWithoutPicker(t *testing.T) {
	btn := NewFileButton(NewRegistry(), nil)

	res := btn.Click(context.Background())
	if res.Status != StatusError || !errors.Is(res.Err, ErrNoPicker) {
		t.Errorf("result = %s %v, want error ErrNoPicker", res.Status, res.Err)
	}
}

func TestFileButton_dismissedPickerIsNoOp(t *testing.T) {
	reg := NewRegistry()
	cmd := &stubCommand{name: NameFileUpload}
	reg.Register(cmd)

	btn := NewFileButton(reg, PickerFunc(func(_ context.Context) ([]filerepo.Source, error) {
		return nil, nil
	}))

	if res := btn.Click(context.Background()); res.Status != StatusNoOp {
		t.Errorf("Status = %s, want %s", res.Status, StatusNoOp)
	}
	if cmd.calls != 0 {
		t.Errorf("calls = %d, want 0", cmd.calls)
	}
}

func TestFileButton_pickerError(t *testing.T) {
	pickErr := errors.New("dialog failed")
	btn := NewFileButton(NewRegistry(), PickerFunc(func(_ context.Context) ([]filerepo.Source, error) {
		return nil, pickErr
	}))

	res := btn.Click(context.Background())
	if res.Status != StatusError || !errors.Is(res.Err, pickErr) {
		t.Errorf("result = %s %v, want the picker error", res.Status, res.Err)
	}
}

func TestFileButton_drop(t *testing.T) {
	reg := NewRegistry()
	cmd := &stubCommand{name: NameFileUpload}
	reg.Register(cmd)

	btn := NewFileButton(reg, nil)
	res := btn.Drop(context.Background(), DropPayload{Files: []filerepo.Source{
		{URI: "file:///tmp/a.pdf"},
		{URI: "file:///tmp/b.pdf"},
	}})

	if res.Status != StatusOK {
		t.Fatalf("Status = %s, want %s", res.Status, StatusOK)
	}
	if len(cmd.last.Files) != 2 {
		t.Errorf("request files = %d, want 2", len(cmd.last.Files))
	}

	if res := btn.Drop(context.Background(), DropPayload{}); res.Status != StatusNoOp {
		t.Errorf("empty drop Status = %s, want %s", res.Status, StatusNoOp)
	}
}

func TestFileButton_names(t *testing.T) {
	btn := NewFileButton(NewRegistry(), nil)

	names := btn.Names()
	if len(names) != 2 || names[0] != NameFileUpload || names[1] != NameUploadFile {
		t.Errorf("Names() = %v, want [fileUpload uploadFile]", names)
	}
}
