package command

import (
	"context"
	"errors"
	"testing"
)

type stubCommand struct {
	name  string
	calls int
	last  Request
}

func (s *stubCommand) Name() string {
	return s.name
}

func (s *stubCommand) Execute(_ context.Context, req Request) Result {
	s.calls++
	s.last = req
	return Result{Status: StatusOK}
}

func TestRegistry_aliasesDispatchToSameCommand(t *testing.T) {
	reg := NewRegistry()
	cmd := &stubCommand{name: NameFileUpload}
	reg.Register(cmd, NameUploadFile)

	if got := reg.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	for _, name := range []string{NameFileUpload, NameUploadFile} {
		got, ok := reg.Get(name)
		if !ok || got != Command(cmd) {
			t.Errorf("Get(%q) = %v %v, want the registered command", name, got, ok)
		}
	}

	reg.Execute(context.Background(), NameUploadFile, Request{})
	reg.Execute(context.Background(), NameFileUpload, Request{})
	if cmd.calls != 2 {
		t.Errorf("calls = %d, want 2", cmd.calls)
	}
}

func TestRegistry_executeUnknown(t *testing.T) {
	reg := NewRegistry()

	res := reg.Execute(context.Background(), "missing", Request{})
	if res.Status != StatusError {
		t.Errorf("Status = %s, want %s", res.Status, StatusError)
	}
	if !errors.Is(res.Err, ErrUnknownCommand) {
		t.Errorf("Err = %v, want ErrUnknownCommand", res.Err)
	}
}

func TestRegistry_unregisterLeavesAliases(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubCommand{name: NameFileUpload}, NameUploadFile)

	reg.Unregister(NameFileUpload)

	if reg.Has(NameFileUpload) {
		t.Error("Has(fileUpload) = true after Unregister")
	}
	if !reg.Has(NameUploadFile) {
		t.Error("Has(uploadFile) = false, alias should survive")
	}
}

func TestRegistry_list(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubCommand{name: "zeta"})
	reg.Register(&stubCommand{name: "alpha"})

	got := reg.List()
	want := []string{"alpha", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_registerNilIsNoOp(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nil, "x")

	if got := reg.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestResultStatus_String(t *testing.T) {
	tests := []struct {
		status ResultStatus
		want   string
	}{
		{StatusOK, "ok"},
		{StatusNoOp, "no-op"},
		{StatusError, "error"},
		{ResultStatus(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
