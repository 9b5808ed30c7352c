package document

import (
	"errors"
	"testing"
)

func TestNewMemory(t *testing.T) {
	m := NewMemory()
	if m.ID() == "" {
		t.Error("ID() is empty")
	}
	if got := len(m.Blocks()); got != 1 {
		t.Errorf("len(Blocks()) = %d, want 1", got)
	}
	if got := m.Seq(); got != 0 {
		t.Errorf("Seq() = %d, want 0", got)
	}
}

func TestNewMemory_WithInitialText(t *testing.T) {
	m := NewMemory(WithInitialText("hello"))
	if got := m.Text(); got != "hello" {
		t.Errorf("Text() = %q, want %q", got, "hello")
	}
	if got := len(m.Blocks()[0].Runs); got != 1 {
		t.Errorf("block runs = %d, want 1", got)
	}
}

func TestMemory_Change_commitsBatch(t *testing.T) {
	m := NewMemory()

	var id NodeID
	err := m.Change(func(w *Writer) error {
		var err error
		id, err = w.InsertInline(Position{Block: 0, Run: 0}, Inline{Text: "a"})
		return err
	})
	if err != nil {
		t.Fatalf("Change() error = %v", err)
	}
	if id == "" {
		t.Fatal("InsertInline did not assign an ID")
	}
	if got := m.Seq(); got != 1 {
		t.Errorf("Seq() = %d, want 1", got)
	}
	node, ok := m.Node(id)
	if !ok {
		t.Fatalf("Node(%q) not found", id)
	}
	if node.Text != "a" {
		t.Errorf("node.Text = %q, want %q", node.Text, "a")
	}
	root, _ := m.NodeRoot(id)
	if root != RootMain {
		t.Errorf("NodeRoot() = %v, want %v", root, RootMain)
	}
}

func TestMemory_Change_rollsBackOnError(t *testing.T) {
	m := NewMemory(WithInitialText("keep"))
	boom := errors.New("boom")

	err := m.Change(func(w *Writer) error {
		if _, err := w.InsertInline(Position{Block: 0, Run: 0}, Inline{Text: "lost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Change() error = %v, want %v", err, boom)
	}
	if got := m.Text(); got != "keep" {
		t.Errorf("Text() after rollback = %q, want %q", got, "keep")
	}
	if got := m.Seq(); got != 0 {
		t.Errorf("Seq() after rollback = %d, want 0", got)
	}
}

func TestMemory_Change_noMutationNoBatch(t *testing.T) {
	m := NewMemory()

	var batches int
	defer m.Observe(BatchObserverFunc(func(Batch) { batches++ }))()

	if err := m.Change(func(w *Writer) error { return nil }); err != nil {
		t.Fatalf("Change() error = %v", err)
	}
	if batches != 0 {
		t.Errorf("observer called %d times, want 0", batches)
	}
	if got := m.Seq(); got != 0 {
		t.Errorf("Seq() = %d, want 0", got)
	}
}

func TestMemory_Observe(t *testing.T) {
	m := NewMemory()

	var got []Batch
	cancel := m.Observe(BatchObserverFunc(func(b Batch) { got = append(got, b) }))

	if err := m.Change(func(w *Writer) error {
		_, err := w.InsertInline(Position{}, Inline{Text: "x"})
		return err
	}); err != nil {
		t.Fatalf("Change() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("observer received %d batches, want 1", len(got))
	}
	if got[0].Seq != 1 {
		t.Errorf("batch.Seq = %d, want 1", got[0].Seq)
	}
	if !got[0].Undoable {
		t.Error("Change batch should be undoable")
	}
	if len(got[0].Entries) != 1 {
		t.Fatalf("batch entries = %d, want 1", len(got[0].Entries))
	}
	if got[0].Entries[0].Root != RootMain {
		t.Errorf("entry root = %v, want %v", got[0].Entries[0].Root, RootMain)
	}

	cancel()
	if err := m.Change(func(w *Writer) error {
		_, err := w.InsertInline(Position{}, Inline{Text: "y"})
		return err
	}); err != nil {
		t.Fatalf("Change() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("observer received %d batches after cancel, want 1", len(got))
	}
}

func TestMemory_EnqueueChange_notUndoable(t *testing.T) {
	m := NewMemory()

	var batch Batch
	defer m.Observe(BatchObserverFunc(func(b Batch) { batch = b }))()

	if err := m.EnqueueChange(func(w *Writer) error {
		_, err := w.InsertInline(Position{}, Inline{Text: "x"})
		return err
	}); err != nil {
		t.Fatalf("EnqueueChange() error = %v", err)
	}
	if batch.Undoable {
		t.Error("EnqueueChange batch should not be undoable")
	}
	if m.CanUndo() {
		t.Error("CanUndo() = true after non-undoable batch")
	}
}

func TestMemory_Undo_ofInsert(t *testing.T) {
	m := NewMemory()

	var id NodeID
	if err := m.Change(func(w *Writer) error {
		var err error
		id, err = w.InsertInline(Position{}, Inline{Text: "a"})
		return err
	}); err != nil {
		t.Fatalf("Change() error = %v", err)
	}

	var batch Batch
	defer m.Observe(BatchObserverFunc(func(b Batch) { batch = b }))()

	if err := m.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	root, ok := m.NodeRoot(id)
	if !ok {
		t.Fatal("node vanished entirely; want graveyard")
	}
	if root != RootGraveyard {
		t.Errorf("NodeRoot() after undo = %v, want %v", root, RootGraveyard)
	}
	if batch.Undoable {
		t.Error("undo batch should not be undoable")
	}
	var gy int
	for _, e := range batch.Entries {
		if e.Root == RootGraveyard && e.Node.ID == id {
			gy++
		}
	}
	if gy != 1 {
		t.Errorf("graveyard entries for node = %d, want 1", gy)
	}
}

func TestMemory_Undo_ofRemove(t *testing.T) {
	m := NewMemory()

	var id NodeID
	if err := m.Change(func(w *Writer) error {
		var err error
		id, err = w.InsertInline(Position{}, Inline{
			Text:  "a",
			Attrs: Attrs{AttrUploadID: "u1"},
		})
		return err
	}); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if err := m.Change(func(w *Writer) error {
		return w.Remove(id)
	}); err != nil {
		t.Fatalf("remove error = %v", err)
	}

	var batch Batch
	defer m.Observe(BatchObserverFunc(func(b Batch) { batch = b }))()

	if err := m.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	root, ok := m.NodeRoot(id)
	if !ok || root != RootMain {
		t.Fatalf("NodeRoot() after undo = (%v, %v), want (main, true)", root, ok)
	}
	node, _ := m.Node(id)
	if v, _ := node.Attr(AttrUploadID); v != "u1" {
		t.Errorf("attrs not restored: uploadId = %q, want %q", v, "u1")
	}
	var live int
	for _, e := range batch.Entries {
		if e.Root == RootMain && e.Node.ID == id {
			live++
		}
	}
	if live != 1 {
		t.Errorf("main-root entries for node = %d, want 1", live)
	}
}

func TestMemory_Undo_empty(t *testing.T) {
	m := NewMemory()
	if err := m.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() error = %v, want %v", err, ErrNothingToUndo)
	}
}

func TestMemory_Undo_skipsNonUndoable(t *testing.T) {
	m := NewMemory()

	var id NodeID
	if err := m.Change(func(w *Writer) error {
		var err error
		id, err = w.InsertInline(Position{}, Inline{Text: "a"})
		return err
	}); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if err := m.EnqueueChange(func(w *Writer) error {
		return w.SetAttr(id, AttrUploadStatus, "uploading")
	}); err != nil {
		t.Fatalf("enqueue error = %v", err)
	}

	if err := m.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if root, _ := m.NodeRoot(id); root != RootGraveyard {
		t.Errorf("NodeRoot() after undo = %v, want %v", root, RootGraveyard)
	}
	if m.CanUndo() {
		t.Error("CanUndo() = true, want false after single undo")
	}
}

func TestMemory_SetSelection(t *testing.T) {
	m := NewMemory(WithInitialText("hello"))

	tests := []struct {
		name    string
		sel     Selection
		wantErr error
	}{
		{"start of block", Selection{Block: 0, Run: 0, Offset: 0}, nil},
		{"mid run", Selection{Block: 0, Run: 0, Offset: 3}, nil},
		{"end of block", Selection{Block: 0, Run: 1, Offset: 0}, nil},
		{"block out of range", Selection{Block: 2}, ErrBlockOutOfRange},
		{"run out of range", Selection{Block: 0, Run: 5}, ErrPositionOutOfRange},
		{"offset out of range", Selection{Block: 0, Run: 0, Offset: 99}, ErrPositionOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.SetSelection(tt.sel)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetSelection() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSelection_CaptureAttrs(t *testing.T) {
	sel := Selection{Attrs: Attrs{AttrBold: "true"}}
	captured := sel.CaptureAttrs()
	captured[AttrItalic] = "true"
	if _, ok := sel.Attrs[AttrItalic]; ok {
		t.Error("CaptureAttrs() did not copy; mutation leaked into source")
	}
	if captured[AttrBold] != "true" {
		t.Errorf("captured[bold] = %q, want %q", captured[AttrBold], "true")
	}
}

func TestRoot_String(t *testing.T) {
	tests := []struct {
		root Root
		want string
	}{
		{RootMain, "main"},
		{RootGraveyard, "graveyard"},
		{Root(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.root.String(); got != tt.want {
			t.Errorf("Root(%d).String() = %q, want %q", tt.root, got, tt.want)
		}
	}
}
