package document

// Selection is a collapsed caret position plus the formatting attributes
// active at it. Insertions made on behalf of the user inherit the attrs.
type Selection struct {
	// Block is the block index the caret is in.
	Block int

	// Run is the run index the caret addresses. Run == len(runs) means
	// the end of the block.
	Run int

	// Offset is the text offset within the addressed run. Zero means
	// before the run; len(run.Text) means after it.
	Offset int

	// Attrs holds the formatting active at the caret.
	Attrs Attrs
}

// CaptureAttrs returns a deep copy of the selection's attributes.
// Commands capture these once, before the first insertion of a batch, so
// every inserted node inherits the same formatting.
func (s Selection) CaptureAttrs() Attrs {
	return s.Attrs.Clone()
}
