package document

// NodeID uniquely identifies an inline node within a document.
// IDs are stable for the lifetime of the node, across moves between roots.
type NodeID string

// Attribute keys used by the upload subsystem.
const (
	// AttrUploadID links an anchor node to its upload task.
	AttrUploadID = "uploadId"

	// AttrUploadStatus mirrors the upload status onto the anchor node.
	AttrUploadStatus = "uploadStatus"

	// AttrLinkHref marks a run as a hyperlink to the given target.
	AttrLinkHref = "linkHref"
)

// Formatting attribute keys used by the reference hosts.
const (
	AttrBold   = "bold"
	AttrItalic = "italic"
)

// Root identifies which tree a node currently belongs to.
type Root uint8

const (
	// RootMain is the live document content.
	RootMain Root = iota

	// RootGraveyard holds detached nodes awaiting garbage collection.
	RootGraveyard
)

// String returns a human-readable root name.
func (r Root) String() string {
	switch r {
	case RootMain:
		return "main"
	case RootGraveyard:
		return "graveyard"
	default:
		return "unknown"
	}
}

// Attrs is the attribute set of an inline node.
type Attrs map[string]string

// Clone returns a deep copy of the attribute set.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	c := make(Attrs, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Inline is a text run carrying attributes. It is the node shape the
// upload subsystem anchors to.
type Inline struct {
	// ID is the node identity. Empty on insertion requests; the writer
	// assigns one.
	ID NodeID

	// Text is the run content.
	Text string

	// Attrs holds the run attributes.
	Attrs Attrs
}

// Clone returns a deep copy of the inline node.
func (n Inline) Clone() Inline {
	n.Attrs = n.Attrs.Clone()
	return n
}

// Attr returns the value of the given attribute key and whether it is set.
func (n Inline) Attr(key string) (string, bool) {
	if n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// Position addresses an insertion point in the main root: the run index
// within a block before which a node is inserted.
type Position struct {
	// Block is the block index within the document.
	Block int

	// Run is the insertion index within the block's run list.
	Run int
}

// Block is a container of inline runs (a paragraph in the reference hosts).
type Block struct {
	// ID is the block identity.
	ID string

	// Runs are the block's inline nodes in document order.
	Runs []Inline
}

// Text returns the concatenated run text of the block.
func (b Block) Text() string {
	var out string
	for _, r := range b.Runs {
		out += r.Text
	}
	return out
}
