package command

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"

	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/event/events"
	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/mimetype"
)

// Command names the upload command answers to. UploadFile is kept for
// hosts wired against the earlier name; both dispatch identically.
const (
	NameFileUpload = "fileUpload"
	NameUploadFile = "uploadFile"
)

// UploadCommand opens an upload task per accepted file and inserts an
// anchor node for each at the caret.
type UploadCommand struct {
	doc     *document.Memory
	repo    *filerepo.Repository
	matcher *mimetype.Matcher
	pub     *event.Publisher
	logger  *slog.Logger
}

// UploadOption configures an UploadCommand.
type UploadOption func(*UploadCommand)

// WithLogger sets the command logger.
func WithLogger(l *slog.Logger) UploadOption {
	return func(c *UploadCommand) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewUploadCommand creates the upload command. A nil matcher accepts
// nothing; hosts build one from their accepted-type configuration.
func NewUploadCommand(doc *document.Memory, repo *filerepo.Repository, matcher *mimetype.Matcher, bus event.Bus, opts ...UploadOption) *UploadCommand {
	c := &UploadCommand{
		doc:     doc,
		repo:    repo,
		matcher: matcher,
		pub:     event.NewPublisher(bus, "command"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements the Command interface.
func (c *UploadCommand) Name() string {
	return NameFileUpload
}

// Execute uploads the request's files in order. Files whose resolved
// MIME type the matcher rejects are skipped, as are all files when no
// adapter is configured. Selection attributes are captured once, before
// the first insertion, so every anchor inherits the same formatting no
// matter how earlier insertions move the caret. Each accepted file gets
// its own undoable batch: one anchor, one undo step.
func (c *UploadCommand) Execute(ctx context.Context, req Request) Result {
	if len(req.Files) == 0 {
		return Result{Status: StatusNoOp}
	}

	inherited := inheritable(c.doc.Selection().CaptureAttrs())

	var created, skipped []string
	for _, src := range req.Files {
		name := displayName(src)
		mime, _ := src.ResolveMIME()
		if !c.matcher.Matches(mime) {
			c.logger.Debug("file type not accepted", "file", name, "mime", mime)
			skipped = append(skipped, name)
			continue
		}

		task, err := c.repo.CreateTask(src)
		if errors.Is(err, filerepo.ErrNoAdapter) {
			skipped = append(skipped, name)
			continue
		}
		if err != nil {
			return Result{Status: StatusError, Created: created, Skipped: skipped, Err: err}
		}

		if err := c.insertAnchor(task.ID(), name, inherited, req.SplitLinks); err != nil {
			c.repo.DestroyTask(task.ID())
			return Result{Status: StatusError, Created: created, Skipped: skipped, Err: err}
		}

		_ = event.PublishEvent(ctx, c.pub, events.TopicUploadTaskCreated, events.UploadTaskCreated{
			UploadID:   task.ID(),
			DocumentID: c.doc.ID(),
			Filename:   name,
			MIME:       mime,
		})
		created = append(created, task.ID())
	}

	status := StatusOK
	if len(created) == 0 {
		status = StatusNoOp
	}
	return Result{Status: status, Created: created, Skipped: skipped}
}

// insertAnchor inserts one anchor at the live caret and moves the caret
// past it.
func (c *UploadCommand) insertAnchor(uploadID, name string, inherited document.Attrs, splitLinks bool) error {
	return c.doc.Change(func(w *document.Writer) error {
		attrs := inherited.Clone()
		if attrs == nil {
			attrs = document.Attrs{}
		}
		attrs[document.AttrUploadID] = uploadID

		sel := w.Selection()
		id, err := w.InsertAtSelection(sel, document.Inline{Text: name, Attrs: attrs}, splitLinks)
		if err != nil {
			return err
		}

		idx, ok := w.RunIndex(sel.Block, id)
		if !ok {
			return document.ErrNodeNotFound
		}
		return w.SetSelection(document.Selection{
			Block: sel.Block,
			Run:   idx + 1,
			Attrs: sel.Attrs,
		})
	})
}

// inheritable filters selection attributes down to the set an anchor
// inherits. Upload bookkeeping never inherits, and neither does a link
// target: the completion listener owns linkHref.
func inheritable(attrs document.Attrs) document.Attrs {
	out := document.Attrs{}
	for k, v := range attrs {
		switch k {
		case document.AttrUploadID, document.AttrUploadStatus, document.AttrLinkHref:
			continue
		}
		out[k] = v
	}
	return out
}

// displayName derives the anchor text for a source.
func displayName(src filerepo.Source) string {
	if src.Name != "" {
		return src.Name
	}
	uri := src.URI
	if i := strings.Index(uri, "?"); i >= 0 {
		uri = uri[:i]
	}
	if strings.HasPrefix(uri, "data:") {
		return "file"
	}
	if base := path.Base(uri); base != "" && base != "." && base != "/" {
		return base
	}
	return "file"
}
