package app

import (
	"context"
	"sync"

	"github.com/dshills/filestorm/internal/filerepo"
)

// samples are the canned documents the picker cycles through. The
// payloads are tiny but carry real format headers, so the pipeline
// resolves honest types and sizes.
var samples = []filerepo.Source{
	{Name: "quarterly-report.pdf", MIME: "application/pdf", URI: "data:application/pdf;base64,JVBERi0xLjQK"},
	{Name: "team-photo.png", MIME: "image/png", URI: "data:image/png;base64,iVBORw0KGgo="},
	{Name: "release-notes.txt", MIME: "text/plain", URI: "data:text/plain,Release%20notes%20draft"},
}

// samplePicker stands in for the host file chooser.
type samplePicker struct {
	mu sync.Mutex
	n  int
}

func newSamplePicker() *samplePicker {
	return &samplePicker{}
}

// Pick implements the command.Picker interface.
func (p *samplePicker) Pick(_ context.Context) ([]filerepo.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	src := samples[p.n%len(samples)]
	p.n++
	return []filerepo.Source{src}, nil
}
