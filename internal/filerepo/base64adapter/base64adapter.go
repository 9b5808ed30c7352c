// Package base64adapter stores uploads inline: the resolved URL is a
// data URI carrying the file content. No network involved.
package base64adapter

import (
	"context"
	"encoding/base64"

	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/localfile"
)

// Adapter encodes files into data URIs.
type Adapter struct{}

// New creates a base64 adapter.
func New() *Adapter {
	return &Adapter{}
}

// Upload implements the filerepo.Adapter interface.
func (a *Adapter) Upload(ctx context.Context, f localfile.File, progress func(pct int)) (filerepo.Response, error) {
	if err := ctx.Err(); err != nil {
		return filerepo.Response{}, err
	}

	mime := f.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Bytes)

	progress(100)
	return filerepo.Response{Data: map[string]string{
		"url":  uri,
		"name": f.Name,
	}}, nil
}
