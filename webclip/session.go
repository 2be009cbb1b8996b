package webclip

import (
	"context"

	"github.com/hazyhaar/webclip/internal/browser"
	"github.com/hazyhaar/webclip/pageshot"
)

// Session is a page opened for capture, owned by one goroutine.
type Session interface {
	pageshot.Browser
	Title(ctx context.Context) string
	Close() error
}

// Opener opens prepared pages. The default opener drives Chrome; tests
// and embedders can supply their own with WithOpener.
type Opener interface {
	Open(ctx context.Context, pageURL string) (Session, error)
}

type tabOpener struct {
	mgr  *browser.Manager
	opts browser.TabOptions
}

func (o *tabOpener) Open(ctx context.Context, pageURL string) (Session, error) {
	tab, err := o.mgr.OpenTab(ctx, pageURL, o.opts)
	if err != nil {
		return nil, err
	}
	return tab, nil
}
