package main

import (
	"context"
	"log/slog"

	"github.com/GriffinCanCode/autoui/internal/grpcclient"
	"github.com/GriffinCanCode/autoui/internal/locate"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/server"
)

// locators bundles the template and combined locators over one capturer.
type locators struct {
	template *locate.TemplateLocator
	element  *locate.ElementLocator
	closers  []func()
}

func (l *locators) Close() {
	for i := len(l.closers) - 1; i >= 0; i-- {
		l.closers[i]()
	}
}

// newLocators wires template matching and, when an OCR address is set,
// the gRPC text locator. Without OCR, text descriptors fail with
// OCR_UNAVAILABLE.
func (a *app) newLocators(c screen.Capturer) (*locators, error) {
	matcher, closeMatcher := newMatcher()
	l := &locators{closers: []func(){closeMatcher}}
	l.template = locate.NewTemplateLocator(c, matcher, a.cfg.TemplateFloor)

	var text *locate.TextLocator
	if a.cfg.OCRAddr != "" {
		client, err := grpcclient.New(a.cfg.OCRAddr, grpcclient.WithTimeout(a.cfg.OCRTimeout))
		if err != nil {
			l.Close()
			return nil, err
		}
		l.closers = append(l.closers, func() { _ = client.Close() })
		text = locate.NewTextLocator(c, client)
	}

	policy := locate.Policy{AcceptThreshold: a.cfg.AcceptThreshold, ProximityPx: a.cfg.ProximityPx}
	l.element = locate.NewElementLocator(c, l.template, text, policy)
	return l, nil
}

// startWatch serves the progress hub when a watch address is configured.
// It returns nil otherwise.
func (a *app) startWatch(ctx context.Context) *server.Hub {
	if a.cfg.WatchAddr == "" {
		return nil
	}
	hub := server.New()
	go func() {
		if err := hub.ListenAndServe(ctx, a.cfg.WatchAddr); err != nil {
			slog.Error("watch server error", "error", err)
		}
	}()
	return hub
}
