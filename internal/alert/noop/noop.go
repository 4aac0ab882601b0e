// Package noop implements an alert.Sink that discards every message. It
// backs the controller when no --alert URL is given, or when the URL's
// scheme isn't recognized (spec §9: an unknown scheme degrades to a
// no-op, it never fails startup).
package noop

import (
	"context"

	"github.com/pan1c/ephc/internal/alert"
)

type Sink struct{}

func New() Sink { return Sink{} }

func (Sink) Send(context.Context, alert.Message) error { return nil }

var _ alert.Sink = Sink{}
