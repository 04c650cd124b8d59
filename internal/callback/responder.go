// Package callback answers and edits callback queries without letting the
// messaging client's errors reach the caller.
package callback

import (
	"context"
	"errors"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// Errors a Query implementation reports for the expected failure kinds.
var (
	ErrQueryExpired       = errors.New("callback query expired")
	ErrMessageNotModified = errors.New("message not modified")
	ErrMessageNotFound    = errors.New("message not found")
)

// Message is whatever handle the client returns for an edited message.
type Message any

// Markup is a client specific reply markup value.
type Markup any

// EditOptions carries extra edit parameters through to the client.
type EditOptions struct {
	ParseMode             string
	DisableWebPagePreview bool
}

// Query is the part of a callback query the responder drives.
type Query interface {
	Answer(ctx context.Context, text string, showAlert bool) error
	EditText(ctx context.Context, text string, markup Markup, opts EditOptions) (Message, error)
	EditReplyMarkup(ctx context.Context, markup Markup) (Message, error)
}

type Responder struct {
	log waLog.Logger
}

func NewResponder(log waLog.Logger) *Responder {
	if log == nil {
		log = waLog.Noop
	}
	return &Responder{log: log}
}

// Acknowledge answers q and reports whether the answer went through.
func (r *Responder) Acknowledge(ctx context.Context, q Query, text string, showAlert bool) bool {
	if err := q.Answer(ctx, text, showAlert); err != nil {
		r.report("answer", err)
		return false
	}
	return true
}

// Edit replaces the text (and markup) of the query's message, or only its
// markup when text is empty. With neither set nothing is sent.
func (r *Responder) Edit(ctx context.Context, q Query, text string, markup Markup, opts EditOptions) (Message, bool) {
	var (
		msg Message
		err error
	)
	switch {
	case text != "":
		msg, err = q.EditText(ctx, text, markup, opts)
	case markup != nil:
		msg, err = q.EditReplyMarkup(ctx, markup)
	default:
		return nil, false
	}
	if err != nil {
		r.report("edit", err)
		return nil, false
	}
	return msg, true
}

func (r *Responder) report(op string, err error) {
	if expected(err) {
		r.log.Debugf("callback %s ignored: %v", op, err)
		return
	}
	r.log.Warnf("callback %s failed: %v", op, err)
}

func expected(err error) bool {
	return errors.Is(err, ErrQueryExpired) ||
		errors.Is(err, ErrMessageNotModified) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, context.Canceled)
}
