// Package client adapts gogram Telegram types to the resolver and the
// callback responder.
package client

import (
	"context"
	"fmt"

	tg "github.com/amarnathcjd/gogram/telegram"

	"github.com/vicentereig/yt-resolver/internal/callback"
	"github.com/vicentereig/yt-resolver/internal/types"
)

// CallbackQuery exposes a gogram callback query as a callback.Query.
type CallbackQuery struct {
	answer func(text string, options ...*tg.CallbackOptions) (bool, error)
	edit   func(text any, options ...*tg.SendOptions) (*tg.NewMessage, error)
}

func NewCallbackQuery(cb *tg.CallbackQuery) *CallbackQuery {
	return &CallbackQuery{answer: cb.Answer, edit: cb.Edit}
}

func (q *CallbackQuery) Answer(ctx context.Context, text string, showAlert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := q.answer(text, &tg.CallbackOptions{Alert: showAlert})
	return translateError(err)
}

func (q *CallbackQuery) EditText(ctx context.Context, text string, markup callback.Markup, opts callback.EditOptions) (callback.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	send := &tg.SendOptions{
		ParseMode:   opts.ParseMode,
		LinkPreview: !opts.DisableWebPagePreview,
	}
	if rm, ok := markup.(tg.ReplyMarkup); ok {
		send.ReplyMarkup = rm
	}
	msg, err := q.edit(text, send)
	if err != nil {
		return nil, translateError(err)
	}
	return msg, nil
}

// EditReplyMarkup sends an edit without text, which leaves the message
// text untouched.
func (q *CallbackQuery) EditReplyMarkup(ctx context.Context, markup callback.Markup) (callback.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rm, ok := markup.(tg.ReplyMarkup)
	if !ok {
		return nil, fmt.Errorf("unsupported reply markup %T", markup)
	}
	msg, err := q.edit("", &tg.SendOptions{ReplyMarkup: rm})
	if err != nil {
		return nil, translateError(err)
	}
	return msg, nil
}

// translateError maps Telegram RPC errors onto the responder's error kinds.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case tg.MatchError(err, "QUERY_ID_INVALID"):
		return fmt.Errorf("%w: %v", callback.ErrQueryExpired, err)
	case tg.MatchError(err, "MESSAGE_NOT_MODIFIED"):
		return fmt.Errorf("%w: %v", callback.ErrMessageNotModified, err)
	case tg.MatchError(err, "MESSAGE_ID_INVALID"):
		return fmt.Errorf("%w: %v", callback.ErrMessageNotFound, err)
	default:
		return err
	}
}

// ConvertMessage builds the client independent view of m. The reply, when
// m is one, is fetched through getReply; a nil getReply skips it.
func ConvertMessage(m *tg.NewMessage, getReply func() (*tg.NewMessage, error)) *types.Message {
	if m == nil || m.Message == nil {
		return nil
	}
	msg := convertObj(m.Message)
	if getReply != nil {
		if reply, err := getReply(); err == nil && reply != nil && reply.Message != nil {
			msg.ReplyTo = convertObj(reply.Message)
		}
	}
	return msg
}

type replySource interface {
	IsReply() bool
	GetReplyMessage() (*tg.NewMessage, error)
}

// ConvertUpdate is ConvertMessage with the reply fetched from Telegram.
func ConvertUpdate(m *tg.NewMessage) *types.Message {
	if m == nil || m.Message == nil {
		return nil
	}
	return convertUpdate(m, m)
}

func convertUpdate(m *tg.NewMessage, src replySource) *types.Message {
	if !src.IsReply() {
		return ConvertMessage(m, nil)
	}
	return ConvertMessage(m, src.GetReplyMessage)
}

// Telegram carries a media caption in the message text; it is split out
// here because the two are scanned for different entity kinds.
func convertObj(obj *tg.MessageObj) *types.Message {
	entities := convertEntities(obj.Entities)
	if obj.Media != nil {
		return &types.Message{Caption: obj.Message, CaptionEntities: entities}
	}
	return &types.Message{Text: obj.Message, Entities: entities}
}

func convertEntities(in []tg.MessageEntity) []types.Entity {
	var out []types.Entity
	for _, e := range in {
		switch v := e.(type) {
		case *tg.MessageEntityURL:
			out = append(out, types.Entity{Type: types.EntityURL, Offset: int(v.Offset), Length: int(v.Length)})
		case *tg.MessageEntityTextURL:
			out = append(out, types.Entity{Type: types.EntityTextLink, Offset: int(v.Offset), Length: int(v.Length), URL: v.URL})
		default:
			out = append(out, types.Entity{Type: types.EntityOther})
		}
	}
	return out
}
