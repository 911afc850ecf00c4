package tgui

import (
	"errors"

	tele "gopkg.in/telebot.v4"
)

// MaxCallbackDataLen is Telegram's callback_data limit in bytes.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Inline builds an inline keyboard row by row.
type Inline struct {
	rm   *tele.ReplyMarkup
	rows []tele.Row
}

func NewInline() *Inline {
	return &Inline{rm: &tele.ReplyMarkup{}}
}

// Row appends one row of buttons.
func (i *Inline) Row(btn ...tele.Btn) *Inline {
	i.rows = append(i.rows, i.rm.Row(btn...))
	i.rm.Inline(i.rows...)
	return i
}

// Rows reports how many rows were added.
func (i *Inline) Rows() int { return len(i.rows) }

func (i *Inline) Markup() *tele.ReplyMarkup { return i.rm }

// Btn is a callback button carrying data verbatim.
func Btn(text, data string) tele.Btn {
	return tele.Btn{Text: text, Data: data}
}

// URLBtn is a button that opens url.
func URLBtn(text, url string) tele.Btn {
	return tele.Btn{Text: text, URL: url}
}

// CheckData validates callback data against Telegram's size limit.
func CheckData(data string) error {
	if len(data) > MaxCallbackDataLen {
		return ErrCallbackDataTooLong
	}
	return nil
}
