package adapter

import (
	"net/http"
	"testing"

	tele "gopkg.in/telebot.v4"

	kit "proxybot/internal/transport"
	logx "proxybot/pkg/logx"
)

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: " "}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHTTPClientProxy(t *testing.T) {
	t.Parallel()
	c, err := httpClient("socks5://127.0.0.1:1080", 0)
	if err != nil {
		t.Fatalf("httpClient: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org", nil)
	u, err := c.Transport.(*http.Transport).Proxy(req)
	if err != nil || u == nil || u.Host != "127.0.0.1:1080" {
		t.Fatalf("proxy = %v %v", u, err)
	}
	if _, err := httpClient("::bad", 0); err == nil {
		t.Fatal("expected invalid proxy error")
	}
}

func TestSendOptions(t *testing.T) {
	t.Parallel()
	rm := &tele.ReplyMarkup{}
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyToID: 9, ReplyMarkupAdapter: rm}
	so := sendOptions(opt, true)
	if so.ReplyMarkup != rm || so.ReplyTo == nil || so.ReplyTo.ID != 9 || so.ParseMode != "HTML" || !so.DisableWebPagePreview {
		t.Fatalf("options = %+v", so)
	}
	if sendOptions(opt, false).ReplyMarkup != nil {
		t.Fatal("markup must be omitted")
	}
}

func TestPushDropsWhenFull(t *testing.T) {
	t.Parallel()
	a, err := New(Config{Token: "1:x", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	up := kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{Text: "/start"}}
	a.push(up) // no consumer yet: ignored

	ch := make(chan kit.Update, 1)
	a.out.Store((chan<- kit.Update)(ch))
	a.push(up)
	a.push(up)
	if len(ch) != 1 || a.dropped.Load() != 1 {
		t.Fatalf("len=%d dropped=%d", len(ch), a.dropped.Load())
	}
}
