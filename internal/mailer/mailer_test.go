package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/diewo77/go-katalog/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core))

	if err := (LogMailer{}).Send(ctx, Message{To: "a@b.id", Subject: "Reset", Body: "link"}); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["to"] != "a@b.id" {
		t.Errorf("logged = %+v", logs.All())
	}
}

func TestSMTPMailer(t *testing.T) {
	m := NewSMTP("smtp.example.com", 587, "noreply@example.com", "pw", "")
	var gotAddr, gotFrom string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotMsg = addr, from, msg
		return nil
	}

	err := m.Send(context.Background(), Message{To: "buyer@example.com", Subject: "Password\nReset", Body: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "noreply@example.com" {
		t.Errorf("addr=%q from=%q", gotAddr, gotFrom)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Password Reset\r\n") || !strings.HasSuffix(msg, "\r\n\r\nhello") {
		t.Errorf("message = %q", msg)
	}

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	if err := m.Send(context.Background(), Message{To: "x@y.id"}); err == nil {
		t.Error("expected relay error")
	}
}
