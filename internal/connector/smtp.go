package connector

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
	"mailpipe/pkg/circuitbreaker"
	"mailpipe/pkg/metrics"
)

// SMTPVersion selects the protocol generation of an SMTP connector.
// Version 1 is the legacy submission-only profile; version 2 adds IMAP
// retrieval, mark-as-read and the reply operations.
type SMTPVersion int

const (
	SMTPv1 SMTPVersion = 1
	SMTPv2 SMTPVersion = 2
)

// SMTPConnector submits mail over SMTP and, for v2, retrieves over IMAP.
// Submission runs under a per-host circuit breaker so one dead relay does
// not hold up every dispatch cycle.
type SMTPConnector struct {
	name    string
	version SMTPVersion

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewSMTPConnector(name string, version SMTPVersion) *SMTPConnector {
	return &SMTPConnector{
		name:     name,
		version:  version,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

func (c *SMTPConnector) breakerFor(host string) *circuitbreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[host]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.DefaultConfig())
		c.breakers[host] = cb
	}
	return cb
}

func (c *SMTPConnector) Name() string { return c.name }

func (c *SMTPConnector) Capabilities() Capability {
	if c.version >= SMTPv2 {
		return CapAll
	}
	return CapSend
}

func (c *SMTPConnector) Send(ctx context.Context, msg *model.Message, account *model.Account) error {
	raw, err := buildMIME(msg, account.Address)
	if err != nil {
		return &SendError{Reason: "failed to encode message", Err: err}
	}

	auth := sasl.NewPlainClient("", account.Username, account.Secret)
	start := time.Now()
	err = c.breakerFor(account.Host).Execute(func() error {
		return smtp.SendMail(account.Host, auth, account.Address, msg.AllRecipients(), bytes.NewReader(raw))
	})
	if err != nil {
		metrics.RecordConnectorSend(c.name, "error", time.Since(start))
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return &SendError{Reason: "mail server temporarily unavailable", Err: err}
		}
		return &SendError{Reason: "smtp submission failed", Err: err}
	}
	metrics.RecordConnectorSend(c.name, "ok", time.Since(start))
	return nil
}

func (c *SMTPConnector) Reply(ctx context.Context, msg *model.Message, account *model.Account) error {
	if c.version < SMTPv2 {
		return &mailerr.CapabilityError{Connector: c.name, Operation: "replying to emails"}
	}
	return c.Send(ctx, msg, account)
}

func (c *SMTPConnector) ReplyAll(ctx context.Context, msg *model.Message, account *model.Account) error {
	if c.version < SMTPv2 {
		return &mailerr.CapabilityError{Connector: c.name, Operation: "replying to emails"}
	}
	return c.Send(ctx, msg, account)
}

// buildMIME assembles the outbound message: one inline text part plus one
// attachment part per stored attachment, content decoded from base64.
func buildMIME(msg *model.Message, from string) ([]byte, error) {
	var b bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", toAddressList(msg.To))
	if len(msg.Cc) > 0 {
		h.SetAddressList("Cc", toAddressList(msg.Cc))
	}
	h.SetSubject(msg.Subject)

	mw, err := mail.CreateWriter(&b, h)
	if err != nil {
		return nil, fmt.Errorf("create mime writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline part: %w", err)
	}
	var th mail.InlineHeader
	if msg.IsHTML {
		th.Set("Content-Type", "text/html; charset=utf-8")
	} else {
		th.Set("Content-Type", "text/plain; charset=utf-8")
	}
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(pw, msg.Body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	pw.Close()
	tw.Close()

	for _, att := range msg.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %q: %w", att.Name, err)
		}
		var ah mail.AttachmentHeader
		ah.Set("Content-Type", att.MimeType)
		ah.SetFilename(att.Name)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := aw.Write(data); err != nil {
			return nil, fmt.Errorf("write attachment: %w", err)
		}
		aw.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mime writer: %w", err)
	}
	return b.Bytes(), nil
}

func toAddressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Address: a})
	}
	return out
}
