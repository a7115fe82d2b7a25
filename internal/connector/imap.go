package connector

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"mailpipe/internal/model"
)

// Retrieve fetches inbox messages from the account's IMAP host. Only the
// v2 profile declares this capability; the registry rejects the call for
// legacy connectors before it gets here.
func (c *SMTPConnector) Retrieve(ctx context.Context, account *model.Account, filter RetrieveFilter) ([]InboxMessage, error) {
	ic, err := client.DialTLS(account.IMAPHost, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer ic.Logout()

	if err := ic.Login(account.Username, account.Secret); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	mbox, err := ic.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	if filter.UnreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	if !filter.Since.IsZero() {
		criteria.Since = filter.Since
	}

	uids, err := ic.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if filter.Limit > 0 && len(uids) > filter.Limit {
		uids = uids[len(uids)-filter.Limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- ic.UidFetch(seqset, items, messages)
	}()

	var out []InboxMessage
	for msg := range messages {
		im := InboxMessage{
			ExternalID: strconv.FormatUint(uint64(msg.Uid), 10),
			Unread:     !hasFlag(msg.Flags, imap.SeenFlag),
		}
		if msg.Envelope != nil {
			im.Subject = msg.Envelope.Subject
			im.Date = msg.Envelope.Date
			if len(msg.Envelope.From) > 0 {
				im.From = msg.Envelope.From[0].Address()
			}
		}
		if body := msg.GetBody(section); body != nil {
			im.Body = readBody(body)
		}
		out = append(out, im)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	return out, nil
}

// MarkAsRead adds the \Seen flag to the message identified by externalID.
func (c *SMTPConnector) MarkAsRead(ctx context.Context, account *model.Account, externalID string) error {
	uid, err := strconv.ParseUint(externalID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid external id %q: %w", externalID, err)
	}

	ic, err := client.DialTLS(account.IMAPHost, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer ic.Logout()

	if err := ic.Login(account.Username, account.Secret); err != nil {
		return fmt.Errorf("failed to login: %w", err)
	}
	if _, err := ic.Select("INBOX", false); err != nil {
		return fmt.Errorf("failed to select INBOX: %w", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := ic.UidStore(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}
	return nil
}

// readBody extracts the first text part of a fetched message, preferring
// whatever part comes first the way the sender ordered them.
func readBody(r io.Reader) string {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return ""
			}
			return strings.TrimSpace(string(data))
		}
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
