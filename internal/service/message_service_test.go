package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/notify"
)

func TestCreateAssignsID(t *testing.T) {
	f := newFixture(t)

	m, err := f.messageService.Create(context.Background(), ComposeInput{
		To:      []string{"a@example.com"},
		Cc:      []string{"b@example.com"},
		Subject: "hi",
		Body:    "text",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, m.AllRecipients())
}

func TestGetMissingMessage(t *testing.T) {
	f := newFixture(t)

	_, err := f.messageService.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, mailerr.ErrMessageNotFound)
	assert.EqualError(t, err, "message has been deleted by another user")
}

func TestCreateReplyQuotesOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain, err := f.messageService.CreateReply(ctx, ComposeInput{
		To:      []string{"a@example.com"},
		Subject: "Re: status",
		Body:    "thanks",
	}, "original text")
	require.NoError(t, err)
	assert.Equal(t, "thanks\n\n> original text", plain.Body)

	html, err := f.messageService.CreateReply(ctx, ComposeInput{
		To:      []string{"a@example.com"},
		Subject: "Re: status",
		Body:    "<p>thanks</p>",
		IsHTML:  true,
	}, "<p>original</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>thanks</p><br><br><blockquote><p>original</p></blockquote>", html.Body)
}

func TestUpdateDraftGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "draft")
	account := f.newAccount(t, f.owner.UserID)
	in := ComposeInput{To: []string{"a@example.com"}, Subject: "edited", Body: "new"}

	// No entry yet: free to edit.
	updated, err := f.messageService.UpdateDraft(ctx, f.owner, msg.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Subject)

	// Draft entry: still editable.
	_, err = f.outboxService.SaveAsDraft(ctx, f.owner, msg.ID)
	require.NoError(t, err)
	_, err = f.messageService.UpdateDraft(ctx, f.owner, msg.ID, in)
	require.NoError(t, err)

	// Queued: locked.
	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)
	_, err = f.messageService.UpdateDraft(ctx, f.owner, msg.ID, in)
	assert.ErrorIs(t, err, mailerr.ErrEntryQueued)

	// Processing: locked with the in-flight message.
	claimed, err := f.outbox.ClaimProcessing(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	_, err = f.messageService.UpdateDraft(ctx, f.owner, msg.ID, in)
	assert.ErrorIs(t, err, mailerr.ErrEntryProcessing)
}

func TestUpdateAfterSentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "goes out")
	account := f.newAccount(t, f.owner.UserID)

	sent, err := f.outboxService.Send(ctx, f.owner, msg.ID, account.ID, "stub")
	require.NoError(t, err)
	require.True(t, sent)

	_, err = f.messageService.UpdateDraft(ctx, f.owner, msg.ID, ComposeInput{Subject: "too late"})
	assert.ErrorIs(t, err, mailerr.ErrAlreadySent)
}

func TestAddAttachmentAllowedWhileQueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "with files")
	account := f.newAccount(t, f.owner.UserID)

	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)

	att, err := f.messageService.AddAttachment(ctx, f.owner, msg.ID, "a.pdf", "application/pdf", "JVBERi0=")
	require.NoError(t, err)
	assert.NotZero(t, att.ID)

	// But deleting one is an edit and the edit gate is already closed.
	err = f.messageService.DeleteAttachment(ctx, f.owner, msg.ID, att.ID)
	assert.ErrorIs(t, err, mailerr.ErrEntryQueued)

	// Processing closes the attach gate too.
	claimed, err := f.outbox.ClaimProcessing(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	_, err = f.messageService.AddAttachment(ctx, f.owner, msg.ID, "b.pdf", "application/pdf", "JVBERi0=")
	assert.ErrorIs(t, err, mailerr.ErrEntryProcessing)
}

func TestDeleteAttachmentWhileDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "drafting")

	att, err := f.messageService.AddAttachment(ctx, f.owner, msg.ID, "a.pdf", "application/pdf", "JVBERi0=")
	require.NoError(t, err)

	require.NoError(t, f.messageService.DeleteAttachment(ctx, f.owner, msg.ID, att.ID))

	got, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attachments)
}

func TestAttachFromSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "needs invoice")

	f.notifier.SubscribeGetAttachment(func(ev notify.GetAttachment) (*notify.AttachmentCandidate, bool) {
		if ev.TableID != "invoices" {
			return nil, false
		}
		return &notify.AttachmentCandidate{
			Name:     ev.Name,
			MimeType: "application/pdf",
			Content:  "JVBERi0=",
		}, true
	})

	att, err := f.messageService.AttachFromSource(ctx, f.owner, msg.ID, "invoices", "42", "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", att.Name)

	got, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "JVBERi0=", got.Attachments[0].Content)

	// No subscriber can serve the record: surfaced as an error.
	_, err = f.messageService.AttachFromSource(ctx, f.owner, msg.ID, "orders", "7", "order.pdf")
	assert.Error(t, err)
}

func TestDuplicateAttachmentNamesKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "dupes")

	_, err := f.messageService.AddAttachment(ctx, f.owner, msg.ID, "a.pdf", "application/pdf", "Zmlyc3Q=")
	require.NoError(t, err)
	_, err = f.messageService.AddAttachment(ctx, f.owner, msg.ID, "a.pdf", "application/pdf", "c2Vjb25k")
	require.NoError(t, err)

	got, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attachments, 2)
}

func TestDeleteAttachmentUnknownIDIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "sparse")

	err := f.messageService.DeleteAttachment(ctx, f.owner, msg.ID, 999)
	assert.NoError(t, err)
}
