// Package testutil provides in-memory store implementations for tests.
// They satisfy the store interfaces of both the dispatch and service
// packages so a real Dispatcher can run against them.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

type MessageStore struct {
	mu       sync.Mutex
	messages map[string]*model.Message
	attSeq   int64
}

func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make(map[string]*model.Message)}
}

func (s *MessageStore) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *MessageStore) Update(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; !ok {
		return mailerr.ErrMessageNotFound
	}
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *MessageStore) Get(_ context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, mailerr.ErrMessageNotFound
	}
	cp := *m
	cp.Attachments = append([]model.Attachment(nil), m.Attachments...)
	return &cp, nil
}

func (s *MessageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return mailerr.ErrMessageNotFound
	}
	delete(s.messages, id)
	return nil
}

func (s *MessageStore) AddAttachment(_ context.Context, messageID string, att *model.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return mailerr.ErrMessageNotFound
	}
	s.attSeq++
	att.ID = s.attSeq
	att.MessageID = messageID
	m.Attachments = append(m.Attachments, *att)
	return nil
}

func (s *MessageStore) DeleteAttachment(_ context.Context, messageID string, attachmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return mailerr.ErrMessageNotFound
	}
	for i, att := range m.Attachments {
		if att.ID == attachmentID {
			m.Attachments = append(m.Attachments[:i], m.Attachments[i+1:]...)
			return nil
		}
	}
	return nil
}

type OutboxStore struct {
	mu      sync.Mutex
	entries map[int64]*model.OutboxEntry
	seq     int64
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{entries: make(map[int64]*model.OutboxEntry)}
}

func (s *OutboxStore) UpsertDraft(_ context.Context, e *model.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.MessageID == e.MessageID {
			existing.Description = e.Description
			existing.UpdatedAt = time.Now()
			e.ID = existing.ID
			e.Status = existing.Status
			return nil
		}
	}
	s.seq++
	e.ID = s.seq
	e.Status = model.StatusDraft
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *OutboxStore) Create(_ context.Context, e *model.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.ID = s.seq
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *OutboxStore) GetByID(_ context.Context, id int64) (*model.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, mailerr.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *OutboxStore) GetByMessageID(_ context.Context, messageID string) (*model.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.MessageID == messageID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, mailerr.ErrEntryNotFound
}

func (s *OutboxStore) SetQueued(_ context.Context, id int64, accountID int64, connector string, notBefore *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return mailerr.ErrEntryNotFound
	}
	e.AccountID = &accountID
	e.Connector = connector
	e.NotBefore = notBefore
	e.Status = model.StatusQueued
	e.ErrorMessage = ""
	e.UpdatedAt = time.Now()
	return nil
}

func (s *OutboxStore) ClaimProcessing(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	switch e.Status {
	case model.StatusDraft, model.StatusQueued, model.StatusFailed:
		e.Status = model.StatusProcessing
		e.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (s *OutboxStore) MarkFailed(_ context.Context, id int64, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return mailerr.ErrEntryNotFound
	}
	e.Status = model.StatusFailed
	e.ErrorMessage = errorMessage
	e.UpdatedAt = time.Now()
	return nil
}

func (s *OutboxStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *OutboxStore) ListReady(_ context.Context, limit int) ([]*model.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var out []*model.OutboxEntry
	for _, e := range s.entries {
		if len(out) >= limit {
			break
		}
		if e.Status != model.StatusQueued {
			continue
		}
		if e.NotBefore != nil && e.NotBefore.After(now) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *OutboxStore) ListByOwner(_ context.Context, ownerID int64) ([]*model.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.OutboxEntry
	for _, e := range s.entries {
		if e.OwnerID == ownerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *OutboxStore) ListFailed(_ context.Context, limit int) ([]*model.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.OutboxEntry
	for _, e := range s.entries {
		if len(out) >= limit {
			break
		}
		if e.Status == model.StatusFailed {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len reports how many entries exist, draft or otherwise.
func (s *OutboxStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type TaskStore struct {
	mu    sync.Mutex
	tasks []*model.ScheduledTask
	seq   int64
}

func NewTaskStore() *TaskStore {
	return &TaskStore{}
}

func (s *TaskStore) Create(_ context.Context, t *model.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.ID = s.seq
	t.CreatedAt = time.Now()
	cp := *t
	s.tasks = append(s.tasks, &cp)
	return nil
}

func (s *TaskStore) ClaimMatured(_ context.Context, now time.Time, limit int) ([]*model.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []*model.ScheduledTask
	var remaining []*model.ScheduledTask
	for _, t := range s.tasks {
		if len(claimed) < limit && !t.NotBefore.After(now) {
			claimed = append(claimed, t)
			continue
		}
		remaining = append(remaining, t)
	}
	s.tasks = remaining
	return claimed, nil
}

// Pending reports how many tasks are still stored.
func (s *TaskStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// All returns the stored tasks for assertions.
func (s *TaskStore) All() []*model.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// SentStore archives delivered messages. BySource resolves through the
// relation store when one is attached, mirroring the SQL join.
type SentStore struct {
	mu        sync.Mutex
	entries   []*model.SentEntry
	seq       int64
	Relations *RelationStore
}

func NewSentStore() *SentStore {
	return &SentStore{}
}

func (s *SentStore) Record(_ context.Context, e *model.SentEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.ID = s.seq
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *SentStore) ByMessageID(_ context.Context, messageID string) (*model.SentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.MessageID == messageID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *SentStore) BySource(ctx context.Context, tableID, recordID string) ([]*model.SentEntry, error) {
	if s.Relations == nil {
		return nil, nil
	}
	related := s.Relations.byTarget(tableID, recordID)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.SentEntry
	for _, e := range s.entries {
		if related[e.MessageID] {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All returns the archived entries for assertions.
func (s *SentStore) All() []*model.SentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.SentEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

type RelationStore struct {
	mu        sync.Mutex
	relations []*model.Relation
	seq       int64
}

func NewRelationStore() *RelationStore {
	return &RelationStore{}
}

func (s *RelationStore) Add(_ context.Context, rel *model.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rel.ID = s.seq
	rel.CreatedAt = time.Now()
	cp := *rel
	s.relations = append(s.relations, &cp)
	return nil
}

func (s *RelationStore) ByMessage(_ context.Context, messageID string) ([]*model.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Relation
	for _, r := range s.relations {
		if r.MessageID == messageID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *RelationStore) byTarget(tableID, recordID string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for _, r := range s.relations {
		if r.TableID == tableID && r.RecordID == recordID {
			out[r.MessageID] = true
		}
	}
	return out
}

type AccountStore struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	seq      int64
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[int64]*model.Account)}
}

func (s *AccountStore) Create(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	a.ID = s.seq
	a.CreatedAt = time.Now()
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *AccountStore) FindByID(_ context.Context, id int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, mailerr.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *AccountStore) ListByUser(_ context.Context, userID int64) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *AccountStore) ListAll(_ context.Context) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Account
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type UserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	seq   int64
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*model.User)}
}

func (s *UserStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u.ID = s.seq
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}
