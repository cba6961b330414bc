package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/account"
	"github.com/ak-softwares/wa-api-sub000/domains/agent"
	domainAI "github.com/ak-softwares/wa-api-sub000/domains/ai"
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	"github.com/ak-softwares/wa-api-sub000/domains/notify"
	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/google/uuid"
)

// fakeProvider scripts per-recipient outcomes.
type fakeProvider struct {
	mu       sync.Mutex
	failFor  map[string]error
	sent     []string
	sequence int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{failFor: make(map[string]error)}
}

func (f *fakeProvider) SendText(_ context.Context, _ domainSend.Credentials, to, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[to]; ok {
		return "", err
	}
	f.sequence++
	f.sent = append(f.sent, to)
	return fmt.Sprintf("wamid.FAKE%d", f.sequence), nil
}

func (f *fakeProvider) SendTemplate(ctx context.Context, creds domainSend.Credentials, to, _, _ string) (string, error) {
	return f.SendText(ctx, creds, to, "")
}

func (f *fakeProvider) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.sent...)
	sort.Strings(out)
	return out
}

// memChatStore is an in-memory chat store for orchestration tests.
type memChatStore struct {
	mu       sync.Mutex
	chats    map[string]*chat.Chat
	messages map[string][]chat.Message
}

func newMemChatStore() *memChatStore {
	return &memChatStore{
		chats:    make(map[string]*chat.Chat),
		messages: make(map[string][]chat.Message),
	}
}

func (s *memChatStore) ResolveOrCreate(_ context.Context, userID, waAccountID string, p chat.Participant) (*chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.UserID == userID && c.WaAccountID == waAccountID && c.Type == chat.ChatTypeSingle &&
			len(c.Participants) == 1 && c.Participants[0].Number == p.Number {
			return c, nil
		}
	}
	c := &chat.Chat{
		ID:           uuid.NewString(),
		UserID:       userID,
		WaAccountID:  waAccountID,
		Type:         chat.ChatTypeSingle,
		ChatName:     p.Name,
		Participants: []chat.Participant{p},
		CreatedAt:    time.Now().UTC(),
	}
	s.chats[c.ID] = c
	return c, nil
}

func (s *memChatStore) CreateBroadcast(_ context.Context, userID, waAccountID, chatName string, participants []chat.Participant) (*chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &chat.Chat{
		ID:           uuid.NewString(),
		UserID:       userID,
		WaAccountID:  waAccountID,
		Type:         chat.ChatTypeBroadcast,
		ChatName:     chatName,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}
	s.chats[c.ID] = c
	return c, nil
}

func (s *memChatStore) GetByID(_ context.Context, chatID string) (*chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return nil, pkgError.NotFoundError("chat not found")
	}
	return c, nil
}

func (s *memChatStore) List(_ context.Context, userID, waAccountID string, _, _ int) ([]chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Chat
	for _, c := range s.chats {
		if c.UserID == userID && (waAccountID == "" || c.WaAccountID == waAccountID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memChatStore) Touch(_ context.Context, chatID, lastMessage string, at time.Time, incrementUnread bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return pkgError.NotFoundError("chat not found")
	}
	c.LastMessage = lastMessage
	c.LastMessageAt = &at
	if incrementUnread {
		c.UnreadCount++
	}
	return nil
}

func (s *memChatStore) MarkRead(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[chatID]; ok {
		c.UnreadCount = 0
	}
	return nil
}

func (s *memChatStore) SetFavourite(_ context.Context, chatID string, favourite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[chatID]; ok {
		c.IsFavourite = favourite
	}
	return nil
}

func (s *memChatStore) AppendMessage(_ context.Context, msg *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}

func (s *memChatStore) RecentMessages(_ context.Context, chatID string, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append([]chat.Message(nil), s.messages[chatID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *memChatStore) UpdateStatusByWaMessageID(_ context.Context, waMessageID string, status chat.MessageStatus) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].WaMessageID != waMessageID {
				continue
			}
			if !msgs[i].Status.CanTransition(status) {
				return nil, nil
			}
			s.messages[chatID][i].Status = status
			updated := s.messages[chatID][i]
			return &updated, nil
		}
	}
	return nil, nil
}

func (s *memChatStore) allMessages(chatID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages[chatID]...)
}

// memUsageStore collects usage rows.
type memUsageStore struct {
	mu   sync.Mutex
	rows []chat.AiUsage
}

func (s *memUsageStore) CreateUsage(_ context.Context, usage *chat.AiUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if usage.ID == "" {
		usage.ID = uuid.NewString()
	}
	s.rows = append(s.rows, *usage)
	return nil
}

func (s *memUsageStore) ListUsage(_ context.Context, userID string, _, _ int) ([]chat.AiUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.AiUsage
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeAccounts serves a fixed set of accounts.
type fakeAccounts struct {
	byPhoneNumberID map[string]*account.WaAccount
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*account.WaAccount, error) {
	for _, acc := range f.byPhoneNumberID {
		if acc.ID == id {
			return acc, nil
		}
	}
	return nil, pkgError.NotFoundError("account not found")
}

func (f *fakeAccounts) GetDefaultByPhoneNumberID(_ context.Context, phoneNumberID string) (*account.WaAccount, error) {
	if acc, ok := f.byPhoneNumberID[phoneNumberID]; ok {
		return acc, nil
	}
	return nil, pkgError.NotFoundError("no default account for phone number")
}

func (f *fakeAccounts) Save(_ context.Context, _ *account.WaAccount) error { return nil }

// fakeForwarder counts forwards.
type fakeForwarder struct {
	mu      sync.Mutex
	calls   int
	lastURL string
	lastRaw map[string]any
	result  agent.Result
}

func (f *fakeForwarder) Forward(_ context.Context, webhookURL string, raw map[string]any) agent.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = webhookURL
	f.lastRaw = raw
	return f.result
}

func (f *fakeForwarder) Test(_ context.Context, _ string) agent.Result { return f.result }

// fakeGenerator scripts one generation outcome.
type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	last   domainAI.GenerateRequest
	result domainAI.GenerateResult
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, req domainAI.GenerateRequest) (domainAI.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.result, f.err
}

// fakeEmitter records notifications.
type fakeEmitter struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeEmitter) Notify(_ string, event notify.Event, _ *chat.Chat, _ *chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEmitter) count(event notify.Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

// fakeModel is a scripted chat-completion provider.
type fakeModel struct {
	mu      sync.Mutex
	history []domainAI.Turn
	system  string
	reply   string
	usage   *domainAI.Usage
	err     error
}

func (f *fakeModel) Complete(_ context.Context, _, systemPrompt string, history []domainAI.Turn, _ int, _ float64) (string, *domainAI.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = systemPrompt
	f.history = append([]domainAI.Turn(nil), history...)
	return f.reply, f.usage, f.err
}
