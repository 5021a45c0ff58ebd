package usecases

import (
	"context"
	"errors"
	"strings"

	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing.
type mockEmbedder struct{}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// mockVectorStore implements ports.VectorStore for testing.
type mockVectorStore struct {
	passages []entities.Passage
	stored   []entities.Passage
	cleared  bool
}

func (m *mockVectorStore) Store(ctx context.Context, passages []entities.Passage) error {
	m.stored = append(m.stored, passages...)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedPassage, error) {
	results := make([]entities.RetrievedPassage, 0, len(m.passages))
	for _, p := range m.passages {
		results = append(results, entities.RetrievedPassage{Passage: p, Score: 0.9})
		if len(results) >= topK {
			break
		}
	}
	return results, nil
}

func (m *mockVectorStore) Delete(ctx context.Context, productID string) error { return nil }

func (m *mockVectorStore) Clear(ctx context.Context) error {
	m.cleared = true
	return nil
}

// mockChatModel implements ports.ChatModel for testing.
type mockChatModel struct {
	response   string
	lastSystem string
	lastMsg    string
}

func (m *mockChatModel) Complete(ctx context.Context, system string, history []entities.ChatMessage, message string) (string, error) {
	m.lastSystem = system
	m.lastMsg = message
	return m.response, nil
}

func (m *mockChatModel) CompleteStream(ctx context.Context, system string, history []entities.ChatMessage, message string) (<-chan ports.StreamToken, error) {
	m.lastSystem = system
	m.lastMsg = message
	ch := make(chan ports.StreamToken, 1)
	ch <- ports.StreamToken{Content: m.response, Done: true}
	close(ch)
	return ch, nil
}

// mockAccountSource implements ports.AccountSource for testing.
type mockAccountSource struct {
	account *entities.UserAccount
	err     error
}

func (m *mockAccountSource) FindAccount(ctx context.Context, ref string) (*entities.UserAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.account == nil {
		return nil, nil
	}
	if strings.EqualFold(ref, m.account.UserID) || strings.EqualFold(ref, m.account.Email) {
		return m.account, nil
	}
	return nil, nil
}

// mockOrderSource implements ports.OrderSource for testing.
type mockOrderSource struct {
	orders []entities.Order
	err    error
}

func (m *mockOrderSource) OrdersFor(ctx context.Context, ref string) ([]entities.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	var matched []entities.Order
	for _, o := range m.orders {
		if strings.EqualFold(ref, o.CustomerID) || strings.EqualFold(ref, o.Customer.Email) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

func (m *mockOrderSource) FindCustomer(ctx context.Context, ref string) (*entities.Customer, error) {
	for _, o := range m.orders {
		if strings.EqualFold(ref, o.Customer.ID) || strings.EqualFold(ref, o.Customer.Email) {
			c := o.Customer
			return &c, nil
		}
	}
	return nil, nil
}

// mockRemoteOrders implements ports.RemoteOrderClient for testing.
type mockRemoteOrders struct {
	byEmail map[string][]entities.Order
	byRef   map[string]*entities.Order
	calls   int
}

func (m *mockRemoteOrders) OrderByRef(ctx context.Context, ref, email string) (*entities.Order, error) {
	m.calls++
	if m.byRef == nil {
		return nil, nil
	}
	return m.byRef[ref], nil
}

func (m *mockRemoteOrders) OrdersByEmail(ctx context.Context, email string) ([]entities.Order, error) {
	m.calls++
	if m.byEmail == nil {
		return nil, nil
	}
	return m.byEmail[email], nil
}

// mockChatLog implements ports.ChatLogStore for testing.
type mockChatLog struct {
	saved  []entities.ChatRecord
	nextID int64
	err    error
}

func (m *mockChatLog) Save(ctx context.Context, userMessage, botResponse string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.nextID++
	m.saved = append(m.saved, entities.ChatRecord{ID: m.nextID, UserMessage: userMessage, BotResponse: botResponse})
	return m.nextID, nil
}

func (m *mockChatLog) RecordFeedback(ctx context.Context, messageID int64, feedback string) error {
	for i := range m.saved {
		if m.saved[i].ID == messageID {
			m.saved[i].Feedback = feedback
			return nil
		}
	}
	return errors.New("message not found")
}

func (m *mockChatLog) History(ctx context.Context, limit int) ([]entities.ChatRecord, error) {
	return m.saved, nil
}

func (m *mockChatLog) Clear(ctx context.Context) (int64, error) {
	n := int64(len(m.saved))
	m.saved = nil
	return n, nil
}

func (m *mockChatLog) Count(ctx context.Context) (int, error) { return len(m.saved), nil }
