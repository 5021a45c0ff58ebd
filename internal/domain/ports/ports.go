// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// ChatModel generates text replies from a language model.
// Single Responsibility: Only chat inference, no embedding logic.
type ChatModel interface {
	// Complete produces a reply given a system instruction, prior turns
	// and the final user message.
	Complete(ctx context.Context, system string, history []entities.ChatMessage, message string) (string, error)

	// CompleteStream produces a streaming reply (for real-time UI).
	CompleteStream(ctx context.Context, system string, history []entities.ChatMessage, message string) (<-chan StreamToken, error)
}

// StreamToken represents a single token in a streaming model response.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists and queries catalog passages.
// The search side is the retriever collaborator: ordered hits with a
// per-call result cap.
type VectorStore interface {
	// Store saves passages with their embeddings.
	Store(ctx context.Context, passages []entities.Passage) error

	// Search finds the most similar passages to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedPassage, error)

	// Delete removes all passages for a product.
	Delete(ctx context.Context, productID string) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error
}

// CatalogSource reads the raw product records.
type CatalogSource interface {
	Products(ctx context.Context) ([]entities.Product, error)
}

// AccountSource looks up a user account by id or email.
// Returns (nil, nil) when no record matches; an error means the source
// itself was unavailable and the caller decides whether to degrade.
type AccountSource interface {
	FindAccount(ctx context.Context, ref string) (*entities.UserAccount, error)
}

// OrderSource looks up order history by customer id or customer email.
// Returns (nil, nil) when no record matches.
type OrderSource interface {
	OrdersFor(ctx context.Context, ref string) ([]entities.Order, error)

	// FindCustomer returns the customer profile attached to any order of
	// the given id or email.
	FindCustomer(ctx context.Context, ref string) (*entities.Customer, error)
}

// RemoteOrderClient is the optional remote order API.
type RemoteOrderClient interface {
	// OrderByRef fetches a single order by id, falling back to a
	// display-id query (optionally scoped by email) when the direct
	// lookup 404s. Returns (nil, nil) when nothing matches.
	OrderByRef(ctx context.Context, ref, email string) (*entities.Order, error)

	// OrdersByEmail lists the orders attached to an email.
	OrdersByEmail(ctx context.Context, email string) ([]entities.Order, error)
}

// ChatLogStore is the append-only chat transcript with feedback.
type ChatLogStore interface {
	// Save persists one exchange and returns its id.
	Save(ctx context.Context, userMessage, botResponse string) (int64, error)

	// RecordFeedback stores a "good" or "bad" vote for a message.
	RecordFeedback(ctx context.Context, messageID int64, feedback string) error

	// History returns the most recent exchanges, newest first.
	History(ctx context.Context, limit int) ([]entities.ChatRecord, error)

	// Clear deletes the transcript and returns how many rows were removed.
	Clear(ctx context.Context) (int64, error)

	// Count returns the number of stored exchanges.
	Count(ctx context.Context) (int, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
