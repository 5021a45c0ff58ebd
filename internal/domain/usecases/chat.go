package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
)

// ApologyAnswer is returned when the model produced nothing usable.
// Internal failures stay in the logs; the user always gets either an
// answer or this.
const ApologyAnswer = "I'm sorry, I couldn't find a definitive answer. Could you please rephrase?"

// ChatPipeline runs one turn end to end: refresh identity, classify the
// message, retrieve grounding passages, compose the prompt, call the
// model and post-process the reply. All shared state (price summary,
// card lookup, patterns) is immutable after construction, so a single
// pipeline serves concurrent requests; per-turn identity travels in the
// request, never in the pipeline.
type ChatPipeline struct {
	embedder  ports.EmbeddingService
	store     ports.VectorStore
	model     ports.ChatModel
	chatLog   ports.ChatLogStore // nil disables persistence
	resolver  *Resolver
	patterns  *PatternSet
	composer  *Composer
	extractor *CardExtractor
	log       *zap.SugaredLogger

	topK         int
	priceSummary string
}

// NewChatPipeline wires the pipeline. priceSummary is the pre-computed
// grounding block; empty means no pricing grounding is available.
func NewChatPipeline(
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	model ports.ChatModel,
	chatLog ports.ChatLogStore,
	resolver *Resolver,
	patterns *PatternSet,
	composer *Composer,
	extractor *CardExtractor,
	priceSummary string,
	topK int,
	log *zap.Logger,
) *ChatPipeline {
	if topK <= 0 {
		topK = 5
	}
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatPipeline{
		embedder:     embedder,
		store:        store,
		model:        model,
		chatLog:      chatLog,
		resolver:     resolver,
		patterns:     patterns,
		composer:     composer,
		extractor:    extractor,
		log:          log.Sugar(),
		topK:         topK,
		priceSummary: priceSummary,
	}
}

// ExtractIdentifier exposes identifier extraction for session owners
// (the CLI loop tracks the last seen identifier across turns).
func (p *ChatPipeline) ExtractIdentifier(message string) string {
	return p.patterns.ExtractIdentifier(message)
}

// Turn processes one chat request.
func (p *ChatPipeline) Turn(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResult, error) {
	turn, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := p.model.Complete(ctx, turn.system, p.boundedHistory(req.History), turn.finalMessage)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		answer = ApologyAnswer
	}

	answer, followUps := SplitFollowUps(answer)

	var messageID int64
	if p.chatLog != nil {
		id, err := p.chatLog.Save(ctx, req.Message, answer)
		if err != nil {
			p.log.Warnw("saving chat message failed", "error", err)
		} else {
			messageID = id
		}
	}

	sourceTitles := make([]string, 0, len(turn.passages))
	for _, s := range turn.passages {
		sourceTitles = append(sourceTitles, s.Passage.Title)
	}

	var products []entities.ProductCard
	if p.extractor != nil {
		products = p.extractor.Extract(answer, sourceTitles, turn.cls)
	}

	return &entities.ChatResult{
		Answer:    answer,
		Products:  products,
		FollowUps: followUps,
		MessageID: messageID,
		UserRef:   turn.userRef,
		Sources:   turn.passages,
	}, nil
}

// TurnStream runs the same pipeline but streams raw model tokens.
// Post-processing (cards, follow-ups) is the caller's concern once the
// stream completes.
func (p *ChatPipeline) TurnStream(ctx context.Context, req *entities.ChatRequest) (<-chan ports.StreamToken, error) {
	turn, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.model.CompleteStream(ctx, turn.system, p.boundedHistory(req.History), turn.finalMessage)
}

// preparedTurn is the output of the pre-generation stages.
type preparedTurn struct {
	userRef      string
	cls          Classification
	system       string
	finalMessage string
	passages     []entities.RetrievedPassage
}

// prepare runs the stages shared by Turn and TurnStream: identity
// refresh, explicit order lookup, routing, retrieval and prompt
// composition.
func (p *ChatPipeline) prepare(ctx context.Context, req *entities.ChatRequest) (*preparedTurn, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("empty message")
	}

	// An identifier embedded in the message overrides the session one.
	userRef := req.UserRef
	if id := p.patterns.ExtractIdentifier(req.Message); id != "" && !strings.EqualFold(id, userRef) {
		p.log.Debugw("identifier switched", "from", userRef, "to", id)
		userRef = id
	}

	// Identity resolution runs once per turn; the context is discarded
	// with the reply.
	var accountContext string
	if userRef != "" && p.resolver != nil {
		resolved := p.resolver.Resolve(ctx, userRef)
		accountContext = resolved.DisplayText + "\n\n"
	}
	if p.resolver != nil {
		if note := p.resolver.LookupOrder(ctx, req.Message, userRef); note != "" {
			accountContext += note + "\n\n"
		}
	}

	cls := p.patterns.Classify(req.Message)

	passages := p.retrieve(ctx, req.Message)

	finalMessage := req.Message
	if accountContext != "" && cls.OrderRelated {
		finalMessage = BuildOrderPrompt(accountContext, req.Message)
	}

	return &preparedTurn{
		userRef:      userRef,
		cls:          cls,
		system:       p.composer.Compose(p.priceSummary, passages),
		finalMessage: finalMessage,
		passages:     passages,
	}, nil
}

// retrieve embeds the message and searches the vector store. Retrieval
// is best-effort grounding: failures degrade to no passages.
func (p *ChatPipeline) retrieve(ctx context.Context, message string) []entities.RetrievedPassage {
	if p.embedder == nil || p.store == nil {
		return nil
	}
	embedding, err := p.embedder.Embed(ctx, message)
	if err != nil {
		p.log.Warnw("embedding query failed", "error", err)
		return nil
	}
	passages, err := p.store.Search(ctx, embedding, p.topK)
	if err != nil {
		p.log.Warnw("vector search failed", "error", err)
		return nil
	}
	return passages
}

// boundedHistory trims the oldest turns so the history stays inside the
// memory token budget. The budget itself is configured elsewhere and
// only passed through here; tokens are approximated at four characters
// each.
func (p *ChatPipeline) boundedHistory(history []entities.ChatMessage) []entities.ChatMessage {
	budget := p.composer.TokenBudget()
	if budget <= 0 {
		return history
	}
	charBudget := budget * 4
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += len(history[i].Content)
		if total > charBudget {
			break
		}
		start = i
	}
	return history[start:]
}
