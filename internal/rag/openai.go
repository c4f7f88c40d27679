package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dkrylov/shoply/internal/config"
	"github.com/dkrylov/shoply/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPromptTemplate = `You are a helpful e-commerce assistant. Use the following product information to answer questions.
Be friendly, concise, and helpful. If asked about ordering, confirm the product details with the user.

Context from product catalog:
%s

Instructions:
- If the customer wants to order something, confirm the product name, price, and ask for confirmation
- If searching for products, suggest relevant items from the catalog
- For questions about categories, provide helpful suggestions
- Always be polite and professional`

const storeInfoText = `Welcome to our store!
We offer products in the following categories: electronics, fashion, home, beauty, books, sports, toys, and grocery.
You can browse products, add them to favorites, leave reviews, and place orders.
Our assistant can help you find products, answer questions, and verify orders.`

type memoryTurn struct {
	user      string
	assistant string
}

// OpenAIAssistant answers chat turns with OpenAI chat completions over
// an embeddings-backed catalog index.
type OpenAIAssistant struct {
	client openai.Client
	cfg    config.AIConfig
	index  *Index

	mu       sync.Mutex
	memories map[int64][]memoryTurn
}

// NewOpenAI creates the OpenAI-backed assistant.
func NewOpenAI(cfg config.AIConfig) *OpenAIAssistant {
	return &OpenAIAssistant{
		client:   openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		cfg:      cfg,
		index:    NewIndex(),
		memories: make(map[int64][]memoryTurn),
	}
}

// Reindex embeds the catalog plus general store information into the
// retrieval index, replacing the previous contents.
func (a *OpenAIAssistant) Reindex(ctx context.Context, products []*domain.Product) error {
	texts := make([]string, 0, len(products)+1)
	sources := make([]*Source, 0, len(products)+1)

	for _, p := range products {
		texts = append(texts, productDocument(p))
		sources = append(sources, &Source{ProductID: p.ID, Name: p.Name, Price: p.Price})
	}
	texts = append(texts, storeInfoText)
	sources = append(sources, nil)

	vectors, err := a.embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed catalog: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embed catalog: got %d vectors for %d documents", len(vectors), len(texts))
	}

	docs := make([]Document, len(texts))
	for i := range texts {
		docs[i] = Document{Text: texts[i], Vector: vectors[i], Source: sources[i]}
	}
	a.index.Reset(docs)

	slog.Info("Retrieval index rebuilt", "documents", len(docs))
	return nil
}

// Chat embeds the message, retrieves catalog context and asks the chat
// model for an answer. Sources carry the product metadata of every
// retrieved product document, in retrieval order.
func (a *OpenAIAssistant) Chat(ctx context.Context, userID int64, message string) (*Reply, error) {
	vectors, err := a.embed(ctx, []string{message})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches := a.index.Search(vectors[0], a.cfg.RetrievalTopK)

	var contextText strings.Builder
	var sources []Source
	for _, m := range matches {
		contextText.WriteString(m.Document.Text)
		contextText.WriteString("\n\n")
		if m.Document.Source != nil {
			sources = append(sources, *m.Document.Source)
		}
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(systemPromptTemplate, contextText.String())),
	}
	for _, turn := range a.history(userID) {
		messages = append(messages, openai.UserMessage(turn.user))
		messages = append(messages, openai.AssistantMessage(turn.assistant))
	}
	messages = append(messages, openai.UserMessage(message))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.cfg.ChatModel),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}

	answer := resp.Choices[0].Message.Content
	a.remember(userID, message, answer)

	return &Reply{
		Response:    answer,
		Sources:     sources,
		OrderIntent: DetectOrderIntent(message),
	}, nil
}

// ClearMemory drops the conversation memory for a user.
func (a *OpenAIAssistant) ClearMemory(userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.memories, userID)
}

func (a *OpenAIAssistant) history(userID int64) []memoryTurn {
	a.mu.Lock()
	defer a.mu.Unlock()
	turns := a.memories[userID]
	copied := make([]memoryTurn, len(turns))
	copy(copied, turns)
	return copied
}

func (a *OpenAIAssistant) remember(userID int64, user, assistant string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	turns := append(a.memories[userID], memoryTurn{user: user, assistant: assistant})
	if len(turns) > a.cfg.MemoryTurns {
		turns = turns[len(turns)-a.cfg.MemoryTurns:]
	}
	a.memories[userID] = turns
}

func (a *OpenAIAssistant) embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(a.cfg.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(resp.Data))
	for i := range resp.Data {
		vectors[i] = resp.Data[i].Embedding
	}
	return vectors, nil
}

func productDocument(p *domain.Product) string {
	return fmt.Sprintf(
		"Product: %s\nCategory: %s\nPrice: $%.2f\nDescription: %s\nRating: %.1f/5 (%d reviews)\nStock: %d available\nProduct ID: %d",
		p.Name, p.Category, p.Price, p.Description, p.RoundedRating(), p.RatingCount, p.Stock, p.ID,
	)
}
