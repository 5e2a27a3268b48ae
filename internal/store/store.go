// Package store provides storage backends for the support-chat service.
//
// It includes an in-memory store used by tests and development, plus
// SQLite and PostgreSQL implementations for persistent deployments. All
// backends share the same semantics: not-found reads return (nil, nil),
// and writers are serialized per backend. That is stronger than the
// whole-file read-modify-write persistence of the system this replaces,
// whose concurrent writers could silently lose updates.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/pokerprotrack/chatbot/internal/models"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Connection
// URLs and key=value connection strings are Postgres; anything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Store is the persistence interface consumed by the flow repository, the
// conversation orchestrator and the analytics recorder.
type Store interface {
	// Sales flows. ListFlows returns flows in creation order; trigger
	// matching depends on that order.
	SaveFlow(flow models.SalesFlow) error
	GetFlow(id int64) (*models.SalesFlow, error)
	ListFlows() ([]models.SalesFlow, error)
	DeleteFlow(id int64) error

	// Conversation history, append-only per user.
	AddConversationTurn(turn models.ConversationTurn) error
	GetConversationHistory(userID string) ([]models.ConversationTurn, error)

	// Saved full transcripts from the admin surface.
	SaveConversation(conv models.SavedConversation) error

	// Knowledge base consumed by the prompt assembler.
	GetAllFaqs() ([]models.Faq, error)
	SaveFaq(faq models.Faq) error
	GetAllConcepts() ([]models.Concept, error)
	SaveConcept(concept models.Concept) error
	GetAllProducts() ([]models.Product, error)
	SaveProduct(product models.Product) error

	// Sales-funnel analytics, stored as a single document.
	GetSalesAnalytics() (*models.SalesAnalytics, error)
	SaveSalesAnalytics(analytics *models.SalesAnalytics) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, connection string
// for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a mutex-guarded in-memory implementation of Store.
type InMemoryStore struct {
	mu        sync.RWMutex
	flows     []models.SalesFlow
	turns     []models.ConversationTurn
	saved     []models.SavedConversation
	faqs      []models.Faq
	concepts  []models.Concept
	products  []models.Product
	analytics *models.SalesAnalytics
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// SaveFlow inserts the flow, or replaces the stored flow with the same id
// while keeping its position in creation order.
func (s *InMemoryStore) SaveFlow(flow models.SalesFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.flows {
		if s.flows[i].ID == flow.ID {
			s.flows[i] = flow
			return nil
		}
	}
	s.flows = append(s.flows, flow)
	return nil
}

func (s *InMemoryStore) GetFlow(id int64) (*models.SalesFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.flows {
		if s.flows[i].ID == id {
			flow := s.flows[i]
			return &flow, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListFlows() ([]models.SalesFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SalesFlow, len(s.flows))
	copy(out, s.flows)
	return out, nil
}

// DeleteFlow removes the flow with the given id. Deleting an unknown id is
// a no-op; the repository layer decides whether that is an error.
func (s *InMemoryStore) DeleteFlow(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.flows {
		if s.flows[i].ID == id {
			s.flows = append(s.flows[:i], s.flows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *InMemoryStore) AddConversationTurn(turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return nil
}

func (s *InMemoryStore) GetConversationHistory(userID string) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var history []models.ConversationTurn
	for _, turn := range s.turns {
		if turn.UserID == userID {
			history = append(history, turn)
		}
	}
	return history, nil
}

func (s *InMemoryStore) SaveConversation(conv models.SavedConversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, conv)
	return nil
}

func (s *InMemoryStore) GetAllFaqs() ([]models.Faq, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Faq, len(s.faqs))
	copy(out, s.faqs)
	return out, nil
}

func (s *InMemoryStore) SaveFaq(faq models.Faq) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.faqs {
		if s.faqs[i].ID == faq.ID {
			s.faqs[i] = faq
			return nil
		}
	}
	s.faqs = append(s.faqs, faq)
	return nil
}

func (s *InMemoryStore) GetAllConcepts() ([]models.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Concept, len(s.concepts))
	copy(out, s.concepts)
	return out, nil
}

func (s *InMemoryStore) SaveConcept(concept models.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.concepts {
		if s.concepts[i].ID == concept.ID {
			s.concepts[i] = concept
			return nil
		}
	}
	s.concepts = append(s.concepts, concept)
	return nil
}

func (s *InMemoryStore) GetAllProducts() ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *InMemoryStore) SaveProduct(product models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == product.ID {
			s.products[i] = product
			return nil
		}
	}
	s.products = append(s.products, product)
	return nil
}

func (s *InMemoryStore) GetSalesAnalytics() (*models.SalesAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analytics == nil {
		return nil, nil
	}
	return cloneAnalytics(s.analytics), nil
}

func (s *InMemoryStore) SaveSalesAnalytics(analytics *models.SalesAnalytics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analytics = cloneAnalytics(analytics)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

func cloneAnalytics(in *models.SalesAnalytics) *models.SalesAnalytics {
	out := *in
	out.CommonKeywordsBeforePurchase = make(map[string]int, len(in.CommonKeywordsBeforePurchase))
	for k, v := range in.CommonKeywordsBeforePurchase {
		out.CommonKeywordsBeforePurchase[k] = v
	}
	out.SalesStageTransitions = make(map[models.FunnelStage]int, len(in.SalesStageTransitions))
	for k, v := range in.SalesStageTransitions {
		out.SalesStageTransitions[k] = v
	}
	out.ProductsMentioned = make(map[int64]int, len(in.ProductsMentioned))
	for k, v := range in.ProductsMentioned {
		out.ProductsMentioned[k] = v
	}
	return &out
}

// SortedProductMentions returns product ids ordered by descending mention
// count, ties broken by ascending id for determinism.
func SortedProductMentions(mentions map[int64]int) []int64 {
	ids := make([]int64, 0, len(mentions))
	for id := range mentions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if mentions[ids[i]] != mentions[ids[j]] {
			return mentions[ids[i]] > mentions[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
