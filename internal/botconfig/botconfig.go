// Package botconfig holds the business configuration: owner profile, bot
// personalities, humanization tuning and response-style limits.
//
// The configuration is loaded once at start and served from memory behind
// a versioned service. Updates go through explicit operations that
// validate against the known personality set and persist the whole
// document back as structured JSON, best-effort: a failed write never
// fails the update, the in-memory copy stays authoritative for the
// running process.
package botconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pokerprotrack/chatbot/internal/models"
)

// ContactInfo is how users can reach the business owner directly.
type ContactInfo struct {
	Email    string `json:"email"`
	Schedule string `json:"schedule"`
}

// BusinessOwner describes the person behind the business, woven into the
// bot's system prompt.
type BusinessOwner struct {
	Name          string      `json:"name"`
	Position      string      `json:"position"`
	Style         string      `json:"style"`
	Expertise     []string    `json:"expertise"`
	FavoriteGames []string    `json:"favoriteGames"`
	Background    string      `json:"background"`
	PersonalTips  []string    `json:"personalTips"`
	ContactInfo   ContactInfo `json:"contactInfo"`
}

// Personality defines one selectable bot persona.
type Personality struct {
	Name         string   `json:"name"`
	Tone         string   `json:"tone"`
	Quirks       []string `json:"quirks"`
	OpeningLines []string `json:"openingLines"`
}

// TypingDelay simulates per-character typing speed, in milliseconds per
// character.
type TypingDelay struct {
	Enabled  bool `json:"enabled"`
	MinSpeed int  `json:"minSpeed"`
	MaxSpeed int  `json:"maxSpeed"`
}

// ThinkingDelay simulates a pause before the bot starts typing, in
// milliseconds.
type ThinkingDelay struct {
	Enabled bool `json:"enabled"`
	MinTime int  `json:"minTime"`
	MaxTime int  `json:"maxTime"`
}

// HumanQuirks tunes the typo/filler/emoji behavior of the chat widget.
type HumanQuirks struct {
	TypoFrequency     float64  `json:"typoFrequency"`
	CorrectionEnabled bool     `json:"correctionEnabled"`
	FillerWords       []string `json:"fillerWords"`
	FillerFrequency   float64  `json:"fillerFrequency"`
	EmojiFrequency    float64  `json:"emojiFrequency"`
}

// Humanization groups the typing-simulation settings.
type Humanization struct {
	TypingDelay   TypingDelay   `json:"typingDelay"`
	ThinkingDelay ThinkingDelay `json:"thinkingDelay"`
	HumanQuirks   HumanQuirks   `json:"humanQuirks"`
}

// ResponseStyle caps how chatty the bot is allowed to be.
type ResponseStyle struct {
	Concise                bool `json:"concise"`
	MaxSentences           int  `json:"maxSentences"`
	AvoidFollowupQuestions bool `json:"avoidFollowupQuestions"`
}

// ProductRecommendations configures the recommendation endpoint: how
// many products to surface and which category synonyms expand a match.
type ProductRecommendations struct {
	Enabled                   bool                `json:"enabled"`
	ShowCount                 int                 `json:"showCount"`
	TriggerOnIntentConfidence models.Confidence   `json:"triggerOnIntentConfidence"`
	CategoriesMapping         map[string][]string `json:"categoriesMapping"`
}

// Config is the full business configuration document.
type Config struct {
	BusinessOwner          BusinessOwner          `json:"businessOwner"`
	Personalities          map[string]Personality `json:"botPersonalities"`
	ActivePersonality      string                 `json:"activePersonality"`
	Humanization           Humanization           `json:"humanization"`
	ResponseStyle          ResponseStyle          `json:"responseStyle"`
	ProductRecommendations ProductRecommendations `json:"productRecommendations"`
}

// Active returns the currently selected personality.
func (c *Config) Active() Personality {
	return c.Personalities[c.ActivePersonality]
}

// Service serves and updates the configuration with a version counter.
type Service struct {
	mu      sync.RWMutex
	cfg     Config
	version int64
	path    string // empty disables persistence
}

// NewService creates a config service seeded with cfg, persisting to path
// on updates when path is non-empty.
func NewService(cfg Config, path string) *Service {
	return &Service{cfg: cfg, version: 1, path: path}
}

// Load reads the configuration document from path. A missing file is not
// an error: the built-in defaults are used and will be written out on the
// first update.
func Load(path string) (*Service, error) {
	if path == "" {
		return NewService(Defaults(), ""), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("botconfig.Load: no config file, using defaults", "path", path)
		return NewService(Defaults(), path), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(cfg.Personalities) == 0 {
		cfg.Personalities = Defaults().Personalities
	}
	if _, ok := cfg.Personalities[cfg.ActivePersonality]; !ok {
		slog.Warn("botconfig.Load: unknown active personality, falling back to default", "active", cfg.ActivePersonality)
		cfg.ActivePersonality = "default"
	}
	slog.Debug("botconfig.Load: configuration loaded", "path", path, "active", cfg.ActivePersonality)
	return NewService(cfg, path), nil
}

// Get returns a copy of the current configuration.
func (s *Service) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Version returns the current configuration version. It increments on
// every successful update.
func (s *Service) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetActivePersonality switches the active persona after validating the
// key against the known personality set.
func (s *Service) SetActivePersonality(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cfg.Personalities[key]; !ok {
		slog.Warn("Service.SetActivePersonality: unknown personality", "key", key)
		return models.ErrInvalidPersonality
	}
	s.cfg.ActivePersonality = key
	s.version++
	s.persistLocked()
	slog.Info("Service.SetActivePersonality: personality switched", "active", key, "version", s.version)
	return nil
}

// OwnerUpdate carries a partial update of the owner profile. Nil fields
// are left unchanged.
type OwnerUpdate struct {
	Name         *string   `json:"name,omitempty"`
	Position     *string   `json:"position,omitempty"`
	Style        *string   `json:"style,omitempty"`
	Expertise    *[]string `json:"expertise,omitempty"`
	Background   *string   `json:"background,omitempty"`
	PersonalTips *[]string `json:"personalTips,omitempty"`
}

// UpdateOwner merges a partial owner-profile update.
func (s *Service) UpdateOwner(update OwnerUpdate) BusinessOwner {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update.Name != nil {
		s.cfg.BusinessOwner.Name = *update.Name
	}
	if update.Position != nil {
		s.cfg.BusinessOwner.Position = *update.Position
	}
	if update.Style != nil {
		s.cfg.BusinessOwner.Style = *update.Style
	}
	if update.Expertise != nil {
		s.cfg.BusinessOwner.Expertise = *update.Expertise
	}
	if update.Background != nil {
		s.cfg.BusinessOwner.Background = *update.Background
	}
	if update.PersonalTips != nil {
		s.cfg.BusinessOwner.PersonalTips = *update.PersonalTips
	}
	s.version++
	s.persistLocked()
	return s.cfg.BusinessOwner
}

// UpdateHumanization replaces the humanization settings wholesale.
func (s *Service) UpdateHumanization(h Humanization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Humanization = h
	s.version++
	s.persistLocked()
}

// snapshot copies the config so callers cannot mutate shared state.
// Callers must hold at least a read lock.
func (s *Service) snapshot() Config {
	out := s.cfg
	out.Personalities = make(map[string]Personality, len(s.cfg.Personalities))
	for k, v := range s.cfg.Personalities {
		out.Personalities[k] = v
	}
	return out
}

// persistLocked writes the document back to disk, best-effort. Callers
// must hold the write lock.
func (s *Service) persistLocked() {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		slog.Warn("Service.persistLocked: marshal failed, keeping in-memory copy", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		slog.Warn("Service.persistLocked: directory creation failed, keeping in-memory copy", "error", err, "path", s.path)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		slog.Warn("Service.persistLocked: write failed, keeping in-memory copy", "error", err, "path", s.path)
	}
}
