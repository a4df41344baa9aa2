package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/google/uuid"
)

var (
	ErrRuleNotFound = errors.New("rule not found")
	ErrInvalidRule  = errors.New("invalid rule")
)

// Match types understood by the categorizer
const (
	MatchExact     = "exact"
	MatchSubstring = "substring"
	MatchRegex     = "regex"
	MatchFuzzy     = "fuzzy"
)

const defaultSimilarityThreshold = 0.8

// Rule represents a categorization rule
type Rule struct {
	ID                  uuid.UUID `json:"id"`
	Keyword             string    `json:"keyword"`
	Category            string    `json:"category"`
	Priority            int32     `json:"priority"`
	MatchType           string    `json:"match_type"`
	SimilarityThreshold float64   `json:"similarity_threshold,omitempty"` // For fuzzy matching (0-1)
	CreatedAt           time.Time `json:"created_at"`
}

// RuleStore persists categorization rules
type RuleStore interface {
	ListRules(ctx context.Context) ([]Rule, error)
	InsertRule(ctx context.Context, rule Rule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

// DefaultRules seeds a new rule store with rules for common vendors
func DefaultRules() []Rule {
	seed := []Rule{
		{Keyword: "^(NEFT|IMPS|RTGS).*(SALARY|SAL|PAYROLL)", Category: "Other", Priority: 10, MatchType: MatchRegex},
		{Keyword: "^UPI/.*/(ZOMATO|SWIGGY)", Category: "Food", Priority: 8, MatchType: MatchRegex},
		{Keyword: "zomato", Category: "Food", Priority: 6, MatchType: MatchFuzzy, SimilarityThreshold: 0.7},
		{Keyword: "swiggy", Category: "Food", Priority: 6, MatchType: MatchFuzzy, SimilarityThreshold: 0.7},
		{Keyword: "restaurant", Category: "Food", Priority: 5, MatchType: MatchSubstring},
		{Keyword: "grocer", Category: "Food", Priority: 5, MatchType: MatchSubstring},
		{Keyword: "amazon", Category: "Shopping", Priority: 5, MatchType: MatchSubstring},
		{Keyword: "flipkart", Category: "Shopping", Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "myntra", Category: "Shopping", Priority: 5, MatchType: MatchSubstring},
		{Keyword: "electricity", Category: "Bills", Priority: 7, MatchType: MatchSubstring},
		{Keyword: "broadband", Category: "Bills", Priority: 7, MatchType: MatchSubstring},
		{Keyword: "rent", Category: "Bills", Priority: 7, MatchType: MatchSubstring},
		{Keyword: "recharge", Category: "Bills", Priority: 6, MatchType: MatchSubstring},
		{Keyword: "netflix", Category: "Entertainment", Priority: 6, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "spotify", Category: "Entertainment", Priority: 6, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "bookmyshow", Category: "Entertainment", Priority: 6, MatchType: MatchSubstring},
	}

	// Fixed IDs keep the seed stable across restarts
	for i := range seed {
		seed[i].ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed[i].Category+"/"+seed[i].Keyword))
	}
	return seed
}

// Categorizer handles transaction categorization
type Categorizer struct {
	store      RuleStore
	rules      []Rule
	cacheMutex sync.RWMutex
	cacheTTL   time.Duration
	lastLoaded time.Time
}

// NewCategorizer creates a new categorizer instance
func NewCategorizer(store RuleStore) *Categorizer {
	return &Categorizer{
		store:      store,
		cacheTTL:   5 * time.Minute, // Cache rules for 5 minutes
		lastLoaded: time.Time{},
	}
}

// LoadRules loads all rules from the store into memory
func (c *Categorizer) LoadRules(ctx context.Context) error {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	// Check if cache is still valid
	if time.Since(c.lastLoaded) < c.cacheTTL && c.rules != nil {
		return nil
	}

	rules, err := c.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	c.rules = rules
	if c.rules == nil {
		c.rules = []Rule{}
	}
	c.lastLoaded = time.Now()
	return nil
}

// InvalidateCache forces the next lookup to reload rules
func (c *Categorizer) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.rules = nil
}

// Rules returns the current rule set ordered by priority, highest first
func (c *Categorizer) Rules(ctx context.Context) ([]Rule, error) {
	if err := c.LoadRules(ctx); err != nil {
		return nil, err
	}

	c.cacheMutex.RLock()
	rules := slices.Clone(c.rules)
	c.cacheMutex.RUnlock()

	slices.SortStableFunc(rules, func(a, b Rule) int {
		return int(b.Priority) - int(a.Priority)
	})
	return rules, nil
}

// AddRule validates and stores a new rule
func (c *Categorizer) AddRule(ctx context.Context, rule Rule) (Rule, error) {
	rule.Keyword = strings.TrimSpace(rule.Keyword)
	rule.Category = strings.TrimSpace(rule.Category)
	if rule.MatchType == "" {
		rule.MatchType = MatchSubstring
	}
	if rule.MatchType == MatchFuzzy && rule.SimilarityThreshold == 0 {
		rule.SimilarityThreshold = defaultSimilarityThreshold
	}
	if err := ValidateRule(rule); err != nil {
		return Rule{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Rule{}, fmt.Errorf("generate rule id: %w", err)
	}
	rule.ID = id
	rule.CreatedAt = time.Now().UTC()

	if err := c.store.InsertRule(ctx, rule); err != nil {
		return Rule{}, fmt.Errorf("failed to insert rule: %w", err)
	}

	c.InvalidateCache()
	return rule, nil
}

// DeleteRule removes a rule by id
func (c *Categorizer) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if err := c.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	c.InvalidateCache()
	return nil
}

// ValidateRule checks that a rule can be matched
func ValidateRule(rule Rule) error {
	if rule.Keyword == "" {
		return fmt.Errorf("%w: keyword is required", ErrInvalidRule)
	}
	if rule.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidRule)
	}

	switch rule.MatchType {
	case MatchExact, MatchSubstring, MatchFuzzy:
	case MatchRegex:
		if _, err := regexp.Compile(rule.Keyword); err != nil {
			return fmt.Errorf("%w: bad pattern: %v", ErrInvalidRule, err)
		}
	default:
		return fmt.Errorf("%w: unknown match type %q", ErrInvalidRule, rule.MatchType)
	}

	if rule.SimilarityThreshold < 0 || rule.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold must be between 0 and 1", ErrInvalidRule)
	}
	return nil
}

// Categorize attempts to categorize a transaction description
// Returns category string or empty string if no match
func (c *Categorizer) Categorize(ctx context.Context, description string) (string, error) {
	if err := c.LoadRules(ctx); err != nil {
		return "", err
	}

	c.cacheMutex.RLock()
	rules := c.rules
	c.cacheMutex.RUnlock()

	return c.matchDescription(description, rules), nil
}

// CategorizeOrDefault is Categorize falling back to the default category
func (c *Categorizer) CategorizeOrDefault(ctx context.Context, description string) (string, error) {
	category, err := c.Categorize(ctx, description)
	if err != nil {
		return "", err
	}
	if category == "" {
		return models.DefaultCategory, nil
	}
	return category, nil
}

// matchDescription finds the best matching rule for a description
func (c *Categorizer) matchDescription(description string, rules []Rule) string {
	descUpper := strings.ToUpper(strings.TrimSpace(description))
	descLower := strings.ToLower(descUpper)

	var bestMatch string
	highestPriority := int32(-1)
	highestScore := 0.0

	for _, rule := range rules {
		var matched bool
		var score float64

		// Bank narrations are upper case, so patterns are written against that
		if rule.MatchType == MatchRegex {
			matched, score = c.matchRule(descUpper, rule)
		} else {
			matched, score = c.matchRule(descLower, rule)
		}

		if !matched {
			continue
		}
		if rule.Priority > highestPriority {
			bestMatch = rule.Category
			highestPriority = rule.Priority
			highestScore = score
		} else if rule.Priority == highestPriority && score > highestScore {
			bestMatch = rule.Category
			highestScore = score
		}
	}

	return bestMatch
}

// matchRule checks if a description matches a rule based on match_type
func (c *Categorizer) matchRule(description string, rule Rule) (bool, float64) {
	switch rule.MatchType {
	case MatchExact:
		return c.matchExact(description, strings.ToLower(rule.Keyword))
	case MatchRegex:
		return c.matchRegex(description, rule.Keyword)
	case MatchFuzzy:
		return c.matchFuzzy(description, strings.ToLower(rule.Keyword), rule.SimilarityThreshold)
	default:
		return c.matchSubstring(description, strings.ToLower(rule.Keyword))
	}
}

// matchExact performs exact string matching
func (c *Categorizer) matchExact(description, keyword string) (bool, float64) {
	if description == keyword {
		return true, 1.0
	}
	return false, 0.0
}

// matchSubstring scores a hit by how much of the description the keyword covers
func (c *Categorizer) matchSubstring(description, keyword string) (bool, float64) {
	if strings.Contains(description, keyword) {
		return true, float64(len(keyword)) / float64(len(description))
	}
	return false, 0.0
}

// matchRegex performs regular expression matching
func (c *Categorizer) matchRegex(description, pattern string) (bool, float64) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, 0.0
	}

	if re.MatchString(description) {
		// Slightly below an exact match
		return true, 0.8
	}
	return false, 0.0
}

var patternCache sync.Map

// compilePattern memoizes compiled rule patterns
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// matchFuzzy performs fuzzy string matching using Levenshtein distance
func (c *Categorizer) matchFuzzy(description, keyword string, threshold float64) (bool, float64) {
	if strings.Contains(description, keyword) {
		return true, 1.0
	}

	similarity := c.calculateSimilarity(description, keyword)
	if similarity >= threshold {
		return true, similarity
	}

	maxSimilarity := 0.0
	for _, word := range strings.Fields(description) {
		wordSimilarity := c.calculateSimilarity(word, keyword)
		if wordSimilarity > maxSimilarity {
			maxSimilarity = wordSimilarity
		}
		if wordSimilarity >= threshold {
			return true, wordSimilarity
		}
	}

	return false, maxSimilarity
}

// calculateSimilarity maps Levenshtein distance onto 0..1, where 1 is identical
func (c *Categorizer) calculateSimilarity(s1, s2 string) float64 {
	if len(s1) == 0 && len(s2) == 0 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	distance := c.levenshteinDistance(s1, s2)
	return 1.0 - (float64(distance) / float64(max(len(s1), len(s2))))
}

// levenshteinDistance calculates the Levenshtein distance between two strings
func (c *Categorizer) levenshteinDistance(s1, s2 string) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// RuleStats summarizes the loaded rule set
type RuleStats struct {
	RulesCount      int            `json:"rules_count"`
	CategoriesCount int            `json:"categories_count"`
	ByMatchType     map[string]int `json:"by_match_type"`
}

// GetStats returns categorization statistics
func (c *Categorizer) GetStats(ctx context.Context) (RuleStats, error) {
	rules, err := c.Rules(ctx)
	if err != nil {
		return RuleStats{}, err
	}

	stats := RuleStats{RulesCount: len(rules), ByMatchType: make(map[string]int)}
	categories := make(map[string]struct{})
	for _, r := range rules {
		categories[strings.ToLower(r.Category)] = struct{}{}
		stats.ByMatchType[r.MatchType]++
	}
	stats.CategoriesCount = len(categories)
	return stats, nil
}

// MemoryRuleStore keeps rules in process memory
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewMemoryRuleStore creates a rule store holding seed
func NewMemoryRuleStore(seed ...Rule) *MemoryRuleStore {
	return &MemoryRuleStore{rules: slices.Clone(seed)}
}

func (s *MemoryRuleStore) ListRules(ctx context.Context) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rules), nil
}

func (s *MemoryRuleStore) InsertRule(ctx context.Context, rule Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule)
	return nil
}

func (s *MemoryRuleStore) DeleteRule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.rules, func(r Rule) bool { return r.ID == id })
	if i < 0 {
		return ErrRuleNotFound
	}
	s.rules = slices.Delete(s.rules, i, i+1)
	return nil
}
