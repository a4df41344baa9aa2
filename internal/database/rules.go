package database

import (
	"context"
	"fmt"

	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ruleColumns = `id, keyword, category, priority, match_type, similarity_threshold, created_at`

// RuleRepository stores categorization rules in Postgres
type RuleRepository struct {
	db DBTX
}

var _ services.RuleStore = (*RuleRepository)(nil)

// NewRuleRepository creates a repository over db
func NewRuleRepository(db DBTX) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListRules returns every rule, highest priority first
func (r *RuleRepository) ListRules(ctx context.Context) ([]services.Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM categorization_rules ORDER BY priority DESC, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}

	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (services.Rule, error) {
		var rule services.Rule
		err := row.Scan(
			&rule.ID,
			&rule.Keyword,
			&rule.Category,
			&rule.Priority,
			&rule.MatchType,
			&rule.SimilarityThreshold,
			&rule.CreatedAt,
		)
		return rule, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan rules: %w", err)
	}
	return rules, nil
}

// InsertRule stores rule
func (r *RuleRepository) InsertRule(ctx context.Context, rule services.Rule) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO categorization_rules (`+ruleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rule.ID, rule.Keyword, rule.Category, rule.Priority, rule.MatchType, rule.SimilarityThreshold, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// DeleteRule removes the rule with id
func (r *RuleRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categorization_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrRuleNotFound
	}
	return nil
}

// SeedRules inserts rules that are not stored yet, matching on id
func (r *RuleRepository) SeedRules(ctx context.Context, rules []services.Rule) (int, error) {
	inserted := 0
	for _, rule := range rules {
		tag, err := r.db.Exec(ctx,
			`INSERT INTO categorization_rules (id, keyword, category, priority, match_type, similarity_threshold)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			rule.ID, rule.Keyword, rule.Category, rule.Priority, rule.MatchType, rule.SimilarityThreshold,
		)
		if err != nil {
			return inserted, fmt.Errorf("seed rule %q: %w", rule.Keyword, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
