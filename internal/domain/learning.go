package domain

import "time"

// PromotionEntry is one append-only record in a Learning's promotion
// history, referencing the source namespace it was promoted from.
type PromotionEntry struct {
	FromNamespace string    `json:"from_namespace"`
	ToNamespace   string    `json:"to_namespace"`
	PromotedAt    time.Time `json:"promoted_at"`
}

// Learning is a stored piece of guidance usable to bias future prompts.
type Learning struct {
	ID               string            `json:"id"`
	Namespace        string            `json:"namespace"`
	Content          string            `json:"content"`
	TextForSearch    string            `json:"text_for_search"`
	CreatedBy        string            `json:"created_by"`
	Validations      int               `json:"validations"`
	Confidence       float64           `json:"confidence"`
	PromotionHistory []PromotionEntry  `json:"promotion_history,omitempty"`
	PromotedFrom     string            `json:"promoted_from,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ApplyValidation mutates Validations/Confidence per §4.3's validate(record,
// success) rule: success nudges confidence up by delta, failure down,
// clamped to [0,1].
func (l *Learning) ApplyValidation(success bool, delta float64) {
	l.Validations++
	if success {
		l.Confidence += delta
	} else {
		l.Confidence -= delta
	}
	if l.Confidence > 1 {
		l.Confidence = 1
	}
	if l.Confidence < 0 {
		l.Confidence = 0
	}
	l.UpdatedAt = time.Now()
}

// SearchResult pairs a Learning with its retrieval score.
type SearchResult struct {
	Learning Learning `json:"learning"`
	Score    float64  `json:"score"`
}

// BudgetLedgerEntry is one append-only ledger row.
type BudgetLedgerEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"` // "reserve" | "commit" | "release"
	AmountUSD float64   `json:"amount_usd"`
	RunID     string    `json:"run_id"`
	PilotID   string    `json:"pilot_id,omitempty"`
	AssetID   string    `json:"asset_id,omitempty"`
}
