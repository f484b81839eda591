package activity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
)

// VaultURI binds the :vault path parameter.
type VaultURI struct {
	Vault string `uri:"vault" binding:"required,max=64"`
}

// RecordActivityRequest is the input for one ingested activity.
type RecordActivityRequest struct {
	Type    string          `json:"type" binding:"required,oneof=minting sales transfer"`
	Date    time.Time       `json:"date" binding:"required"`
	TxHash  string          `json:"tx_hash" binding:"omitempty,max=66"`
	Address string          `json:"address" binding:"omitempty,max=42"`
	Asset   string          `json:"asset" binding:"omitempty,max=16"`
	Amount  decimal.Decimal `json:"amount"`
}

func (r RecordActivityRequest) toDomain() domain.Activity {
	return domain.Activity{
		Type:    domain.ActivityType(r.Type),
		Date:    r.Date,
		TxHash:  r.TxHash,
		Address: r.Address,
		Asset:   r.Asset,
		Amount:  r.Amount,
	}
}

// RecordBatchRequest ingests several activities in one transaction.
type RecordBatchRequest struct {
	Activities []RecordActivityRequest `json:"activities" binding:"required,min=1,max=500,dive"`
}

// FeedQuery is the view state and viewport carried in a query string.
// Absent fields fall back to feed.DefaultState; the page is corrected, not
// rejected, when out of range.
type FeedQuery struct {
	Filter string `form:"filter" binding:"omitempty,oneof=all minting sales"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=latest-first oldest-first"`
	Page   *int   `form:"page"`
	Width  int    `form:"width" binding:"omitempty,min=0"`
}

// State merges the query over the default view state.
func (q FeedQuery) State() feed.State {
	state := feed.DefaultState()
	if q.Filter != "" {
		state.Filter = domain.ActivityFilter(q.Filter)
	}
	if q.SortBy != "" {
		state.SortBy = domain.SortBy(q.SortBy)
	}
	if q.Page != nil {
		state.Page = *q.Page
	}
	return state
}
