package domain

import (
	"context"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType is the closed set of vault event categories.
type ActivityType string

const (
	ActivityMinting  ActivityType = "minting"
	ActivitySales    ActivityType = "sales"
	ActivityTransfer ActivityType = "transfer"
)

// ActivityTypes lists every known activity type.
var ActivityTypes = []ActivityType{ActivityMinting, ActivitySales, ActivityTransfer}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityMinting, ActivitySales, ActivityTransfer:
		return true
	}
	return false
}

// ActivityFilter selects which activities a feed shows. FilterAll keeps
// everything; the others keep exactly one ActivityType.
type ActivityFilter string

const (
	FilterAll     ActivityFilter = "all"
	FilterMinting ActivityFilter = "minting"
	FilterSales   ActivityFilter = "sales"
)

// ActivityFilters lists the filters offered to users, default first.
var ActivityFilters = []ActivityFilter{FilterAll, FilterMinting, FilterSales}

// Type returns the activity type the filter retains. ok is false for
// FilterAll and for any value not bound to a type.
func (f ActivityFilter) Type() (t ActivityType, ok bool) {
	switch f {
	case FilterMinting:
		return ActivityMinting, true
	case FilterSales:
		return ActivitySales, true
	}
	return "", false
}

// SortBy is the chronological order of a feed.
type SortBy string

const (
	SortLatestFirst SortBy = "latest-first"
	SortOldestFirst SortBy = "oldest-first"
)

// SortOrders lists the sort orders offered to users, default first.
var SortOrders = []SortBy{SortLatestFirst, SortOldestFirst}

// Activity is a single vault event. Only Type and Date drive the feed;
// the remaining fields are carried through untouched.
type Activity struct {
	BaseModel
	Vault   string          `gorm:"size:64;index;not null" json:"vault"`
	Type    ActivityType    `gorm:"size:32;not null" json:"type"`
	Date    time.Time       `gorm:"index;not null" json:"date"`
	TxHash  string          `gorm:"size:66" json:"tx_hash"`
	Address string          `gorm:"size:42" json:"address"`
	Asset   string          `gorm:"size:16" json:"asset"`
	Amount  decimal.Decimal `gorm:"type:decimal(36,18)" json:"amount"`
}

var vaultPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// ValidVault reports whether name is an acceptable vault identifier
// (e.g. "T-ETH-C").
func ValidVault(name string) bool {
	return vaultPattern.MatchString(name)
}

// ActivityRepository defines the data access interface for activities.
// It always returns full per-vault lists; the feed does its own filtering
// and paging in memory.
type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) error
	CreateBatch(ctx context.Context, activities []Activity) error
	ListByVault(ctx context.Context, vault string) ([]Activity, error)
	Vaults(ctx context.Context) ([]string, error)
}
