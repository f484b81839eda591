package domain

import "time"

// BaseModel carries the storage identity and timestamps of persisted rows.
// ID doubles as the ingestion order, which is the order a vault's list is
// loaded in and therefore the tie-break for activities sharing a date.
// There is no DeletedAt: activity is append-only.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
