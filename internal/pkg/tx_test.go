package pkg

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type txRow struct {
	ID     uint   `gorm:"primaryKey"`
	TxHash string `gorm:"size:66"`
}

func newTxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&txRow{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&txRow{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTx_CommitsBatch(t *testing.T) {
	db := newTxTestDB(t)

	err := WithTx(context.Background(), db, func(tx *gorm.DB) error {
		for _, h := range []string{"0x01", "0x02", "0x03"} {
			if err := tx.Create(&txRow{TxHash: h}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n := countRows(t, db); n != 3 {
		t.Fatalf("expected 3 rows after commit, got %d", n)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := newTxTestDB(t)

	fnErr := errors.New("row 2 rejected")
	err := WithTx(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&txRow{TxHash: "0x01"}).Error; err != nil {
			t.Fatalf("insert should succeed: %v", err)
		}
		return fnErr
	})
	if !errors.Is(err, fnErr) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if n := countRows(t, db); n != 0 {
		t.Fatalf("expected 0 rows after rollback, got %d", n)
	}
}

func TestWithTx_RollsBackAndRepanics(t *testing.T) {
	db := newTxTestDB(t)

	defer func() {
		r := recover()
		if r != "kaboom" {
			t.Fatalf("expected panic value 'kaboom', got %v", r)
		}
		if n := countRows(t, db); n != 0 {
			t.Fatalf("expected 0 rows after panic rollback, got %d", n)
		}
	}()

	_ = WithTx(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&txRow{TxHash: "0x01"}).Error; err != nil {
			t.Fatalf("insert should succeed: %v", err)
		}
		panic("kaboom")
	})
}

func TestWithTx_CancelledContext(t *testing.T) {
	db := newTxTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTx(ctx, db, func(tx *gorm.DB) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if called {
		t.Error("fn must not run when the transaction cannot begin")
	}
}
