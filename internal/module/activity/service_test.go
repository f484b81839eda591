package activity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
	"github.com/simp-lee/vaultfeed/internal/source"
)

// --- mock repository ---

type mockRepo struct {
	stored    []domain.Activity
	createErr error
	vaults    []string
}

func (m *mockRepo) Create(_ context.Context, a *domain.Activity) error {
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = uint(len(m.stored) + 1)
	m.stored = append(m.stored, *a)
	return nil
}

func (m *mockRepo) CreateBatch(_ context.Context, as []domain.Activity) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.stored = append(m.stored, as...)
	return nil
}

func (m *mockRepo) ListByVault(_ context.Context, vault string) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, a := range m.stored {
		if a.Vault == vault {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) Vaults(context.Context) ([]string, error) {
	return m.vaults, nil
}

// --- fake snapshots ---

type fakeSnapshots struct {
	snaps      map[string]feed.Snapshot
	refreshErr error
	refreshes  []string
	onRefresh  func(vault string)
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snaps: make(map[string]feed.Snapshot)}
}

func (f *fakeSnapshots) Refresh(_ context.Context, vault string) error {
	f.refreshes = append(f.refreshes, vault)
	if f.refreshErr != nil {
		return f.refreshErr
	}
	if f.onRefresh != nil {
		f.onRefresh(vault)
	}
	return nil
}

func (f *fakeSnapshots) Snapshot(vault string) feed.Snapshot {
	if s, ok := f.snaps[vault]; ok {
		return s
	}
	return feed.Snapshot{Loading: true}
}

func (f *fakeSnapshots) Loaded(vault string) bool {
	return f.snaps[vault].Version != 0
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sales(n int) []domain.Activity {
	out := make([]domain.Activity, n)
	for i := range out {
		out[i] = newActivity("T-ETH-C", domain.ActivitySales, i)
	}
	return out
}

func TestService_RecordStoresAndRefreshes(t *testing.T) {
	repo := &mockRepo{}
	snaps := newFakeSnapshots()
	svc := NewService(repo, snaps, quietLogger())

	a := domain.Activity{Type: domain.ActivityMinting, Date: baseDate, TxHash: "  0x1 "}
	if err := svc.Record(context.Background(), "T-ETH-C", &a); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(repo.stored) != 1 || repo.stored[0].Vault != "T-ETH-C" || repo.stored[0].TxHash != "0x1" {
		t.Errorf("unexpected stored activity: %+v", repo.stored)
	}
	if len(snaps.refreshes) != 1 || snaps.refreshes[0] != "T-ETH-C" {
		t.Errorf("expected one refresh of T-ETH-C, got %v", snaps.refreshes)
	}
}

func TestService_RecordValidation(t *testing.T) {
	tests := []struct {
		name  string
		vault string
		a     domain.Activity
	}{
		{"bad vault", "T ETH", domain.Activity{Type: domain.ActivitySales, Date: baseDate}},
		{"unknown type", "T-ETH-C", domain.Activity{Type: "burn", Date: baseDate}},
		{"zero date", "T-ETH-C", domain.Activity{Type: domain.ActivitySales}},
		{"negative amount", "T-ETH-C", domain.Activity{Type: domain.ActivitySales, Date: baseDate, Amount: decimal.NewFromInt(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			snaps := newFakeSnapshots()
			svc := NewService(repo, snaps, quietLogger())

			err := svc.Record(context.Background(), tt.vault, &tt.a)
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(repo.stored) != 0 || len(snaps.refreshes) != 0 {
				t.Error("invalid input must not be stored or refreshed")
			}
		})
	}
}

func TestService_RecordRefreshFailureIsNotFatal(t *testing.T) {
	repo := &mockRepo{}
	snaps := newFakeSnapshots()
	snaps.refreshErr = errors.New("down")
	svc := NewService(repo, snaps, quietLogger())

	a := domain.Activity{Type: domain.ActivitySales, Date: baseDate}
	if err := svc.Record(context.Background(), "T-ETH-C", &a); err != nil {
		t.Fatalf("expected write to stand, got %v", err)
	}
	if len(repo.stored) != 1 {
		t.Error("expected activity to be stored")
	}
}

func TestService_RecordRepositoryError(t *testing.T) {
	repo := &mockRepo{createErr: domain.NewAppError(domain.CodeInternal, "database error", nil)}
	snaps := newFakeSnapshots()
	svc := NewService(repo, snaps, quietLogger())

	a := domain.Activity{Type: domain.ActivitySales, Date: baseDate}
	if err := svc.Record(context.Background(), "T-ETH-C", &a); !domain.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(snaps.refreshes) != 0 {
		t.Error("failed write must not refresh")
	}
}

func TestService_RecordBatchReportsIndex(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, newFakeSnapshots(), quietLogger())

	batch := []domain.Activity{
		{Type: domain.ActivitySales, Date: baseDate},
		{Type: "burn", Date: baseDate},
	}
	err := svc.RecordBatch(context.Background(), "T-ETH-C", batch)
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Message != `activities[1]: unknown activity type "burn"` {
		t.Errorf("unexpected message: %v", err)
	}
	if len(repo.stored) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestService_RecordBatch(t *testing.T) {
	repo := &mockRepo{}
	snaps := newFakeSnapshots()
	svc := NewService(repo, snaps, quietLogger())

	batch := []domain.Activity{
		{Type: domain.ActivitySales, Date: baseDate},
		{Type: domain.ActivityMinting, Date: baseDate},
	}
	if err := svc.RecordBatch(context.Background(), "T-ETH-C", batch); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if len(repo.stored) != 2 || repo.stored[1].Vault != "T-ETH-C" {
		t.Errorf("unexpected stored: %+v", repo.stored)
	}
	if len(snaps.refreshes) != 1 {
		t.Errorf("expected a single refresh, got %d", len(snaps.refreshes))
	}
}

func TestService_FeedLoadsUnknownVault(t *testing.T) {
	snaps := newFakeSnapshots()
	snaps.onRefresh = func(vault string) {
		snaps.snaps[vault] = feed.Snapshot{Activities: sales(13), Version: 1}
	}
	svc := NewService(&mockRepo{}, snaps, quietLogger())

	state := feed.DefaultState()
	state.Page = 9
	out, err := svc.Feed(context.Background(), "T-ETH-C", state)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if out.Page != 3 || out.TotalPages != 3 || len(out.Activities) != 1 {
		t.Errorf("expected corrected page 3 of 3 with 1 item, got page %d of %d with %d", out.Page, out.TotalPages, len(out.Activities))
	}
	if out.Status != feed.StatusPopulated {
		t.Errorf("expected populated, got %s", out.Status)
	}

	if _, err := svc.Feed(context.Background(), "T-ETH-C", state); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(snaps.refreshes) != 1 {
		t.Errorf("a loaded vault must not be refreshed on read, got %d refreshes", len(snaps.refreshes))
	}
}

func TestService_FeedUnavailable(t *testing.T) {
	snaps := newFakeSnapshots()
	snaps.refreshErr = errors.New("db down")
	svc := NewService(&mockRepo{}, snaps, quietLogger())

	_, err := svc.Feed(context.Background(), "T-ETH-C", feed.DefaultState())
	if !domain.IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestService_FeedUnknownVaultsAreNotTracked(t *testing.T) {
	src := source.New(&mockRepo{}, source.WithLogger(quietLogger()))
	svc := NewService(&mockRepo{}, src, quietLogger())

	for i := range 1000 {
		out, err := svc.Feed(context.Background(), fmt.Sprintf("junk-%d", i), feed.DefaultState())
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		if out.Status != feed.StatusEmpty || out.Loading {
			t.Fatalf("expected empty, not loading; got %s loading=%v", out.Status, out.Loading)
		}
	}
	if n := len(src.Vaults()); n != 0 {
		t.Errorf("expected no tracked vaults, got %d", n)
	}
	if n := len(src.Statuses()); n != 0 {
		t.Errorf("expected no statuses, got %d", n)
	}
}

func TestService_RecordTracksVault(t *testing.T) {
	repo := &mockRepo{}
	src := source.New(repo, source.WithLogger(quietLogger()))
	svc := NewService(repo, src, quietLogger())

	if _, err := svc.Feed(context.Background(), "T-NEW-C", feed.DefaultState()); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	a := domain.Activity{Type: domain.ActivitySales, Date: baseDate}
	if err := svc.Record(context.Background(), "T-NEW-C", &a); err != nil {
		t.Fatalf("Record: %v", err)
	}

	out, err := svc.Feed(context.Background(), "T-NEW-C", feed.DefaultState())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if out.Status != feed.StatusPopulated || out.ResultCount != 1 {
		t.Errorf("expected one populated result, got %s with %d", out.Status, out.ResultCount)
	}
	if got := src.Vaults(); len(got) != 1 || got[0] != "T-NEW-C" {
		t.Errorf("expected T-NEW-C tracked, got %v", got)
	}
}

func TestService_FeedInvalidVault(t *testing.T) {
	svc := NewService(&mockRepo{}, newFakeSnapshots(), quietLogger())

	_, err := svc.Feed(context.Background(), "", feed.DefaultState())
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Vaults(t *testing.T) {
	svc := NewService(&mockRepo{vaults: []string{"A", "B"}}, newFakeSnapshots(), nil)

	vaults, err := svc.Vaults(context.Background())
	if err != nil {
		t.Fatalf("Vaults: %v", err)
	}
	if len(vaults) != 2 {
		t.Errorf("expected 2 vaults, got %v", vaults)
	}
}
