package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
	"github.com/simp-lee/vaultfeed/internal/source"
)

// Snapshots is the part of source.Source the service needs.
type Snapshots interface {
	Refresh(ctx context.Context, vault string) error
	Snapshot(vault string) feed.Snapshot
	Loaded(vault string) bool
}

// Service records vault activity and renders one-shot feed pages.
type Service interface {
	Record(ctx context.Context, vault string, activity *domain.Activity) error
	RecordBatch(ctx context.Context, vault string, activities []domain.Activity) error
	Feed(ctx context.Context, vault string, state feed.State) (feed.Output, error)
	Vaults(ctx context.Context) ([]string, error)
}

type activityService struct {
	repo      domain.ActivityRepository
	snapshots Snapshots
	logger    *slog.Logger
}

// NewService creates a Service. A nil logger means slog.Default().
func NewService(repo domain.ActivityRepository, snapshots Snapshots, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &activityService{repo: repo, snapshots: snapshots, logger: logger}
}

// Record validates and stores one activity, then refreshes the vault so
// open views see it. A failed refresh is logged; the write still stands.
func (s *activityService) Record(ctx context.Context, vault string, activity *domain.Activity) error {
	if err := validateVault(vault); err != nil {
		return err
	}
	activity.Vault = vault
	if err := validateActivity(activity); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, activity); err != nil {
		return err
	}
	s.refresh(ctx, vault)
	return nil
}

// RecordBatch stores activities atomically and refreshes the vault once.
func (s *activityService) RecordBatch(ctx context.Context, vault string, activities []domain.Activity) error {
	if err := validateVault(vault); err != nil {
		return err
	}
	for i := range activities {
		activities[i].Vault = vault
		if err := validateActivity(&activities[i]); err != nil {
			return domain.NewAppError(domain.CodeValidation, fmt.Sprintf("activities[%d]: %s", i, err.Error()), nil)
		}
	}

	if err := s.repo.CreateBatch(ctx, activities); err != nil {
		return err
	}
	s.refresh(ctx, vault)
	return nil
}

// Feed renders state against the vault's latest snapshot. A vault that was
// never loaded is loaded first; if that fails the feed is unavailable.
// After one successful load, later failures serve the last good list. A
// vault with no stored activity renders empty without being tracked.
func (s *activityService) Feed(ctx context.Context, vault string, state feed.State) (feed.Output, error) {
	if err := validateVault(vault); err != nil {
		return feed.Output{}, err
	}

	snap, err := source.Load(ctx, s.snapshots, vault)
	if err != nil {
		return feed.Output{}, err
	}
	out, _ := feed.Derive(snap, state)
	return out, nil
}

// Vaults lists the vaults with stored activity.
func (s *activityService) Vaults(ctx context.Context) ([]string, error) {
	return s.repo.Vaults(ctx)
}

func (s *activityService) refresh(ctx context.Context, vault string) {
	if err := s.snapshots.Refresh(ctx, vault); err != nil {
		s.logger.WarnContext(ctx, "refresh after write failed",
			slog.String("vault", vault),
			slog.Any("error", err),
		)
	}
}

func validateVault(vault string) error {
	if !domain.ValidVault(vault) {
		return domain.NewAppError(domain.CodeValidation, fmt.Sprintf("invalid vault %q", vault), nil)
	}
	return nil
}

func validateActivity(a *domain.Activity) error {
	a.TxHash = strings.TrimSpace(a.TxHash)
	a.Address = strings.TrimSpace(a.Address)
	a.Asset = strings.TrimSpace(a.Asset)

	switch {
	case !a.Type.Valid():
		return domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unknown activity type %q", a.Type), nil)
	case a.Date.IsZero():
		return domain.NewAppError(domain.CodeValidation, "date is required", nil)
	case a.Amount.IsNegative():
		return domain.NewAppError(domain.CodeValidation, "amount must not be negative", nil)
	}
	return nil
}
