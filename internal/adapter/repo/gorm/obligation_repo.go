package gormrepo

import (
	"context"
	"time"

	"mythicforge/internal/adapter/repo/gorm/model"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ObligationRepo struct {
	db *gorm.DB
}

func NewObligationRepo(db *gorm.DB) ObligationRepo {
	return ObligationRepo{db: db}
}

func (r ObligationRepo) Enqueue(ctx context.Context, o ports.Obligation) error {
	m := model.ForgeObligation{
		SessionID:     o.SessionID,
		Kind:          string(o.Kind),
		OwnerID:       string(o.Owner),
		Amount:        o.Amount,
		ItemKind:      string(o.Item.Kind),
		ItemQty:       int32(o.Item.Quantity),
		Attempts:      int32(o.Attempts),
		NextAttemptAt: o.NextAttemptAt,
		LastError:     o.LastError,
		CreatedAt:     o.CreatedAt,
	}
	err := getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
	if err != nil {
		return pkgerrors.Wrap(err, "enqueue forge obligation")
	}
	return nil
}

func (r ObligationRepo) Due(ctx context.Context, now time.Time, limit int) ([]ports.Obligation, error) {
	var rows []model.ForgeObligation
	q := getDBFromCtx(ctx, r.db).
		Where("settled_at IS NULL AND next_attempt_at <= ?", now).
		Order("next_attempt_at ASC").
		Order("session_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list due forge obligations")
	}
	out := make([]ports.Obligation, 0, len(rows))
	for _, m := range rows {
		out = append(out, ports.Obligation{
			SessionID:     m.SessionID,
			Kind:          ports.ObligationKind(m.Kind),
			Owner:         forge.PlayerID(m.OwnerID),
			Amount:        m.Amount,
			Item:          forge.ItemStack{Kind: forge.ItemKind(m.ItemKind), Quantity: int(m.ItemQty)},
			Attempts:      int(m.Attempts),
			NextAttemptAt: m.NextAttemptAt,
			LastError:     m.LastError,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out, nil
}

func (r ObligationRepo) MarkSettled(ctx context.Context, sessionID string, kind ports.ObligationKind, settledAt time.Time) error {
	return r.update(ctx, sessionID, kind, map[string]any{"settled_at": settledAt})
}

func (r ObligationRepo) Reschedule(ctx context.Context, sessionID string, kind ports.ObligationKind, attempts int, next time.Time, lastErr string) error {
	return r.update(ctx, sessionID, kind, map[string]any{
		"attempts":        int32(attempts),
		"next_attempt_at": next,
		"last_error":      lastErr,
	})
}

func (r ObligationRepo) update(ctx context.Context, sessionID string, kind ports.ObligationKind, updates map[string]any) error {
	res := getDBFromCtx(ctx, r.db).
		Model(&model.ForgeObligation{}).
		Where("session_id = ? AND kind = ?", sessionID, string(kind)).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "update forge obligation")
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r ObligationRepo) Pending(ctx context.Context) (int, error) {
	var n int64
	err := getDBFromCtx(ctx, r.db).Model(&model.ForgeObligation{}).Where("settled_at IS NULL").Count(&n).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "count pending forge obligations")
	}
	return int(n), nil
}
