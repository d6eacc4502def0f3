package gormrepo

import (
	"context"
	"errors"
	"time"

	"mythicforge/internal/adapter/repo/gorm/model"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CooldownRepo struct {
	db *gorm.DB
}

func NewCooldownRepo(db *gorm.DB) CooldownRepo {
	return CooldownRepo{db: db}
}

func (r CooldownRepo) NextEligibleAt(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID) (time.Time, error) {
	var m model.ForgeCooldown
	err := getDBFromCtx(ctx, r.db).
		Where("owner_id = ? AND npc_id = ?", string(owner), string(npcID)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ports.ErrNotFound
		}
		return time.Time{}, pkgerrors.Wrap(err, "get forge cooldown")
	}
	return m.NextEligibleAt, nil
}

func (r CooldownRepo) Put(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID, nextEligibleAt time.Time) error {
	m := model.ForgeCooldown{
		OwnerID:        string(owner),
		NpcID:          string(npcID),
		NextEligibleAt: nextEligibleAt,
	}
	err := getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "npc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"next_eligible_at"}),
	}).Create(&m).Error
	if err != nil {
		return pkgerrors.Wrap(err, "put forge cooldown")
	}
	return nil
}

func (r CooldownRepo) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	res := getDBFromCtx(ctx, r.db).Where("next_eligible_at <= ?", now).Delete(&model.ForgeCooldown{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(res.Error, "prune forge cooldowns")
	}
	return int(res.RowsAffected), nil
}
