package gormrepo

import (
	"context"
	"time"

	"mythicforge/internal/adapter/repo/gorm/model"
	"mythicforge/internal/domain/forge"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BindingRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewBindingRepo(db *gorm.DB) BindingRepo {
	return BindingRepo{db: db, now: time.Now}
}

func (r BindingRepo) List(ctx context.Context) ([]forge.NpcBinding, error) {
	var rows []model.NpcBinding
	if err := getDBFromCtx(ctx, r.db).Order("npc_id ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list npc bindings")
	}
	out := make([]forge.NpcBinding, 0, len(rows))
	for _, m := range rows {
		out = append(out, forge.NpcBinding{
			NpcID:             forge.NpcID(m.NpcID),
			RecipeSetID:       m.RecipeSetID,
			InteractionRadius: m.InteractionRadius,
			CooldownSeconds:   int(m.CooldownSeconds),
		})
	}
	return out, nil
}

func (r BindingRepo) Upsert(ctx context.Context, b forge.NpcBinding) error {
	m := model.NpcBinding{
		NpcID:             string(b.NpcID),
		RecipeSetID:       b.RecipeSetID,
		InteractionRadius: b.InteractionRadius,
		CooldownSeconds:   int32(b.CooldownSeconds),
		UpdatedAt:         r.now().UTC(),
	}
	err := getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "npc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"recipe_set_id", "interaction_radius", "cooldown_seconds", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return pkgerrors.Wrap(err, "upsert npc binding")
	}
	return nil
}

func (r BindingRepo) Delete(ctx context.Context, npcID forge.NpcID) error {
	if err := getDBFromCtx(ctx, r.db).Where("npc_id = ?", string(npcID)).Delete(&model.NpcBinding{}).Error; err != nil {
		return pkgerrors.Wrap(err, "delete npc binding")
	}
	return nil
}
