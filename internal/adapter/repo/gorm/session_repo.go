package gormrepo

import (
	"context"
	"encoding/json"
	"errors"

	"mythicforge/internal/adapter/repo/gorm/model"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

var liveStates = []string{string(forge.StateReserved), string(forge.StateInProgress)}

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepo {
	return SessionRepo{db: db}
}

func (r SessionRepo) GetByID(ctx context.Context, sessionID string) (forge.Session, error) {
	var m model.ForgeSession
	if err := getDBFromCtx(ctx, r.db).Where("session_id = ?", sessionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return forge.Session{}, ports.ErrNotFound
		}
		return forge.Session{}, pkgerrors.Wrap(err, "get forge session")
	}
	return toSession(m)
}

func (r SessionRepo) SaveWithVersion(ctx context.Context, sess forge.Session, expectedVersion int64) error {
	m, err := fromSession(sess)
	if err != nil {
		return err
	}
	db := getDBFromCtx(ctx, r.db)
	if expectedVersion == 0 {
		if err := db.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ports.ErrConflict
			}
			return pkgerrors.Wrap(err, "insert forge session")
		}
		return nil
	}

	updates := map[string]any{
		"state":          m.State,
		"reason":         m.Reason,
		"funds_held":     m.FundsHeld,
		"progress":       m.Progress,
		"refund_pending": m.RefundPending,
		"refunded":       m.Refunded,
		"grant_pending":  m.GrantPending,
		"output_granted": m.OutputGranted,
		"last_tick_at":   m.LastTickAt,
		"ended_at":       m.EndedAt,
		"version":        m.Version,
	}
	res := db.Model(&model.ForgeSession{}).
		Where("session_id = ? AND version = ?", sess.ID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "update forge session")
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r SessionRepo) Delete(ctx context.Context, sessionID string) error {
	res := getDBFromCtx(ctx, r.db).Where("session_id = ?", sessionID).Delete(&model.ForgeSession{})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete forge session")
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r SessionRepo) ListRecoverable(ctx context.Context) ([]forge.Session, error) {
	var rows []model.ForgeSession
	err := getDBFromCtx(ctx, r.db).
		Where("state IN ? OR refund_pending OR grant_pending", liveStates).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list recoverable forge sessions")
	}
	out := make([]forge.Session, 0, len(rows))
	for _, m := range rows {
		sess, err := toSession(m)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func toSession(m model.ForgeSession) (forge.Session, error) {
	var recipe forge.Recipe
	if err := json.Unmarshal([]byte(m.Recipe), &recipe); err != nil {
		return forge.Session{}, pkgerrors.Wrapf(err, "decode recipe of session %s", m.SessionID)
	}
	return forge.Session{
		ID:              m.SessionID,
		Owner:           forge.PlayerID(m.OwnerID),
		NpcID:           forge.NpcID(m.NpcID),
		Recipe:          recipe,
		CooldownSeconds: int(m.CooldownSeconds),
		State:           forge.State(m.State),
		Reason:          forge.Reason(m.Reason),
		FundsHeld:       m.FundsHeld,
		Progress:        int(m.Progress),
		RefundPending:   m.RefundPending,
		Refunded:        m.Refunded,
		GrantPending:    m.GrantPending,
		OutputGranted:   m.OutputGranted,
		CreatedAt:       m.CreatedAt,
		LastTickAt:      m.LastTickAt,
		EndedAt:         m.EndedAt,
		Version:         m.Version,
	}, nil
}

func fromSession(s forge.Session) (model.ForgeSession, error) {
	recipe, err := json.Marshal(s.Recipe)
	if err != nil {
		return model.ForgeSession{}, pkgerrors.Wrapf(err, "encode recipe of session %s", s.ID)
	}
	return model.ForgeSession{
		SessionID:       s.ID,
		OwnerID:         string(s.Owner),
		NpcID:           string(s.NpcID),
		RecipeID:        string(s.Recipe.ID),
		Recipe:          string(recipe),
		State:           string(s.State),
		Reason:          string(s.Reason),
		FundsHeld:       s.FundsHeld,
		Progress:        int32(s.Progress),
		DurationTicks:   int32(s.Recipe.DurationTicks),
		CooldownSeconds: int32(s.CooldownSeconds),
		RefundPending:   s.RefundPending,
		Refunded:        s.Refunded,
		GrantPending:    s.GrantPending,
		OutputGranted:   s.OutputGranted,
		CreatedAt:       s.CreatedAt,
		LastTickAt:      s.LastTickAt,
		EndedAt:         s.EndedAt,
		Version:         s.Version,
	}, nil
}
