package httpadapter

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"

	"mythicforge/internal/app/engine"
	"mythicforge/internal/app/placeholder"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const bridgeKeyHeader = "X-Forge-Key"

var ErrInvalidBridgeKey = errors.New("invalid or missing x-forge-key header")

type Handler struct {
	Engine       *engine.Engine
	Placeholders placeholder.Resolver
	KPI          kpiSnapshotProvider
	// BridgeKey, when set, must match X-Forge-Key on every /api request.
	BridgeKey string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	api := s.Group("/api", h.bridgeAuth())
	forgeGroup := api.Group("/forge")
	forgeGroup.POST("/interact", h.interact)
	forgeGroup.POST("/cancel", h.cancel)
	forgeGroup.GET("/session", h.session)
	forgeGroup.POST("/drain", h.drain)
	api.GET("/placeholder/:param", h.placeholder)

	admin := api.Group("/admin")
	admin.GET("/bindings", h.listBindings)
	admin.POST("/bindings", h.bind)
	admin.DELETE("/bindings/:npc_id", h.unbind)
	admin.POST("/bindings/arm", h.arm)
	admin.POST("/bindings/disarm", h.disarm)
	admin.POST("/reload", h.reload)

	s.GET("/ops/kpi", h.kpi)
}

type interactRequest struct {
	OwnerID  string   `json:"owner_id"`
	NpcID    string   `json:"npc_id"`
	RecipeID string   `json:"recipe_id,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}

type ownerRequest struct {
	OwnerID string `json:"owner_id"`
}

type bindingRequest struct {
	NpcID             string  `json:"npc_id"`
	RecipeSetID       string  `json:"recipe_set_id"`
	InteractionRadius float64 `json:"interaction_radius"`
	CooldownSeconds   int     `json:"cooldown_seconds"`
}

type armRequest struct {
	AdminID           string  `json:"admin_id"`
	RecipeSetID       string  `json:"recipe_set_id"`
	InteractionRadius float64 `json:"interaction_radius"`
	CooldownSeconds   int     `json:"cooldown_seconds"`
}

type disarmRequest struct {
	AdminID string `json:"admin_id"`
}

func (h Handler) interact(c context.Context, ctx *app.RequestContext) {
	var body interactRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Engine.Interact(c, engine.InteractRequest{
		Owner:    forge.PlayerID(body.OwnerID),
		NpcID:    forge.NpcID(body.NpcID),
		RecipeID: forge.RecipeID(body.RecipeID),
		Distance: body.Distance,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) cancel(c context.Context, ctx *app.RequestContext) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	sess, err := h.Engine.Cancel(c, owner)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, sess)
}

func (h Handler) drain(c context.Context, ctx *app.RequestContext) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	sess, err := h.Engine.Drain(c, owner)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, sess)
}

func (h Handler) session(_ context.Context, ctx *app.RequestContext) {
	owner := strings.TrimSpace(string(ctx.Query("owner_id")))
	if owner == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "owner_id is required")
		return
	}
	ctx.JSON(consts.StatusOK, h.Engine.Status(forge.PlayerID(owner)))
}

func (h Handler) placeholder(c context.Context, ctx *app.RequestContext) {
	owner := strings.TrimSpace(string(ctx.Query("owner_id")))
	if owner == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "owner_id is required")
		return
	}
	param := ctx.Param("param")
	value, ok, err := h.Placeholders.Resolve(c, forge.PlayerID(owner), param)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if !ok {
		writeErrorBody(ctx, consts.StatusNotFound, "unknown_placeholder", "unknown placeholder "+param)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"value": value})
}

func (h Handler) listBindings(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"bindings": h.Engine.Bindings()})
}

func (h Handler) bind(c context.Context, ctx *app.RequestContext) {
	var body bindingRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	binding := forge.NpcBinding{
		NpcID:             forge.NpcID(strings.TrimSpace(body.NpcID)),
		RecipeSetID:       strings.TrimSpace(body.RecipeSetID),
		InteractionRadius: body.InteractionRadius,
		CooldownSeconds:   body.CooldownSeconds,
	}
	if err := h.Engine.Bind(c, binding); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, binding)
}

func (h Handler) unbind(c context.Context, ctx *app.RequestContext) {
	npcID := strings.TrimSpace(ctx.Param("npc_id"))
	if err := h.Engine.Unbind(c, forge.NpcID(npcID)); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"unbound": npcID})
}

func (h Handler) arm(_ context.Context, ctx *app.RequestContext) {
	var body armRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	template := forge.NpcBinding{
		RecipeSetID:       strings.TrimSpace(body.RecipeSetID),
		InteractionRadius: body.InteractionRadius,
		CooldownSeconds:   body.CooldownSeconds,
	}
	if err := h.Engine.ArmBinding(forge.PlayerID(strings.TrimSpace(body.AdminID)), template); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"armed": true, "admin_id": body.AdminID})
}

func (h Handler) disarm(_ context.Context, ctx *app.RequestContext) {
	var body disarmRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	removed := h.Engine.DisarmBinding(forge.PlayerID(strings.TrimSpace(body.AdminID)))
	ctx.JSON(consts.StatusOK, map[string]any{"disarmed": removed})
}

func (h Handler) reload(c context.Context, ctx *app.RequestContext) {
	if err := h.Engine.Reload(c); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"recipes":  len(h.Engine.Registry.Catalog.Recipes()),
		"bindings": len(h.Engine.Bindings()),
	})
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) bridgeAuth() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if !h.authorized(ctx) {
			writeError(ctx, ErrInvalidBridgeKey)
			ctx.Abort()
			return
		}
		ctx.Next(c)
	}
}

func (h Handler) authorized(ctx *app.RequestContext) bool {
	if h.BridgeKey == "" {
		return true
	}
	got := strings.TrimSpace(string(ctx.GetHeader(bridgeKeyHeader)))
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.BridgeKey)) == 1
}

func requireOwner(ctx *app.RequestContext) (forge.PlayerID, bool) {
	var body ownerRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return "", false
	}
	owner := strings.TrimSpace(body.OwnerID)
	if owner == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "owner_id is required")
		return "", false
	}
	return forge.PlayerID(owner), true
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	var cooldownErr *forge.OnCooldownError
	switch {
	case errors.Is(err, ErrInvalidBridgeKey):
		writeErrorBody(ctx, consts.StatusUnauthorized, "invalid_bridge_key", err.Error())
	case errors.As(err, &cooldownErr):
		writeErrorDetails(ctx, consts.StatusConflict, "on_cooldown", err.Error(), map[string]any{
			"npc_id":            string(cooldownErr.NpcID),
			"remaining_seconds": cooldownErr.RemainingSeconds,
		})
	case errors.Is(err, forge.ErrNotBound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_bound", err.Error())
	case errors.Is(err, forge.ErrAlreadyActive):
		writeErrorBody(ctx, consts.StatusConflict, "already_active", err.Error())
	case errors.Is(err, forge.ErrOnCooldown):
		writeErrorBody(ctx, consts.StatusConflict, "on_cooldown", err.Error())
	case errors.Is(err, forge.ErrOutOfRange):
		writeErrorBody(ctx, consts.StatusConflict, "out_of_range", err.Error())
	case errors.Is(err, forge.ErrRecipeNotOffered):
		writeErrorBody(ctx, consts.StatusNotFound, "recipe_not_offered", err.Error())
	case errors.Is(err, forge.ErrRecipeNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "recipe_not_found", err.Error())
	case errors.Is(err, forge.ErrSessionActive):
		writeErrorBody(ctx, consts.StatusConflict, "session_active", err.Error())
	case errors.Is(err, ports.ErrInsufficientFunds):
		writeErrorBody(ctx, consts.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, ports.ErrLedgerUnavailable):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "ledger_unavailable", err.Error())
	case errors.Is(err, forge.ErrInvalidRequest),
		errors.Is(err, forge.ErrInvalidBinding),
		errors.Is(err, forge.ErrInvalidRecipe):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, forge.ErrSessionNotFound),
		errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeErrorDetails(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	for k, v := range details {
		body[k] = v
	}
	ctx.JSON(status, map[string]any{"error": body})
}
