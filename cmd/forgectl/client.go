package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const bridgeKeyHeader = "X-Forge-Key"

// apiClient talks to the mythicforge bridge API.
type apiClient struct {
	base string
	key  string
	hc   *client.Client
}

func newAPIClient(base, key string) (*apiClient, error) {
	hc, err := client.NewClient()
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return &apiClient{base: strings.TrimRight(base, "/"), key: key, hc: hc}, nil
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetMethod(method)
	req.SetRequestURI(c.base + path)
	if c.key != "" {
		req.Header.Set(bridgeKeyHeader, c.key)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(raw)
	}

	if err := c.hc.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	out := append(json.RawMessage(nil), resp.Body()...)
	if status := resp.StatusCode(); status >= consts.StatusBadRequest {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(out, &envelope)
		return nil, &apiError{Status: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	return out, nil
}

func (c *apiClient) cancel(ctx context.Context, owner string) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodPost, "/api/forge/cancel", map[string]string{"owner_id": owner})
}

func (c *apiClient) status(ctx context.Context, owner string) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodGet, "/api/forge/session?owner_id="+url.QueryEscape(owner), nil)
}

type bindingBody struct {
	NpcID             string  `json:"npc_id,omitempty"`
	AdminID           string  `json:"admin_id,omitempty"`
	RecipeSetID       string  `json:"recipe_set_id"`
	InteractionRadius float64 `json:"interaction_radius"`
	CooldownSeconds   int     `json:"cooldown_seconds"`
}

func (c *apiClient) bind(ctx context.Context, b bindingBody) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodPost, "/api/admin/bindings", b)
}

func (c *apiClient) arm(ctx context.Context, b bindingBody) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodPost, "/api/admin/bindings/arm", b)
}

func (c *apiClient) unbind(ctx context.Context, npc string) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodDelete, "/api/admin/bindings/"+url.PathEscape(npc), nil)
}

func (c *apiClient) bindings(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodGet, "/api/admin/bindings", nil)
}

func (c *apiClient) reload(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, consts.MethodPost, "/api/admin/reload", nil)
}
