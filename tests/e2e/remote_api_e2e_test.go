//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// Requires a running server whose forge.yaml binds E2E_NPC and whose ledger
// holds enough balance for E2E_OWNER (FORGE_SEED_BALANCES in development).
func TestRemoteAPI_ForgeLifecycle(t *testing.T) {
	baseURL := strings.TrimRight(envOr("E2E_BASE_URL", "http://127.0.0.1:8080"), "/")
	owner := envOr("E2E_OWNER", "e2e-player")
	npc := envOr("E2E_NPC", "blacksmith")
	key := os.Getenv("E2E_BRIDGE_KEY")
	client := &http.Client{Timeout: 20 * time.Second}

	// Clear a session left over from an earlier run.
	_, _ = mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/cancel", key, map[string]any{"owner_id": owner})
	_, _ = mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/drain", key, map[string]any{"owner_id": owner})

	t.Run("unbound npc is rejected", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/interact", key, map[string]any{
			"owner_id": owner,
			"npc_id":   "e2e-nobody",
		})
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", status, string(body))
		}
		if code := asMap(decode(t, body)["error"])["code"]; code != "not_bound" {
			t.Fatalf("expected not_bound, got %v", code)
		}
	})

	t.Run("interact cancel drain", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/interact", key, map[string]any{
			"owner_id": owner,
			"npc_id":   npc,
		})
		if status != http.StatusOK {
			t.Fatalf("interact status=%d body=%s", status, string(body))
		}
		sess := asMap(decode(t, body)["session"])
		if sess["state"] != "reserved" {
			t.Fatalf("expected reserved session, got %v", sess)
		}

		status, body = mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/interact", key, map[string]any{
			"owner_id": owner,
			"npc_id":   npc,
		})
		if status != http.StatusConflict {
			t.Fatalf("second interact expected 409, got %d body=%s", status, string(body))
		}

		status, body = mustJSON(t, client, http.MethodGet, baseURL+"/api/forge/session?owner_id="+owner, key, nil)
		if status != http.StatusOK {
			t.Fatalf("session status=%d body=%s", status, string(body))
		}
		if state := decode(t, body)["state"]; state != "reserved" && state != "in_progress" && state != "completed" {
			t.Fatalf("unexpected state %v", state)
		}

		status, body = mustJSON(t, client, http.MethodGet, baseURL+"/api/placeholder/forge_state?owner_id="+owner, key, nil)
		if status != http.StatusOK {
			t.Fatalf("placeholder status=%d body=%s", status, string(body))
		}

		status, body = mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/cancel", key, map[string]any{"owner_id": owner})
		if status != http.StatusOK {
			t.Fatalf("cancel status=%d body=%s", status, string(body))
		}
		if state := decode(t, body)["state"]; state != "cancelled" && state != "completed" {
			t.Fatalf("expected terminal state after cancel, got %v", state)
		}

		status, body = mustJSON(t, client, http.MethodPost, baseURL+"/api/forge/drain", key, map[string]any{"owner_id": owner})
		if status != http.StatusOK {
			t.Fatalf("drain status=%d body=%s", status, string(body))
		}
	})

	t.Run("ops kpi", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodGet, baseURL+"/ops/kpi", "", nil)
		if status != http.StatusOK {
			t.Fatalf("kpi status=%d body=%s", status, string(body))
		}
		if _, ok := decode(t, body)["interaction_total"]; !ok {
			t.Fatalf("kpi missing interaction_total: %s", string(body))
		}
	})
}

func mustJSON(t *testing.T, client *http.Client, method, url, key string, body any) (int, []byte) {
	t.Helper()
	status, respBody, err := doRequest(client, method, url, key, body)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return status, respBody
}

func doRequest(client *http.Client, method, url, key string, body any) (int, []byte, error) {
	var payloadBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		payloadBytes = b
	}

	var lastStatus int
	var lastBody []byte
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var payload io.Reader
		if len(payloadBytes) > 0 {
			payload = bytes.NewReader(payloadBytes)
		}
		req, err := http.NewRequest(method, url, payload)
		if err != nil {
			return 0, nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if strings.TrimSpace(key) != "" {
			req.Header.Set("X-Forge-Key", key)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		lastStatus, lastBody, lastErr = resp.StatusCode, respBody, nil
		if resp.StatusCode >= 500 {
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return lastStatus, lastBody, nil
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, string(body))
	}
	return out
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
