package management

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/traylinx/channelforge/internal/channel"
)

// FetchModelsRequest asks the server to discover the model list an
// upstream endpoint offers, using the draft's credentials before the
// channel exists.
type FetchModelsRequest struct {
	BaseURL string `json:"base_url"`
	Type    int    `json:"type"`
	Key     string `json:"key"`
}

// FetchUpstreamModels handles POST /channels/fetch-models for drafts
// that have not been persisted yet.
func (h *Handler) FetchUpstreamModels(c *gin.Context) {
	var req FetchModelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_key", "message": "a key is required to query upstream models"})
		return
	}
	h.fetchAndRespond(c, req.BaseURL, req.Key)
}

// FetchChannelModels handles GET /channels/:id/models using the stored
// channel's own credentials.
func (h *Handler) FetchChannelModels(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id", "message": "channel id must be an integer"})
		return
	}
	rec, err := h.store.GetChannel(c.Request.Context(), id)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	key := rec.Key
	// An aggregated channel stores a JSON array of keys; any of them
	// should be able to list models.
	if keys := channel.DecodeAggregatedKeys(key); len(keys) > 0 {
		key = keys[0]
	}
	h.fetchAndRespond(c, rec.BaseURL, key)
}

func (h *Handler) fetchAndRespond(c *gin.Context, baseURL, key string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	models, err := h.fetchUpstreamModels(ctx, baseURL, key)
	if err != nil {
		log.Warnf("upstream model discovery failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": models})
}

// fetchUpstreamModels queries the provider's model listing endpoint and
// accepts both the OpenAI ({data: [{id}]}) and Ollama ({models: [{name}]})
// response shapes.
func (h *Handler) fetchUpstreamModels(ctx context.Context, baseURL, key string) ([]string, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	modelsURL := strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(modelsURL, "/v1") {
		modelsURL += "/v1"
	}
	modelsURL += "/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider returned error %d: %s", resp.StatusCode, string(body))
	}

	// A present but empty list is a valid answer, not a parse failure.
	if v := gjson.GetBytes(body, "data"); v.IsArray() {
		return collectModelIDs(v, "id"), nil
	}
	if v := gjson.GetBytes(body, "models"); v.IsArray() {
		return collectModelIDs(v, "name"), nil
	}

	return nil, fmt.Errorf("could not parse models response from %s", modelsURL)
}

func collectModelIDs(list gjson.Result, field string) []string {
	items := list.Array()
	models := make([]string, 0, len(items))
	for _, m := range items {
		if id := m.Get(field).String(); id != "" {
			models = append(models, id)
		}
	}
	return models
}
