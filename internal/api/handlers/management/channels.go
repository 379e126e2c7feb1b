package management

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/channelforge/internal/channel"
)

// ChannelRequest is the draft-shaped body the editing surface submits.
// JSON-bearing sub-documents arrive as raw operator text; the engine
// validates and canonicalizes them.
type ChannelRequest struct {
	ID                int64                    `json:"id"`
	Type              int                      `json:"type"`
	Name              string                   `json:"name"`
	BaseURL           string                   `json:"base_url"`
	Key               string                   `json:"key"`
	CredentialFiles   []CredentialFileRequest  `json:"credential_files"`
	Other             string                   `json:"other"`
	Organization      string                   `json:"openai_organization"`
	MaxInputTokens    int                      `json:"max_input_tokens"`
	TestModel         string                   `json:"test_model"`
	Tag               string                   `json:"tag"`
	Models            []string                 `json:"models"`
	Groups            []string                 `json:"groups"`
	ModelMapping      string                   `json:"model_mapping"`
	StatusCodeMapping string                   `json:"status_code_mapping"`
	Setting           string                   `json:"setting"`
	ParamOverride     string                   `json:"param_override"`
	AuditEnabled      bool                     `json:"audit_enabled"`
	AuditCategories   string                   `json:"audit_categories"`
	AuditAPIKey       string                   `json:"audit_apikey"`
	AuditURL          string                   `json:"audit_url"`
	AuditModel        string                   `json:"audit_model"`
	BillingRows       []channel.BillingRuleRow `json:"billing_supplement_rows"`
	Priority          int                      `json:"priority"`
	Weight            int                      `json:"weight"`
	AutoBan           bool                     `json:"auto_ban"`
	IsConvertRole     int                      `json:"is_convert_role"`
}

// CredentialFileRequest is one structured credential file, named for
// failure reporting.
type CredentialFileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CreateChannelRequest wraps the draft with the submission mode. The
// aggregation strategy rides alongside, never inside the key material.
type CreateChannelRequest struct {
	Mode         string         `json:"mode"`
	MultiKeyMode string         `json:"multi_key_mode"`
	Channel      ChannelRequest `json:"channel"`
}

func (r *ChannelRequest) toDraft() channel.Draft {
	d := channel.NewDraft()
	d.Type = channel.ProviderType(r.Type)
	d.Name = r.Name
	d.BaseURL = r.BaseURL
	d.Secret = r.Key
	for _, f := range r.CredentialFiles {
		d.Files = append(d.Files, channel.CredentialFile{Name: f.Name, Content: f.Content})
	}
	d.Other = r.Other
	d.Organization = r.Organization
	d.MaxInputTokens = r.MaxInputTokens
	d.TestModel = r.TestModel
	d.Tag = r.Tag
	d.Models = r.Models
	if r.Groups != nil {
		d.Groups = r.Groups
	}
	d.ModelMapping = r.ModelMapping
	d.StatusCodeMapping = r.StatusCodeMapping
	d.Setting = r.Setting
	d.ParamOverride = r.ParamOverride
	d.AuditEnabled = r.AuditEnabled
	if r.AuditCategories != "" {
		d.AuditCategories = r.AuditCategories
	}
	d.AuditAPIKey = r.AuditAPIKey
	d.AuditURL = r.AuditURL
	d.AuditModel = r.AuditModel
	d.BillingRows = r.BillingRows
	d.Priority = r.Priority
	d.Weight = r.Weight
	d.AutoBan = r.AutoBan
	if r.IsConvertRole != 0 {
		d.ConvertRole = r.IsConvertRole
	}
	return d
}

func writeEngineError(c *gin.Context, err error) {
	var verr *channel.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason, "message": verr.Error()})
		return
	}
	var ierr *channel.IngestionError
	if errors.As(err, &ierr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ierr.Reason, "message": ierr.Error(), "failed_files": ierr.Files})
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "channel not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error", "message": err.Error()})
}

// CreateChannel handles POST /channels in all three submission modes.
func (h *Handler) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	mode := channel.SubmitMode(req.Mode)
	switch mode {
	case "":
		mode = channel.ModeSingle
	case channel.ModeSingle, channel.ModeBatch, channel.ModeMultiToSingle:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_mode", "message": "unknown submission mode: " + req.Mode})
		return
	}

	draft := req.Channel.toDraft()
	if req.MultiKeyMode != "" {
		draft.MultiKeyMode = channel.AggregationStrategy(req.MultiKeyMode)
	}

	res, err := channel.Assemble(draft, mode, false, 0)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if err := h.store.CreateChannel(c.Request.Context(), res); err != nil {
		writeEngineError(c, err)
		return
	}

	log.WithField("request_id", requestID(c)).Infof("channel %q created (mode=%s, keys=%d)", res.Channel.Name, res.Mode, len(res.Keys()))
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"warnings":     res.Warnings,
		"failed_files": res.FailedFiles,
	})
}

// UpdateChannel handles PUT /channels. A blank key leaves the stored
// secret unchanged.
func (h *Handler) UpdateChannel(c *gin.Context) {
	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if req.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_id", "message": "channel id is required"})
		return
	}

	res, err := channel.Assemble(req.toDraft(), channel.ModeSingle, true, req.ID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if err := h.store.UpdateChannel(c.Request.Context(), res); err != nil {
		writeEngineError(c, err)
		return
	}

	log.WithField("request_id", requestID(c)).Infof("channel %d updated", req.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "warnings": res.Warnings})
}

// GetChannel handles GET /channels/:id. The stored key never leaves the
// server.
func (h *Handler) GetChannel(c *gin.Context) {
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
	rec.Key = ""
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// ListChannels handles GET /channels.
func (h *Handler) ListChannels(c *gin.Context) {
	recs, err := h.store.ListChannels(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	for i := range recs {
		recs[i].Key = ""
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": recs})
}

// DeleteChannel handles DELETE /channels/:id.
func (h *Handler) DeleteChannel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id", "message": "channel id must be an integer"})
		return
	}
	if err := h.store.DeleteChannel(c.Request.Context(), id); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
