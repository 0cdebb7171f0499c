package handler

import (
	"encoding/json"
	"net/http"
)

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct{}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health は死活確認に応答する。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
