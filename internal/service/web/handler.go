package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/proxypool/model"
)

// StatusProvider 是 web 层对流水线的只读视图。
type StatusProvider interface {
	Snapshot() model.Snapshot
	CurrentGoodProxies() []string
}

// Handler holds the HTTP handlers of the status API.
type Handler struct {
	provider StatusProvider
}

func NewHandler(provider StatusProvider) *Handler {
	return &Handler{provider: provider}
}

// ProxiesResponse 是 /api/proxies?format=json 的返回格式
type ProxiesResponse struct {
	Count   int      `json:"count"`
	Proxies []string `json:"proxies"`
}

// HandleStatus 返回流水线的当前快照
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.Snapshot())
}

// HandleProxies 返回当前可用代理, 默认每行一个, format=json 时返回 JSON。
func (h *Handler) HandleProxies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	proxies := h.provider.CurrentGoodProxies()
	if r.URL.Query().Get("format") == "json" {
		if proxies == nil {
			proxies = []string{}
		}
		writeJSON(w, http.StatusOK, ProxiesResponse{Count: len(proxies), Proxies: proxies})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	var sb strings.Builder
	for _, p := range proxies {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	w.Write([]byte(sb.String()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}
