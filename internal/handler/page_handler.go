package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/index.html
var templateFS embed.FS

// PageHandler は検索フォームページのHTTPハンドラー。
type PageHandler struct {
	tmpl *template.Template
}

// NewPageHandler はPageHandlerを生成する。
// 埋め込みテンプレートのパースに失敗した場合はpanicする（起動時に検出される）。
func NewPageHandler() *PageHandler {
	return &PageHandler{
		tmpl: template.Must(template.ParseFS(templateFS, "templates/index.html")),
	}
}

// Index は検索フォームページを返す。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, nil); err != nil {
		slog.Error("template render failed", slog.String("error", err.Error()))
	}
}
