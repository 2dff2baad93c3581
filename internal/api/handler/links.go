package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iconidentify/groupgrab/internal/domain"
	"github.com/iconidentify/groupgrab/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// LinkReader is the read side of the dedup store.
type LinkReader interface {
	IsArchived(ctx context.Context, url string) (bool, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*domain.ArchivedLink, error)
	Count(ctx context.Context, filter repository.ListFilter) (int, error)
}

// LinksHandler serves the archive listing.
type LinksHandler struct {
	repo   LinkReader
	logger *slog.Logger
}

// NewLinksHandler creates a new links handler.
func NewLinksHandler(repo LinkReader, logger *slog.Logger) *LinksHandler {
	return &LinksHandler{
		repo:   repo,
		logger: logger,
	}
}

// LinkListResponse contains a page of archived links.
type LinkListResponse struct {
	Links  []*domain.ArchivedLink `json:"links"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// CheckResponse tells whether a URL is already archived.
type CheckResponse struct {
	URL      string          `json:"url"`
	Archived bool            `json:"archived"`
	Platform domain.Platform `json:"platform"`
}

func (h *LinksHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *LinksHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// List handles GET /api/v1/links?group=&platform=&limit=&offset=
func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}

	filter := repository.ListFilter{
		GroupName: q.Get("group"),
		Limit:     limit,
		Offset:    offset,
	}
	if p := q.Get("platform"); p != "" {
		filter.Platform = domain.Platform(p)
		if !filter.Platform.Known() {
			h.writeError(w, http.StatusBadRequest, "unknown platform")
			return
		}
	}

	links, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list links", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list links")
		return
	}
	total, err := h.repo.Count(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to count links", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list links")
		return
	}

	if links == nil {
		links = []*domain.ArchivedLink{}
	}
	h.writeJSON(w, http.StatusOK, LinkListResponse{
		Links:  links,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Check handles GET /api/v1/links/check?url=
func (h *LinksHandler) Check(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	archived, err := h.repo.IsArchived(r.Context(), url)
	if err != nil {
		h.logger.Error("failed to check link", "url", url, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to check link")
		return
	}

	h.writeJSON(w, http.StatusOK, CheckResponse{
		URL:      url,
		Archived: archived,
		Platform: domain.Classify(url),
	})
}
