// Package api exposes the guest author autocomplete endpoints over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/coauthors/pkg/coauthors"
)

// Argument declarations of the autocomplete endpoints.
var (
	searchArgs = Args{
		{Name: "q", Required: true, Sanitize: coauthors.SanitizeTextField},
		{Name: "exclude", List: true, SanitizeList: coauthors.SanitizeTextList},
	}
	createArgs = Args{
		{Name: "guest_name", Required: true},
		{Name: "guest_email", Required: true},
	}
)

// SearchResponse is the response body of a search
type SearchResponse struct {
	Coauthors []*coauthors.AuthorResult `json:"coauthors"`
}

// AutocompleteHandler handles coauthor search and guest author creation
type AutocompleteHandler struct {
	service coauthors.Service
	logger  *slog.Logger
	metrics *Metrics
}

// NewAutocompleteHandler creates a new autocomplete handler. metrics may be nil.
func NewAutocompleteHandler(service coauthors.Service, logger *slog.Logger, metrics *Metrics) *AutocompleteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutocompleteHandler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the routes for autocomplete
func (h *AutocompleteHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Search)
	r.Post("/", h.CreateGuest)

	return r
}

// Search returns users and guest authors matching q, minus excluded logins
func (h *AutocompleteHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := requestParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	args, err := searchArgs.Parse(params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	results, err := h.service.SearchAuthors(r.Context(), coauthors.SearchAuthorsRequest{
		Query:   strings.ToLower(args.Get("q")),
		Exclude: args["exclude"],
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, SearchResponse{Coauthors: results})
}

// CreateGuest creates a guest author from guest_name and guest_email
func (h *AutocompleteHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	params, err := requestParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	args, err := createArgs.Parse(params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.service.CreateGuestAuthor(r.Context(), coauthors.CreateGuestAuthorRequest{
		DisplayName: args.Get("guest_name"),
		Email:       args.Get("guest_email"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.recordGuestCreated()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

func (h *AutocompleteHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.Data.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	h.metrics.recordError(apiErr.Code)
	_ = render.Render(w, r, apiErr)
}
