package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// Query parameters of GET /api/v1/items.
const (
	QueryItemName = "itemName"
	QueryMaxPrice = "maxPrice"
)

// ItemService is the use-case layer the handler delegates to.
type ItemService interface {
	Save(ctx context.Context, item *model.Item) (*model.Item, error)
	Update(ctx context.Context, id int64, param model.ItemUpdate) error
	FindByID(ctx context.Context, id int64) (model.Item, error)
	FindItems(ctx context.Context, cond model.ItemSearch) ([]model.Item, error)
}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	service    ItemService
	repository string
	logger     *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. repository names the
// active strategy and is reported by the health check.
func NewRESTHandler(svc ItemService, repository string, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		service:    svc,
		repository: repository,
		logger:     logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.UpdateItem).Methods(http.MethodPut)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:     "healthy",
		Version:    Version,
		Repository: h.repository,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ListItems handles GET /api/v1/items?itemName=&maxPrice= requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	cond, err := parseSearch(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.service.FindItems(r.Context(), cond)
	if err != nil {
		h.handleServiceError(w, err, "list items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	item, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input model.Item
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.service.Save(r.Context(), &input)
	if err != nil {
		h.handleServiceError(w, err, "create item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /api/v1/items/{id} requests and returns the item as
// stored afterwards.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var input model.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Update(r.Context(), id, input); err != nil {
		h.handleServiceError(w, err, "update item")
		return
	}

	item, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// pathID parses the {id} path variable, writing 400 when it is not a
// positive integer.
func (h *RESTHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
		return 0, false
	}
	return id, true
}

// parseSearch reads the list filters. Missing or empty parameters are absent
// filters.
func parseSearch(r *http.Request) (model.ItemSearch, error) {
	query := r.URL.Query()
	cond := model.ItemSearch{ItemName: query.Get(QueryItemName)}

	if raw := query.Get(QueryMaxPrice); raw != "" {
		price, err := strconv.Atoi(raw)
		if err != nil {
			return model.ItemSearch{}, errors.New("maxPrice must be an integer")
		}
		cond.MaxPrice = &price
	}
	return cond, nil
}

// handleServiceError handles service errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case isValidationError(err):
		h.logger.Warn("validation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		model.ErrEmptyName,
		model.ErrNameTooLong,
		model.ErrNegativePrice,
		model.ErrNegativeQuantity,
		store.ErrIDAssigned,
		store.ErrNilItem,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
