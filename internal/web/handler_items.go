package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/photostore"
	"github.com/vbonduro/wastecapture/internal/store"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.items.List(r.Context()))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		s.logger.Error("get item failed", "error", err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type itemPatch struct {
	WasteType   *string            `json:"wasteType"`
	Description *string            `json:"description"`
	Volume      *string            `json:"volume"`
	Weight      *string            `json:"weight"`
	Dimensions  *domain.Dimensions `json:"dimensions"`
	Notes       *string            `json:"notes"`
	Location    *domain.Location   `json:"location"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch itemPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u := domain.ItemUpdate{
		WasteType:   patch.WasteType,
		Description: patch.Description,
		Weight:      patch.Weight,
		Dimensions:  patch.Dimensions,
		Notes:       patch.Notes,
		Location:    patch.Location,
	}
	if patch.Volume != nil {
		v, ok := domain.ParseVolume(*patch.Volume)
		if !ok && *patch.Volume != "" {
			writeError(w, http.StatusBadRequest, "unknown volume")
			return
		}
		u.Volume = &v
	}

	if err := s.items.Update(r.Context(), id, u); err != nil {
		if errors.Is(err, store.ErrInvalidItem) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update item")
		s.logger.Error("update item failed", "id", id, "error", err)
		return
	}
	s.handleGetItem(w, r)
}

// handleDeleteItem removes the item and its photo. Unknown ids succeed.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.items.Get(r.Context(), id)
	if err != nil {
		s.logger.Warn("failed to read item before delete", "id", id, "error", err)
	}
	if err := s.items.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		s.logger.Error("delete item failed", "id", id, "error", err)
		return
	}
	if item != nil {
		s.deletePhoto(r.Context(), item.PhotoURI)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearItems(w http.ResponseWriter, r *http.Request) {
	items := s.items.List(r.Context())
	if err := s.items.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear items")
		s.logger.Error("clear items failed", "error", err)
		return
	}
	for _, item := range items {
		s.deletePhoto(r.Context(), item.PhotoURI)
	}
	s.logger.Info("items cleared", "count", len(items))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	reader, mimeType, err := s.photoStore.Get(r.Context(), key)
	if errors.Is(err, photostore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read photo")
		s.logger.Error("get photo failed", "storage_key", key, "error", err)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "storage_key", key, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
