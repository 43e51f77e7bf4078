package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/wastecapture/internal/capture"
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/location"
	"github.com/vbonduro/wastecapture/internal/photostore"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

type classificationView struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type formView struct {
	Kind   string            `json:"kind"`
	Values map[string]string `json:"values"`
}

type sessionView struct {
	State          string                 `json:"state"`
	Generation     uint64                 `json:"generation"`
	Permission     string                 `json:"permission"`
	PendingPhoto   string                 `json:"pendingPhoto,omitempty"`
	ConfirmedPhoto string                 `json:"confirmedPhoto,omitempty"`
	Classification *classificationView    `json:"classification,omitempty"`
	Form           *formView              `json:"form,omitempty"`
	Location       *domain.Location       `json:"location,omitempty"`
	LocationText   string                 `json:"locationText,omitempty"`
	Submitted      *domain.CapturedItem   `json:"submitted,omitempty"`
	Summary        []capture.SummaryField `json:"summary,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Operator       domain.Operator        `json:"operator"`
}

func (s *Server) view(r *http.Request, wf *capture.Workflow, sess capture.Session) sessionView {
	v := sessionView{
		State:          sess.State.String(),
		Generation:     sess.Generation,
		Permission:     sess.Permission.String(),
		PendingPhoto:   sess.PendingPhoto,
		ConfirmedPhoto: sess.ConfirmedPhoto,
		Submitted:      sess.Submitted,
		Operator:       operatorFrom(r.Context()),
	}
	if sess.Classification != nil {
		v.Classification = &classificationView{
			Label:      sess.Classification.Label,
			Confidence: sess.Classification.Confidence,
		}
	}
	if sess.Form != nil {
		v.Form = &formView{Kind: sess.Form.Kind().String(), Values: sess.Form.Values()}
	}
	if sess.LastError != nil {
		v.Error = sess.LastError.Error()
	}
	if sess.Submitted != nil {
		v.Summary = capture.Summary(*sess.Submitted, sess.SubmittedKind)
		v.Location = sess.Submitted.Location
	} else {
		v.Location = wf.Location()
	}
	if v.Location != nil {
		v.LocationText = location.FormatLocation(*v.Location)
	}
	return v
}

func (s *Server) currentWorkflow(r *http.Request) *capture.Workflow {
	return s.workflow(tokenFrom(r.Context()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	wf := s.currentWorkflow(r)
	writeJSON(w, http.StatusOK, s.view(r, wf, wf.Snapshot()))
}

type permissionRequest struct {
	Granted bool `json:"granted"`
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.dispatch(w, r, capture.CameraPermission{Granted: req.Granted})
}

// handlePhoto accepts the camera result. A multipart "image" file is the
// captured photo; an "error" form value reports that the camera failed.
func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	if msg := r.FormValue("error"); msg != "" {
		s.dispatch(w, r, capture.PhotoCaptured{Err: errors.New(msg)})
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		s.logger.Error("read upload failed", "error", err)
		return
	}

	mimeType, err := photostore.DetectImageType(imageData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	key, err := s.photoStore.Save(r.Context(), "capture", mimeType, bytes.NewReader(imageData))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store photo")
		s.logger.Error("save photo failed", "error", err)
		return
	}
	s.logger.Debug("photo saved", "storage_key", key, "mime_type", mimeType, "bytes", len(imageData))

	wf := s.currentWorkflow(r)
	sess, err := wf.Dispatch(r.Context(), capture.PhotoCaptured{PhotoRef: key})
	if err != nil {
		s.deletePhoto(r.Context(), key)
	}
	s.respond(w, r, wf, sess, err)
}

// handleEvent dispatches a fixed event. Photos dropped by a retake or reset
// are removed from the photo store.
func (s *Server) handleEvent(ev capture.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf := s.currentWorkflow(r)
		before := wf.Snapshot()
		sess, err := wf.Dispatch(r.Context(), ev)
		if err == nil {
			switch ev.(type) {
			case capture.Retake, capture.Reset:
				s.deletePhoto(r.Context(), before.PendingPhoto)
				s.deletePhoto(r.Context(), before.ConfirmedPhoto)
			}
		}
		s.respond(w, r, wf, sess, err)
	}
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleFieldChanged(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil || req.Field == "" {
		writeError(w, http.StatusBadRequest, "field and value required")
		return
	}
	s.dispatch(w, r, capture.FieldChanged{Field: req.Field, Value: req.Value})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.currentWorkflow(r)
	sess, err := wf.Submit(r.Context(), operatorFrom(r.Context()))
	s.respond(w, r, wf, sess, err)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev capture.Event) {
	wf := s.currentWorkflow(r)
	sess, err := wf.Dispatch(r.Context(), ev)
	s.respond(w, r, wf, sess, err)
}

type errorResponse struct {
	Error   string               `json:"error"`
	Fields  []capture.FieldError `json:"fields,omitempty"`
	Session *sessionView         `json:"session,omitempty"`
}

// respond writes the session after an event, or the error with the session
// as it stands.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, wf *capture.Workflow, sess capture.Session, err error) {
	v := s.view(r, wf, sess)
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	resp := errorResponse{Error: err.Error(), Session: &v}
	var verr *capture.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		resp.Fields = verr.Fields
	case errors.Is(err, capture.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, capture.ErrCameraDenied):
		status = http.StatusForbidden
	case errors.Is(err, capture.ErrCaptureFailed):
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrPersistence):
		s.logger.Error("submit failed", "error", err)
	default:
		s.logger.Error("capture event failed", "error", err)
	}
	writeJSON(w, status, resp)
}

func (s *Server) deletePhoto(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.photoStore.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		s.logger.Warn("failed to delete photo", "storage_key", key, "error", err)
	}
}

func (s *Server) handleFormatLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lon")
		return
	}
	loc := domain.Location{Latitude: lat, Longitude: lon, Address: q.Get("address")}

	writeJSON(w, http.StatusOK, map[string]string{
		"formatted": location.FormatLocation(loc),
		"short":     location.ShortLocation(loc),
	})
}
