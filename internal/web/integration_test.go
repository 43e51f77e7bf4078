package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vbonduro/wastecapture/internal/auth"
	"github.com/vbonduro/wastecapture/internal/capture"
	"github.com/vbonduro/wastecapture/internal/db"
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/photostore"
	"github.com/vbonduro/wastecapture/internal/store"
	"github.com/vbonduro/wastecapture/internal/vision/simulated"
	"github.com/vbonduro/wastecapture/internal/web"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
// http.DetectContentType identifies JPEG from the leading 0xFF 0xD8 bytes.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

// memPhotoStore is a simple in-memory implementation of photostore.PhotoStore.
type memPhotoStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	mimes   map[string]string
	counter int
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{
		data:  make(map[string][]byte),
		mimes: make(map[string]string),
	}
}

func (m *memPhotoStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("%s_%d.jpg", prefix, m.counter)
	m.data[key] = data
	m.mimes[key] = mimeType
	return key, nil
}

func (m *memPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.mimes[key], nil
}

func (m *memPhotoStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return photostore.ErrNotFound
	}
	delete(m.data, key)
	delete(m.mimes, key)
	return nil
}

func (m *memPhotoStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fixedLocator struct{ loc domain.Location }

func (f fixedLocator) Resolve(context.Context) *domain.Location {
	loc := f.loc
	return &loc
}

// newTestServer sets up a real web.Server backed by in-memory SQLite, an
// in-memory photo store and an instant simulated classifier.
func newTestServer(t *testing.T) (*httptest.Server, *memPhotoStore) {
	t.Helper()
	database, err := db.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}

	items := store.NewItemStore(database, slog.Default())
	photos := newMemPhotoStore()
	newWorkflow := func() *capture.Workflow {
		return capture.NewWorkflow(simulated.NewClassifier("", 0), items, slog.Default(),
			capture.WithLocator(fixedLocator{domain.Location{Latitude: 37, Longitude: -122, Address: "12 Elm, Springfield, ST 00000, Country"}}))
	}
	server := web.NewServer(items, photos, auth.NewSessions(), newWorkflow, slog.Default())
	srv := httptest.NewServer(server)
	t.Cleanup(func() {
		srv.Close()
		server.Close()
		_ = database.Close()
	})
	return srv, photos
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func login(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	c := &client{t: t, base: srv.URL}
	var out struct {
		Token    string          `json:"token"`
		Operator domain.Operator `json:"operator"`
	}
	c.expect(c.do(http.MethodPost, "/login", map[string]string{"username": "Jane", "password": "pw"}), http.StatusOK, &out)
	if out.Token == "" || out.Operator.Name != "Jane" {
		t.Fatalf("unexpected login response: %+v", out)
	}
	c.token = out.Token
	return c
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) *http.Response {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// expect checks the status and decodes the JSON body into out when non-nil.
func (c *client) expect(resp *http.Response, status int, out any) {
	c.t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != status {
		c.t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, status, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			c.t.Fatalf("decode body %s: %v", body, err)
		}
	}
}

func (c *client) uploadPhoto(imageData []byte) *http.Response {
	c.t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("image", "photo.jpg")
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(imageData); err != nil {
		c.t.Fatalf("write image data: %v", err)
	}
	if err := w.Close(); err != nil {
		c.t.Fatalf("close multipart writer: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.base+"/session/photo", body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req)
}

type session struct {
	State        string                 `json:"state"`
	PendingPhoto string                 `json:"pendingPhoto"`
	Location     *domain.Location       `json:"location"`
	Submitted    *domain.CapturedItem   `json:"submitted"`
	Summary      []capture.SummaryField `json:"summary"`
	Error        string                 `json:"error"`
	Form         *struct {
		Kind   string            `json:"kind"`
		Values map[string]string `json:"values"`
	} `json:"form"`
}

func (c *client) waitForState(want string) session {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var s session
		c.expect(c.do(http.MethodGet, "/session", nil), http.StatusOK, &s)
		if s.State == want {
			return s
		}
		if time.Now().After(deadline) {
			c.t.Fatalf("session never reached %s, last state %s", want, s.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIntegration_RequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	c.expect(c.do(http.MethodGet, "/session", nil), http.StatusUnauthorized, nil)
	c.expect(c.do(http.MethodGet, "/items", nil), http.StatusUnauthorized, nil)
	c.expect(c.do(http.MethodPost, "/login", map[string]string{"username": "Jane"}), http.StatusBadRequest, nil)
}

// TestIntegration_ManualSubmission walks a capture from upload to a stored item.
func TestIntegration_ManualSubmission(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv, photos := newTestServer(t)
	c := login(t, srv)

	var s session
	c.expect(c.uploadPhoto(minimalJPEG), http.StatusOK, &s)
	if s.State != "PendingConfirmation" || s.PendingPhoto == "" {
		t.Fatalf("unexpected session after upload: %+v", s)
	}

	c.expect(c.do(http.MethodPost, "/session/confirm", nil), http.StatusOK, nil)
	c.waitForState("AwaitingVerification")

	c.expect(c.do(http.MethodPost, "/session/incorrect", nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodPatch, "/session/fields", map[string]string{"field": "wasteType", "value": "Sofa"}), http.StatusOK, nil)
	c.expect(c.do(http.MethodPatch, "/session/fields", map[string]string{"field": "volume", "value": "medium"}), http.StatusOK, &s)
	if s.Form == nil || s.Form.Values["weight"] != "15" {
		t.Fatalf("weight was not suggested: %+v", s.Form)
	}

	// Wait for the location lookup so the item carries it.
	deadline := time.Now().Add(2 * time.Second)
	for s.Location == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		c.expect(c.do(http.MethodGet, "/session", nil), http.StatusOK, &s)
	}

	c.expect(c.do(http.MethodPost, "/session/submit", nil), http.StatusOK, &s)
	if s.State != "Submitted" || s.Submitted == nil {
		t.Fatalf("unexpected session after submit: %+v", s)
	}
	if s.Submitted.WasteType != "Sofa" || s.Submitted.CapturedBy != "Jane" || s.Submitted.Location == nil {
		t.Errorf("unexpected submitted item: %+v", s.Submitted)
	}
	if len(s.Summary) == 0 || s.Summary[0].Value != "Manual Verification" {
		t.Errorf("unexpected summary: %+v", s.Summary)
	}

	var items []domain.CapturedItem
	c.expect(c.do(http.MethodGet, "/items", nil), http.StatusOK, &items)
	if len(items) != 1 || items[0].ID != s.Submitted.ID {
		t.Fatalf("expected the submitted item first, got %+v", items)
	}

	var item domain.CapturedItem
	c.expect(c.do(http.MethodGet, "/items/"+items[0].ID, nil), http.StatusOK, &item)
	if item.PhotoURI != items[0].PhotoURI {
		t.Errorf("GET /items/{id} returned %+v", item)
	}

	c.expect(c.do(http.MethodPatch, "/items/"+item.ID, map[string]string{"notes": "left by the gate", "volume": "large"}), http.StatusOK, &item)
	if item.Notes != "left by the gate" || item.Volume != domain.VolumeLarge || item.WasteType != "Sofa" {
		t.Errorf("PATCH /items/{id} returned %+v", item)
	}
	c.expect(c.do(http.MethodPatch, "/items/"+item.ID, map[string]string{"wasteType": ""}), http.StatusUnprocessableEntity, nil)

	resp := c.do(http.MethodGet, "/photos/"+item.PhotoURI, nil)
	c.expect(resp, http.StatusOK, nil)
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("photo content type = %q", ct)
	}

	c.expect(c.do(http.MethodDelete, "/items/"+item.ID, nil), http.StatusNoContent, nil)
	c.expect(c.do(http.MethodDelete, "/items/"+item.ID, nil), http.StatusNoContent, nil)
	c.expect(c.do(http.MethodGet, "/items/"+item.ID, nil), http.StatusNotFound, nil)
	if photos.Len() != 0 {
		t.Errorf("photo was not removed with its item")
	}
}

func TestIntegration_VolumeSubmitValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	c := login(t, srv)

	c.expect(c.uploadPhoto(minimalJPEG), http.StatusOK, nil)
	c.expect(c.do(http.MethodPost, "/session/confirm", nil), http.StatusOK, nil)
	c.waitForState("AwaitingVerification")
	c.expect(c.do(http.MethodPost, "/session/correct", nil), http.StatusOK, nil)

	var errResp struct {
		Error  string               `json:"error"`
		Fields []capture.FieldError `json:"fields"`
	}
	c.expect(c.do(http.MethodPost, "/session/submit", nil), http.StatusUnprocessableEntity, &errResp)
	if len(errResp.Fields) != 2 {
		t.Errorf("expected volume and weight errors, got %+v", errResp.Fields)
	}

	var items []domain.CapturedItem
	c.expect(c.do(http.MethodGet, "/items", nil), http.StatusOK, &items)
	if len(items) != 0 {
		t.Errorf("validation failure wrote %d items", len(items))
	}
	c.waitForState("VolumeEntry")
}

func TestIntegration_InvalidTransition(t *testing.T) {
	srv, _ := newTestServer(t)
	c := login(t, srv)

	c.expect(c.do(http.MethodPost, "/session/confirm", nil), http.StatusConflict, nil)
	c.expect(c.do(http.MethodPost, "/session/submit", nil), http.StatusConflict, nil)
}

func TestIntegration_RejectsNonImageUpload(t *testing.T) {
	srv, photos := newTestServer(t)
	c := login(t, srv)

	c.expect(c.uploadPhoto([]byte("%PDF-1.4 malicious content")), http.StatusBadRequest, nil)
	if photos.Len() != 0 {
		t.Errorf("rejected upload was stored")
	}
	c.waitForState("Idle")
}

func TestIntegration_CameraDenied(t *testing.T) {
	srv, photos := newTestServer(t)
	c := login(t, srv)

	c.expect(c.do(http.MethodPost, "/session/permission", map[string]bool{"granted": false}), http.StatusOK, nil)
	c.expect(c.uploadPhoto(minimalJPEG), http.StatusForbidden, nil)
	if photos.Len() != 0 {
		t.Errorf("photo kept after denied capture")
	}
}

func TestIntegration_RetakeDiscardsPhoto(t *testing.T) {
	srv, photos := newTestServer(t)
	c := login(t, srv)

	c.expect(c.uploadPhoto(minimalJPEG), http.StatusOK, nil)
	if photos.Len() != 1 {
		t.Fatalf("expected one stored photo, got %d", photos.Len())
	}
	var s session
	c.expect(c.do(http.MethodPost, "/session/retake", nil), http.StatusOK, &s)
	if s.State != "Idle" || s.PendingPhoto != "" {
		t.Errorf("unexpected session after retake: %+v", s)
	}
	if photos.Len() != 0 {
		t.Errorf("retake left the pending photo behind")
	}
}

func TestIntegration_ClearItems(t *testing.T) {
	srv, _ := newTestServer(t)
	c := login(t, srv)

	for i := 0; i < 2; i++ {
		c.expect(c.uploadPhoto(minimalJPEG), http.StatusOK, nil)
		c.expect(c.do(http.MethodPost, "/session/confirm", nil), http.StatusOK, nil)
		c.waitForState("AwaitingVerification")
		c.expect(c.do(http.MethodPost, "/session/correct", nil), http.StatusOK, nil)
		c.expect(c.do(http.MethodPatch, "/session/fields", map[string]string{"field": "volume", "value": "small"}), http.StatusOK, nil)
		c.expect(c.do(http.MethodPost, "/session/submit", nil), http.StatusOK, nil)
		c.expect(c.do(http.MethodPost, "/session/reset", nil), http.StatusOK, nil)
	}

	var items []domain.CapturedItem
	c.expect(c.do(http.MethodGet, "/items", nil), http.StatusOK, &items)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].CapturedAt.Before(items[1].CapturedAt) {
		t.Errorf("items are not newest first")
	}

	c.expect(c.do(http.MethodDelete, "/items", nil), http.StatusNoContent, nil)
	c.expect(c.do(http.MethodGet, "/items", nil), http.StatusOK, &items)
	if len(items) != 0 {
		t.Errorf("expected no items after clear, got %d", len(items))
	}
}

func TestIntegration_FormatLocation(t *testing.T) {
	srv, _ := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	var out map[string]string
	c.expect(c.do(http.MethodGet, "/location/format?lat=37&lon=-122", nil), http.StatusOK, &out)
	if out["formatted"] != "37.000000, -122.000000" {
		t.Errorf("formatted = %q", out["formatted"])
	}

	addr := "12 Elm, Springfield, ST 00000, Country"
	c.expect(c.do(http.MethodGet, "/location/format?lat=37&lon=-122&address="+strings.ReplaceAll(addr, " ", "+"), nil), http.StatusOK, &out)
	if out["formatted"] != addr {
		t.Errorf("formatted = %q, want %q", out["formatted"], addr)
	}

	c.expect(c.do(http.MethodGet, "/location/format?lat=north&lon=1", nil), http.StatusBadRequest, nil)
}
