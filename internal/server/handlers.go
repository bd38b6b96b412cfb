package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/listenlog/internal/events"
	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/goccy/go-json"
)

// ImportPath is the route of the import endpoint.
const ImportPath = "/api/v1/import-data"

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type errorResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// ImportResponse is the body returned by a successful import.
type ImportResponse struct {
	Status     string               `json:"status"`
	Message    string               `json:"message"`
	Statistics *models.ImportResult `json:"statistics"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Status: "error", Detail: detail})
}

// HealthHandler reports liveness.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	})
}

// VersionHandler reports the running build version.
func VersionHandler(version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Version: version})
	})
}

// CheckAuthHandler confirms that the request passed [BearerAuth].
func CheckAuthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "authorized"})
	})
}

// ImportHandler accepts a streaming history export and imports it for a user.
//
// The export is either the raw JSON request body or a multipart upload in the "file" field.
// The user comes from the "user_id" query or form value and falls back to the importer's default.
type ImportHandler struct {
	importer Importer
	maxBytes int64
	logger   *log.Logger
}

// NewImportHandler creates an [ImportHandler]. Uploads larger than maxBytes are rejected.
func NewImportHandler(importer Importer, maxBytes int64, logger *log.Logger) *ImportHandler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ImportHandler{importer: importer, maxBytes: maxBytes, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ImportHandler) Routes() []string {
	return []string{ImportPath}
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	payload, userID, err := h.readPayload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	evts, err := events.Normalize(payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.importer.Import(r.Context(), nil, evts, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Status:     "success",
		Message:    fmt.Sprintf("Imported %d plays from %d events.", res.History, res.Events),
		Statistics: res,
	})
}

// readPayload returns the uploaded export and the requested user id.
func (h *ImportHandler) readPayload(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		return body, r.URL.Query().Get("user_id"), nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: invalid multipart body: %v", shared.ErrMalformedInput, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: missing file field: %v", shared.ErrMalformedInput, err)
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return body, r.FormValue("user_id"), nil
}

// fail maps an import error onto a status code. Internal failures are logged and not echoed.
func (h *ImportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes.", tooLarge.Limit))
	case errors.Is(err, shared.ErrMalformedInput), errors.Is(err, shared.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("import request failed", "request_id", w.Header().Get(RequestIDHeader), "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Import failed.")
	}
}
