package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pintopics/api/internal/chat"
	"pintopics/api/internal/pets"
)

const (
	gatewayTokenHeader = "X-Pintopics-Gateway-Token"
	callerHeader       = "X-Caller-ID"
	maxUploadBytes     = 32 << 20
)

type HTTPServer struct {
	service      *Service
	gatewayToken string
	metrics      http.Handler
}

// NewHTTPServer builds the gateway-facing API. An empty token disables the
// gateway check; metrics may be nil.
func NewHTTPServer(service *Service, gatewayToken string, metrics http.Handler) *HTTPServer {
	return &HTTPServer{service: service, gatewayToken: gatewayToken, metrics: metrics}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		checks, ready := s.service.Ready(r.Context())
		status, statusCode := "ready", http.StatusOK
		if !ready {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ready,
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" && s.metrics != nil {
		s.metrics.ServeHTTP(w, r)
		return
	}

	if !s.authorizedGateway(r) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid gateway token", nil)
		return
	}
	caller := strings.TrimSpace(r.Header.Get(callerHeader))

	if r.Method == http.MethodPost && r.URL.Path == "/api/events/message" {
		var event chat.MessageEvent
		if err := decodeBody(r, &event); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		posted := s.service.HandleMessage(r.Context(), event)
		writeJSON(w, http.StatusOK, map[string]any{"posted": posted})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/events" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := s.service.RecentEvents(r.Context(), caller, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/reconcile" {
		counts, err := s.service.Reconcile(r.Context(), caller)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
		return
	}

	parts := splitPath(r.URL.EscapedPath())
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "keywords" {
		s.handleKeywords(w, r, caller, parts[2:])
		return
	}
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "suppressions" {
		s.handleSuppressions(w, r, caller, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleKeywords(w http.ResponseWriter, r *http.Request, caller string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		keywords, err := s.service.ListKeywords(caller)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"keywords": keywords})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			Name   string `json:"name"`
			Emblem string `json:"emblem"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		keyword, err := s.service.RegisterKeyword(r.Context(), caller, body.Name, body.Emblem)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		status := http.StatusOK
		if keyword["created"] == true {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"keyword": keyword})

	case len(rest) == 2 && rest[1] == "media" && r.Method == http.MethodPost:
		s.handleUpload(w, r, caller, pathParam(rest[0]))

	case len(rest) == 2 && rest[1] == "emblem" && r.Method == http.MethodPut:
		var body struct {
			Emblem string `json:"emblem"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SetEmblem(r.Context(), caller, pathParam(rest[0]), body.Emblem); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, caller, keyword string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form with a media file", nil)
		return
	}
	file, header, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "missing media file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read media file", nil)
		return
	}

	result, err := s.service.Upload(r.Context(), caller, pets.UploadInput{
		Keyword:     keyword,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleSuppressions(w http.ResponseWriter, r *http.Request, caller string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		terms, err := s.service.Suppressions(caller)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"terms": terms})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			Term string `json:"term"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		added, err := s.service.SuppressAdd(r.Context(), caller, body.Term)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"changed": added})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		removed, err := s.service.SuppressRemove(r.Context(), caller, pathParam(rest[0]))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"changed": removed})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) authorizedGateway(r *http.Request) bool {
	if s.gatewayToken == "" {
		return true
	}
	got := r.Header.Get(gatewayTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.gatewayToken)) == 1
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("Cache-Control", "no-store")
		writer.Header().Set("Content-Type", "application/json")
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","caller":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			r.Header.Get(callerHeader),
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeDomainError(w http.ResponseWriter, err error) {
	domainErr := asDomainError(err)
	writeError(w, domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// pathParam unescapes one segment of an escaped path, falling back to the raw
// segment when it is malformed.
func pathParam(segment string) string {
	if value, err := url.PathUnescape(segment); err == nil {
		return value
	}
	return segment
}
