package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

// StatusFor maps an error to the HTTP status returned to clients.
func StatusFor(err error) int {
	switch tzerrors.GetErrorCode(err) {
	case tzerrors.CodeInvalidPath:
		return http.StatusBadRequest
	case tzerrors.CodeLocationNotFound, tzerrors.CodeEntryNotFound:
		return http.StatusNotFound
	case tzerrors.CodeFetchFailed, tzerrors.CodeManifestFetch,
		tzerrors.CodeOutOfBounds, tzerrors.CodeInvalidResolution, tzerrors.CodeInvalidLocation:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, r, tzerrors.NewInvalidPathError(path))
		return
	}
	s.serveTile(w, r, path)
}

func (s *Server) handleTilePath(w http.ResponseWriter, r *http.Request) {
	s.serveTile(w, r, chi.URLParam(r, "*"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) serveTile(w http.ResponseWriter, r *http.Request, path string) {
	tile, err := s.accessor.Open(r.Context(), path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	etag := `"` + tile.Digest.String() + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", tile.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(tile.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(tile.Data); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Error writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := tzerrors.GetErrorCode(err)
	if code == "" {
		code = "INTERNAL"
	}

	l := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("code", code).Msg("Request failed")
	} else {
		l.Debug().Err(err).Str("code", code).Msg("Request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: err.Error()})
}

// requestID tags each request with an id, echoed in X-Request-Id and attached
// to the request's logger.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		l := s.logger.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("uri", r.URL.RequestURI()).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	})
}
