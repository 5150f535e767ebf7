package dav

import (
	"bufio"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Server dispatches listing requests through its plugins and the Lister and
// renders the result as a multi-status body.
type Server struct {
	lister  Lister
	plugins []Plugin
	logger  zerolog.Logger
}

// NewServer creates a listing server.
func NewServer(lister Lister, logger zerolog.Logger, plugins ...Plugin) *Server {
	if lister == nil {
		panic("lister cannot be nil")
	}
	return &Server{
		lister:  lister,
		plugins: plugins,
		logger:  logger,
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.serveOptions(w)
		return
	}
	if !IsListingMethod(r.Method) {
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	for _, p := range s.plugins {
		resources, handled, err := p.BeforeMethod(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if handled {
			s.writeMultiStatus(w, r, resources)
			s.logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("Listing answered by plugin")
			return
		}
	}

	resources, err := s.lister.List(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	for _, p := range s.plugins {
		resources, err = p.BeforeMultiStatus(w, r, resources)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	s.writeMultiStatus(w, r, resources)
	s.logger.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Dur("duration", time.Since(start)).
		Msg("Listing answered")
}

const allowedMethods = "OPTIONS, PROPFIND, REPORT, SEARCH"

func (s *Server) serveOptions(w http.ResponseWriter) {
	features := []string{"1", "3"}
	for _, p := range s.plugins {
		features = append(features, p.Features()...)
	}
	w.Header().Set("DAV", strings.Join(features, ", "))
	w.Header().Set("Allow", allowedMethods)
	w.WriteHeader(http.StatusOK)
}

// writeMultiStatus streams the resources. Errors before the first byte turn
// into an error status; later errors abort the connection so a truncated
// listing is never mistaken for a complete one.
func (s *Server) writeMultiStatus(w http.ResponseWriter, r *http.Request, resources iter.Seq2[Resource, error]) {
	minimal := PreferMinimal(r)
	next, stop := iter.Pull2(resources)
	defer stop()

	res, err, ok := next()
	var first []byte
	if ok {
		if err == nil {
			first, err = encodeResource(res, minimal)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Vary", "Brief,Prefer")
	w.WriteHeader(http.StatusMultiStatus)

	bw := bufio.NewWriter(w)
	bw.WriteString(`{"responses":[`)
	written := 0
	for ok {
		if written > 0 {
			bw.WriteByte(',')
		}
		bw.Write(first)
		written++

		res, err, ok = next()
		if !ok {
			break
		}
		if err == nil {
			first, err = encodeResource(res, minimal)
		}
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("path", r.URL.Path).
				Int("written", written).
				Msg("Listing failed after response started")
			panic(http.ErrAbortHandler)
		}
	}
	bw.WriteString("]}\n")
	if err := bw.Flush(); err != nil {
		s.logger.Debug().Err(err).Msg("Client went away while writing multi-status")
	}
}

func encodeResource(res Resource, minimal bool) ([]byte, error) {
	resp, err := NewResponse(res, minimal)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, level := http.StatusInternalServerError, zerolog.ErrorLevel
	if errors.Is(err, ErrNotFound) {
		status, level = http.StatusNotFound, zerolog.WarnLevel
	}
	s.logger.WithLevel(level).
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Listing request failed")
	http.Error(w, http.StatusText(status), status)
}
