// Package server exposes a Converter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/icyseptember2237/tex2typst"
)

const maxBodyBytes = 1 << 20

// Server serves conversion requests backed by one Converter.
type Server struct {
	conv   *tex2typst.Converter
	logger zerolog.Logger
}

func New(conv *tex2typst.Converter, logger zerolog.Logger) *Server {
	return &Server{conv: conv, logger: logger}
}

// Handler returns the HTTP routes of s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/tex2typst", s.handleTex2Typst)
		r.Post("/typst2tex", s.handleTypst2Tex)
		r.Get("/cache", s.handleCacheInfo)
		r.Delete("/cache", s.handleClearCache)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type convertRequest[O any] struct {
	Input   *string  `json:"input"`
	Inputs  []string `json:"inputs"`
	Collect bool     `json:"collect"`
	Options *O       `json:"options"`
}

func (req *convertRequest[O]) check() error {
	switch {
	case req.Input == nil && req.Inputs == nil:
		return errors.New(`one of "input" or "inputs" is required`)
	case req.Input != nil && req.Inputs != nil:
		return errors.New(`"input" and "inputs" are mutually exclusive`)
	case req.Input != nil && req.Collect:
		return errors.New(`"collect" applies to "inputs" only`)
	}
	return nil
}

type singleResponse struct {
	Output string `json:"output"`
}

type batchResponse struct {
	Outputs []string       `json:"outputs"`
	Errors  []errorPayload `json:"errors,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Input string `json:"input,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// operations binds the three call shapes of one direction to decoded options.
type operations struct {
	single  func(string) (string, error)
	batch   func([]string) ([]string, error)
	collect func([]string) ([]string, error)
}

func (s *Server) handleTex2Typst(w http.ResponseWriter, r *http.Request) {
	var req convertRequest[tex2typst.TexOptions]
	if !decode(w, r, &req) {
		return
	}
	s.serveConversion(w, r, req.Input, req.Inputs, req.Collect, operations{
		single: func(in string) (string, error) { return s.conv.Tex2Typst(in, req.Options) },
		batch: func(in []string) ([]string, error) {
			return s.conv.Tex2TypstBatch(in, req.Options)
		},
		collect: func(in []string) ([]string, error) {
			return s.conv.Tex2TypstBatchCollect(in, req.Options)
		},
	})
}

func (s *Server) handleTypst2Tex(w http.ResponseWriter, r *http.Request) {
	var req convertRequest[tex2typst.TypstOptions]
	if !decode(w, r, &req) {
		return
	}
	s.serveConversion(w, r, req.Input, req.Inputs, req.Collect, operations{
		single: func(in string) (string, error) { return s.conv.Typst2Tex(in, req.Options) },
		batch: func(in []string) ([]string, error) {
			return s.conv.Typst2TexBatch(in, req.Options)
		},
		collect: func(in []string) ([]string, error) {
			return s.conv.Typst2TexBatchCollect(in, req.Options)
		},
	})
}

func (s *Server) serveConversion(w http.ResponseWriter, r *http.Request, input *string, inputs []string, collect bool, ops operations) {
	switch {
	case input != nil:
		out, err := ops.single(*input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, singleResponse{Output: out})
	case collect:
		outs, err := ops.collect(inputs)
		var merr *multierror.Error
		if errors.As(err, &merr) {
			resp := batchResponse{Outputs: outs}
			for _, e := range merr.Errors {
				resp.Errors = append(resp.Errors, payload(e))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, batchResponse{Outputs: outs})
	default:
		outs, err := ops.batch(inputs)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, batchResponse{Outputs: outs})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  tex2typst.Version,
		"sessions": s.conv.Stats(),
	})
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.conv.CacheInfo())
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.conv.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func decode[T any](w http.ResponseWriter, r *http.Request, req *convertRequest[T]) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Kind:  "request",
		})
		return false
	}
	if err := req.check(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error(), Kind: "request"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := payload(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("conversion backend failed")
	}
	writeJSON(w, status, p)
}

func statusFor(err error) int {
	var ce *tex2typst.ConversionError
	var te *tex2typst.TranslationError
	switch {
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.As(err, &te):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func payload(err error) errorPayload {
	p := errorPayload{Error: err.Error(), Kind: "internal"}
	var ce *tex2typst.ConversionError
	var te *tex2typst.TranslationError
	var be *tex2typst.BindingError
	var ie *tex2typst.EngineInitError
	switch {
	case errors.As(err, &ce):
		p.Kind = "conversion"
		p.Input = ce.Input
		if ce.Index >= 0 {
			index := ce.Index
			p.Index = &index
		}
	case errors.As(err, &te):
		p.Kind = "options"
	case errors.As(err, &be):
		p.Kind = "binding"
	case errors.As(err, &ie):
		p.Kind = "init"
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
