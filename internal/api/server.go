// Package api serves the client operations of the front end over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/wire"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB

	// internalErrorMessage replaces the text of internal errors in responses.
	internalErrorMessage = "internal error"
)

// Service is the front end behind the API.
type Service interface {
	ChallengeServer(identity string, sealedNonce []byte) ([]byte, error)
	AnswerChallenge(identity string, proof []byte) (bool, error)
	CreateAuction(ctx context.Context, seller string, sealed []byte) (string, error)
	CloseAuction(ctx context.Context, signed wire.Signed, auctionID uint64) (string, error)
	Bid(ctx context.Context, signed wire.Signed) (string, error)
	Auctions(ctx context.Context) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	addr    string       // addr is the HTTP listen address
	service Service      // service executes client operations
	metrics http.Handler // metrics serves /metrics, nil to disable
	server  *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, service Service, metrics http.Handler) *Server {
	return &Server{
		addr:    addr,
		service: service,
		metrics: metrics,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/challenge", s.handleChallenge)
		r.Post("/challenge/answer", s.handleAnswer)
		r.Get("/auctions", s.handleAuctions)
		r.Post("/auctions", s.handleCreateAuction)
		r.Post("/auctions/{id}/close", s.handleCloseAuction)
		r.Post("/bids", s.handleBid)
	})

	return r
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleChallenge handles POST /v1/challenge requests.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateIdentity(req.Identity); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateSealed("nonce", req.Nonce); err != nil {
		writeFailure(w, err)
		return
	}

	bundle, err := s.service.ChallengeServer(req.Identity, req.Nonce)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChallengeResponse{Bundle: bundle})
}

// handleAnswer handles POST /v1/challenge/answer requests.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateIdentity(req.Identity); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateSealed("proof", req.Proof); err != nil {
		writeFailure(w, err)
		return
	}

	ok, err := s.service.AnswerChallenge(req.Identity, req.Proof)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{Established: ok})
}

// handleAuctions handles GET /v1/auctions requests.
func (s *Server) handleAuctions(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.Auctions(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, list)
}

// handleCreateAuction handles POST /v1/auctions requests.
func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req CreateAuctionRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateIdentity(req.Identity); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateSealed("auction", req.Auction); err != nil {
		writeFailure(w, err)
		return
	}

	msg, err := s.service.CreateAuction(r.Context(), req.Identity, req.Auction)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// handleCloseAuction handles POST /v1/auctions/{id}/close requests.
func (s *Server) handleCloseAuction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeFailure(w, failure.New(failure.KindProtocol, "invalid auction ID"))
		return
	}

	var req SignedRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateSigned(req.Signed); err != nil {
		writeFailure(w, err)
		return
	}

	msg, err := s.service.CloseAuction(r.Context(), req.Signed, id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// handleBid handles POST /v1/bids requests.
func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	var req SignedRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if err := validateSigned(req.Signed); err != nil {
		writeFailure(w, err)
		return
	}

	msg, err := s.service.Bid(r.Context(), req.Signed)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// readJSON decodes a bounded JSON body into v.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return failure.Newf(failure.KindProtocol, "invalid request body: %v", err)
	}

	return nil
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind failure.Kind) int {
	switch kind {
	case failure.KindAuthentication:
		return http.StatusUnauthorized
	case failure.KindAuthorization:
		return http.StatusForbidden
	case failure.KindValidation:
		return http.StatusUnprocessableEntity
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	case failure.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeFailure writes the error response of err.
func writeFailure(w http.ResponseWriter, err error) {
	kind := failure.KindOf(err)
	msg := failure.MessageOf(err)

	switch kind {
	case failure.KindInternal:
		logger.Error("request failed", "kind", kind, "error", err)
		msg = internalErrorMessage
	case failure.KindBackendUnavailable:
		logger.Warn("request failed", "kind", kind, "error", err)
	default:
		logger.Debug("request rejected", "kind", kind, "error", err)
	}

	writeJSON(w, StatusFor(kind), ErrorResponse{
		Error: msg,
		Kind:  kind.String(),
	})
}
