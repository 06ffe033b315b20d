package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/mezonai/vessel/common"
	"github.com/mezonai/vessel/config"
	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/exception"
	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/jsonx"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
	"github.com/mezonai/vessel/monitoring"
	"github.com/mezonai/vessel/ratelimit"
	"github.com/mezonai/vessel/stego"
	"github.com/mezonai/vessel/store"
)

const defaultMaxUploadBytes = 32 << 20

// AppendReq carries the payload of a new block: a JSON string or object
type AppendReq struct {
	Payload json.RawMessage `json:"payload"`
}

// DigestResp is the body of GET /ledger/digest
type DigestResp struct {
	Digest string `json:"digest"`
	Base58 string `json:"base58,omitempty"`
	Length int    `json:"length"`
}

// APIServer exposes the ledger over HTTP. Every request runs load, operate and
// save under one mutex so concurrent callers see a serial history.
type APIServer struct {
	store          store.LedgerStore
	exportOpts     exchange.ExportOptions
	maxUploadBytes int64
	router         *mux.Router
	writeLimiter   *ratelimit.RateLimiter
	mu             sync.Mutex
	httpServer     *http.Server
}

// NewAPIServer creates the server and its routes. A positive WriteLimit caps
// POST requests per client per minute.
func NewAPIServer(s store.LedgerStore, exportOpts exchange.ExportOptions, cfg config.APIConfig) *APIServer {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	srv := &APIServer{
		store:          s,
		exportOpts:     exportOpts,
		maxUploadBytes: maxUploadBytes,
		router:         mux.NewRouter(),
	}
	if cfg.WriteLimit > 0 {
		limiterCfg := ratelimit.DefaultConfig()
		limiterCfg.MaxRequests = cfg.WriteLimit
		srv.writeLimiter = ratelimit.NewRateLimiter(limiterCfg)
	}
	srv.setupRoutes()
	if cfg.Metrics {
		monitoring.InitMetrics()
		monitoring.RegisterMetrics(srv.router)
	}
	return srv
}

func (s *APIServer) setupRoutes() {
	s.router.Use(exception.Middleware)
	writes := s.router.Methods("POST").Subrouter()
	if s.writeLimiter != nil {
		writes.Use(s.writeLimiter.Middleware)
	}

	// Ledger endpoints
	s.router.HandleFunc("/ledger", s.getLedger).Methods("GET")
	s.router.HandleFunc("/ledger/blocks/{index:[0-9]+}", s.getBlock).Methods("GET")
	s.router.HandleFunc("/ledger/verify", s.verifyLedger).Methods("GET")
	s.router.HandleFunc("/ledger/digest", s.getDigest).Methods("GET")
	s.router.HandleFunc("/ledger/export", s.exportLedger).Methods("GET")
	writes.HandleFunc("/ledger/blocks", s.appendBlock)
	writes.HandleFunc("/ledger/rehash", s.rehashLedger)
	writes.HandleFunc("/ledger/import", s.importLedger)

	// Image endpoints
	writes.HandleFunc("/stego/verify", s.verifyImage)
}

// GetRouter returns the configured router
func (s *APIServer) GetRouter() *mux.Router {
	return s.router
}

// Start listens on addr until ctx is cancelled
func (s *APIServer) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.writeLimiter != nil {
		s.writeLimiter.StartCleanup(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info("API", "Listening on ", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logx.Info("API", "Shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *APIServer) view(fn func(l *ledger.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.View(s.store, fn)
}

func (s *APIServer) update(fn func(l *ledger.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Update(s.store, func(l *ledger.Ledger) error {
		if err := fn(l); err != nil {
			return err
		}
		monitoring.SetChainLength(l.Len())
		return nil
	})
}

// Ledger endpoints

func (s *APIServer) getLedger(w http.ResponseWriter, r *http.Request) {
	var blocks []ledger.Block
	err := s.view(func(l *ledger.Ledger) error {
		blocks = l.Blocks()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blocks)
}

func (s *APIServer) getBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid block index", http.StatusBadRequest)
		return
	}

	var block ledger.Block
	found := true
	err = s.view(func(l *ledger.Ledger) error {
		b, err := l.GetByIndex(index)
		if err != nil {
			found = false
			return nil
		}
		block = b
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "Block not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, block)
}

func (s *APIServer) appendBlock(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxUploadBytes))
	if err != nil || len(body) == 0 {
		http.Error(w, "Empty body", http.StatusBadRequest)
		return
	}

	var req AppendReq
	if err := jsonx.Unmarshal(body, &req); err != nil || len(req.Payload) == 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var payload ledger.Payload
	if err := payload.UnmarshalJSON(req.Payload); err != nil {
		s.writeError(w, err)
		return
	}

	var block ledger.Block
	err = s.update(func(l *ledger.Ledger) error {
		b, err := l.Append(payload)
		if err != nil {
			return err
		}
		block = b
		return nil
	})
	if err != nil {
		monitoring.RecordOperationError(monitoring.OpAppend, string(ledgererr.CodeOf(err)))
		s.writeError(w, err)
		return
	}

	monitoring.IncreaseAppendedBlocks()
	monitoring.RecordOperationDuration(monitoring.OpAppend, time.Since(start))
	logx.Info("API", fmt.Sprintf("Appended block %d", block.Index))
	s.writeJSON(w, http.StatusCreated, block)
}

func (s *APIServer) verifyLedger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var result ledger.ValidationResult
	err := s.view(func(l *ledger.Ledger) error {
		result = l.Verify()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	monitoring.RecordOperationDuration(monitoring.OpVerify, time.Since(start))
	if !result.Valid {
		monitoring.RecordVerifyFailure(string(result.Reason))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) getDigest(w http.ResponseWriter, r *http.Request) {
	var resp DigestResp
	err := s.view(func(l *ledger.Ledger) error {
		digest, err := l.Digest()
		if err != nil {
			return err
		}
		resp.Digest = digest
		resp.Length = l.Len()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("base58") == "true" {
		encoded, err := common.DigestToBase58(resp.Digest)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Base58 = encoded
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) rehashLedger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dryRun := r.URL.Query().Get("dry_run") == "true"

	var result ledger.RehashResult
	run := s.update
	if dryRun {
		run = s.view
	}
	err := run(func(l *ledger.Ledger) error {
		res, err := l.Rehash(dryRun)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		monitoring.RecordOperationError(monitoring.OpRehash, string(ledgererr.CodeOf(err)))
		s.writeError(w, err)
		return
	}

	if !dryRun {
		monitoring.AddDriftedBlocks(len(result.Drifted))
	}
	monitoring.RecordOperationDuration(monitoring.OpRehash, time.Since(start))
	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) importLedger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	modeParam := r.URL.Query().Get("mode")
	if modeParam == "" {
		modeParam = string(ledger.ImportMerge)
	}
	mode, err := ledger.ParseImportMode(modeParam)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	source, err := s.readSource(r)
	if err != nil {
		monitoring.RecordOperationError(monitoring.OpImport, string(ledgererr.CodeOf(err)))
		s.writeError(w, err)
		return
	}

	var result ledger.ImportResult
	err = s.update(func(l *ledger.Ledger) error {
		res, err := l.Import(source, mode)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		monitoring.RecordOperationError(monitoring.OpImport, string(ledgererr.CodeOf(err)))
		s.writeError(w, err)
		return
	}

	monitoring.RecordOperationDuration(monitoring.OpImport, time.Since(start))
	logx.Info("API", fmt.Sprintf("Imported %d blocks (%s)", result.Added, result.Mode))
	s.writeJSON(w, http.StatusOK, result)
}

// readSource accepts either a PNG artifact or a JSON ledger array. A PNG
// whose chain does not verify is rejected.
func (s *APIServer) readSource(r *http.Request) ([]ledger.Block, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxUploadBytes))
	if err != nil {
		return nil, err
	}

	if r.Header.Get("Content-Type") != "image/png" {
		return ledger.ParseLedger(body)
	}

	img, err := stego.ReadPNG(bytes.NewReader(body))
	if err != nil {
		return nil, ledgererr.NewUnsupportedImageError(err.Error())
	}
	res, err := exchange.ImportLedger(img)
	if err != nil {
		return nil, err
	}
	monitoring.RecordExtractedBytes(len(body))
	if err := res.Validation.Err(); err != nil {
		return nil, err
	}
	return res.Blocks, nil
}

func (s *APIServer) exportLedger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	opts := s.exportOpts
	if size := r.URL.Query().Get("size"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid size", http.StatusBadRequest)
			return
		}
		opts.TargetSize = n
	}

	var png []byte
	err := s.view(func(l *ledger.Ledger) error {
		canonical, err := l.Canonical()
		if err != nil {
			return err
		}
		img, err := exchange.ExportLedger(l.Blocks(), nil, opts)
		if err != nil {
			return err
		}
		monitoring.RecordEmbeddedBytes(len(canonical))
		png, err = stego.EncodePNG(img)
		return err
	})
	if err != nil {
		monitoring.RecordOperationError(monitoring.OpExport, string(ledgererr.CodeOf(err)))
		s.writeError(w, err)
		return
	}

	monitoring.RecordOperationDuration(monitoring.OpExport, time.Since(start))
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		logx.Error("API", "Failed to write PNG response: ", err)
	}
}

// Image endpoints

func (s *APIServer) verifyImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	img, err := stego.ReadPNG(io.LimitReader(r.Body, s.maxUploadBytes))
	if err != nil {
		s.writeError(w, ledgererr.NewUnsupportedImageError(err.Error()))
		return
	}

	report, err := exchange.VerifyOnly(img, r.URL.Query().Get("digest") == "true")
	if err != nil {
		monitoring.RecordOperationError(monitoring.OpExtract, string(ledgererr.CodeOf(err)))
		s.writeError(w, err)
		return
	}

	monitoring.RecordExtractedBytes(report.PayloadBytes)
	monitoring.RecordOperationDuration(monitoring.OpExtract, time.Since(start))
	if !report.Valid {
		monitoring.RecordVerifyFailure(string(report.Reason))
	}
	s.writeJSON(w, http.StatusOK, report)
}

// Helper methods

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(data); err != nil {
		logx.Error("API", "Failed to encode JSON response:", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	le, ok := ledgererr.As(err)
	if !ok {
		logx.Error("API", "Request failed: ", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"code":    "internal_error",
			"message": err.Error(),
		})
		return
	}
	s.writeJSON(w, statusFor(le.Code), le)
}

func statusFor(code ledgererr.ErrorCode) int {
	switch code {
	case ledgererr.ErrCodeSerialization:
		return http.StatusBadRequest
	case ledgererr.ErrCodeCapacity:
		return http.StatusRequestEntityTooLarge
	case ledgererr.ErrCodeIntegrity, ledgererr.ErrCodeChainInvalid:
		return http.StatusUnprocessableEntity
	case ledgererr.ErrCodeImportConflict:
		return http.StatusConflict
	case ledgererr.ErrCodeUnsupportedImage:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
