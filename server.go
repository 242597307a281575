package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"drainsum/config"
	"drainsum/numseq"
	"drainsum/store"
	"drainsum/trackers/active"
	"drainsum/trackers/buckets"
	"drainsum/trackers/ip"
	"drainsum/trackers/lastrequests"
	"drainsum/trackers/system"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

type server struct {
	cfg     *config.Config
	store   *store.Store
	bans    *ip.Tracker
	routes  *buckets.PerRoute
	overall *buckets.Histogram
	active  *active.Registry
	recent  *lastrequests.Ring
	logger  *zap.Logger
}

func newServer(cfg *config.Config, logger *zap.Logger) *server {
	return &server{
		cfg:     cfg,
		store:   store.New(cfg.Store.MaxSequenceLen, logger.Named("store")),
		bans:    ip.NewTracker(cfg.Ban.RejectThreshold, cfg.BanDuration(), logger.Named("ban")),
		routes:  buckets.NewPerRoute(cfg.Stats.Buckets),
		overall: buckets.NewHistogram(cfg.Stats.Buckets),
		active:  active.NewRegistry(),
		recent:  lastrequests.NewRing(cfg.Stats.RecentSize),
		logger:  logger,
	}
}

func (s *server) handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/sum", s.handleSum)
	api.HandleFunc("POST /api/seq", s.handleCreate)
	api.HandleFunc("GET /api/seqs", s.handleList)
	api.HandleFunc("GET /api/seq/{id}", s.handleGet)
	api.HandleFunc("DELETE /api/seq/{id}", s.handleDelete)
	api.HandleFunc("POST /api/seq/{id}/values", s.handleAppend)
	api.HandleFunc("DELETE /api/seq/{id}/values", s.handleClear)
	api.HandleFunc("GET /api/seq/{id}/sum", s.handleSeqSum)
	api.HandleFunc("POST /api/seq/{id}/drain", s.handleDrain)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.track(api))
	mux.HandleFunc("GET /__sumd/api/info", s.handleInfo)
	mux.HandleFunc("GET /__sumd/api/recent", s.handleRecent)
	mux.HandleFunc("POST /__sumd/api/unban", s.handleUnban)
	return mux
}

// run serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *server) run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("sumd listening",
			zap.String("addr", ln.Addr().String()),
			zap.Int("rejectThreshold", s.cfg.Ban.RejectThreshold),
			zap.Duration("banDuration", s.cfg.BanDuration()),
			zap.Bool("banDisabled", s.cfg.Ban.Disabled),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// opNote lets handlers attach the totals they computed to the access log.
type opNote struct {
	count int
	sum   float64
}

type opNoteKey struct{}

func noteTotals(r *http.Request, res store.Result) {
	if n, ok := r.Context().Value(opNoteKey{}).(*opNote); ok {
		n.count = res.Count
		n.sum = res.Sum
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// track applies the ban check and records statistics for every API request.
func (s *server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		client := clientIP(r, s.cfg.Server.TrustForwardedFor)
		route := CleanPath(r.URL.Path)
		w.Header().Set("X-Request-ID", reqID)

		sw := &statusWriter{ResponseWriter: w}
		note := &opNote{}

		if !s.cfg.Ban.Disabled && s.bans.Check(client) {
			writeError(sw, http.StatusForbidden, "forbidden")
			s.finish(r, reqID, route, client, sw.status, note, start)
			return
		}

		gauge := s.active.Start(route)
		defer gauge.Done()

		ctx := context.WithValue(r.Context(), opNoteKey{}, note)
		next.ServeHTTP(sw, r.WithContext(ctx))

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		if sw.status >= 400 && sw.status < 500 {
			s.bans.Reject(client)
		}
		s.finish(r, reqID, route, client, sw.status, note, start)
	})
}

func (s *server) finish(r *http.Request, reqID, route, client string, status int, note *opNote, start time.Time) {
	duration := time.Since(start).Seconds()

	s.bans.RecordStatus(client, status)
	s.routes.For(route).Observe(duration, status)
	s.overall.Observe(duration, status)
	s.recent.Add(lastrequests.Operation{
		RequestID: reqID,
		Method:    r.Method,
		Route:     route,
		Status:    status,
		ClientIP:  client,
		Count:     note.count,
		Sum:       note.sum,
		Start:     start,
		Duration:  duration,
	})

	s.logger.Info("access",
		zap.String("requestId", reqID),
		zap.String("method", r.Method),
		zap.String("url", r.URL.String()),
		zap.String("ip", client),
		zap.Int("status", status),
		zap.Float64("duration", duration),
	)
}

type valuesRequest struct {
	Values []float64 `json:"values"`
}

type sumResponse struct {
	Sum     float64   `json:"sum"`
	Count   int       `json:"count"`
	Drained []float64 `json:"drained"`
}

type seqResponse struct {
	ID  uuid.UUID `json:"id"`
	Len int       `json:"len"`
}

func (s *server) decodeValues(w http.ResponseWriter, r *http.Request) (valuesRequest, bool) {
	var req valuesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return req, false
	}
	return req, true
}

func (s *server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown sequence id")
		return uuid.Nil, false
	}
	return id, true
}

// handleSum drains the posted values. The request body is the caller's
// sequence; the response echoes it back, now empty.
func (s *server) handleSum(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeValues(w, r)
	if !ok {
		return
	}
	if len(req.Values) > s.cfg.Store.MaxSequenceLen {
		writeError(w, http.StatusRequestEntityTooLarge, store.ErrTooLarge.Error())
		return
	}
	if math.IsInf(numseq.Sum(req.Values), 0) {
		writeStoreError(w, store.ErrOverflow)
		return
	}
	if req.Values == nil {
		req.Values = []float64{}
	}

	totals := numseq.DrainCount(&req.Values)
	res := store.Result{Sum: totals.First, Count: totals.Second}
	noteTotals(r, res)
	writeJSON(w, http.StatusOK, sumResponse{Sum: res.Sum, Count: res.Count, Drained: req.Values})
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeValues(w, r)
	if !ok {
		return
	}
	id, err := s.store.Create(req.Values...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seqResponse{ID: id, Len: len(req.Values)})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sequences": s.store.List()})
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	values, err := s.store.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if values == nil {
		values = []float64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "len": len(values), "values": values})
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleAppend(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeValues(w, r)
	if !ok {
		return
	}
	n, err := s.store.Append(id, req.Values...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seqResponse{ID: id, Len: n})
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Clear(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSeqSum(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	res, err := s.store.Sum(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	noteTotals(r, res)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleDrain(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	res, err := s.store.Drain(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	noteTotals(r, res)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleInfo(w http.ResponseWriter, r *http.Request) {
	routes := s.routes.Snapshots()
	for route, snap := range routes {
		g := s.active.Get(route)
		snap.Active = g.Current()
		snap.MaxActive = g.Max()
		routes[route] = snap
	}

	info := map[string]any{
		"clients":   s.bans.Snapshot(),
		"overall":   s.overall.Snapshot(),
		"routes":    routes,
		"sequences": s.store.Len(),
	}
	if host, err := system.Collect("/"); err != nil {
		s.logger.Warn("failed to collect system info", zap.Error(err))
		info["systemError"] = err.Error()
	} else {
		info["system"] = host
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recent.All())
}

func (s *server) handleUnban(w http.ResponseWriter, r *http.Request) {
	s.bans.UnbanAll()
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("All clients have been unbanned."))
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, store.ErrOverflow):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
