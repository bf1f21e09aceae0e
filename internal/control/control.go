// Package control implements the HTTP command surface and a websocket
// counter-streaming feed: a gorilla/mux router, a gorilla/websocket
// upgrader, and a broadcast loop fanning cumulative state out to
// connected clients.
package control

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/radio"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/txpower"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// CounterMessage is one push sent to every connected websocket client.
type CounterMessage struct {
	Type      string                    `json:"type"`
	Timestamp time.Time                 `json:"timestamp"`
	Counters  sched.Counters            `json:"counters"`
	QueueLens [wireclass.NumClasses]int `json:"queue_lens"`
}

// Server is the control-surface HTTP+websocket endpoint wrapping a
// scheduler Context, the radio capability, and the TX-power controller.
// Command handlers rely on sched.Context's setters to clamp/coerce
// their inputs.
type Server struct {
	ctx    *sched.Context
	r      radio.Radio
	tx     *txpower.Controller
	logger *zap.Logger
	rng    *rand.Rand
	rngMu  sync.Mutex

	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool

	broadcast chan CounterMessage
	stop      chan struct{}
}

// New constructs a Server bound to ctx, the radio it issues manual power
// overrides against, and the TX-power controller it toggles via
// /autotx. r and tx may be nil in tests that never exercise those
// endpoints.
func New(ctx *sched.Context, r radio.Radio, tx *txpower.Controller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ctx:       ctx,
		r:         r,
		tx:        tx,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan CounterMessage, 16),
		stop:      make(chan struct{}),
	}
}

// Router builds the gorilla/mux router for the full command surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/help", s.handleHelp).Methods(http.MethodGet)
	r.HandleFunc("/class/{id}/period", s.handleClassPeriod).Methods(http.MethodPost)
	r.HandleFunc("/class/{id}/type", s.handleClassType).Methods(http.MethodPost)
	r.HandleFunc("/class/{id}/count", s.handleClassCount).Methods(http.MethodPost)
	r.HandleFunc("/threshold", s.handleThreshold).Methods(http.MethodPost)
	r.HandleFunc("/random", s.handleRandom).Methods(http.MethodPost)
	r.HandleFunc("/random/type", s.handleRandomType).Methods(http.MethodPost)
	r.HandleFunc("/random/size", s.handleRandomSize).Methods(http.MethodPost)
	r.HandleFunc("/random/deadline", s.handleRandomDeadline).Methods(http.MethodPost)
	r.HandleFunc("/random/burst", s.handleRandomBurst).Methods(http.MethodPost)
	r.HandleFunc("/txpower", s.handleTXPower).Methods(http.MethodPost)
	r.HandleFunc("/autotx", s.handleAutoTX).Methods(http.MethodPost)
	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/ws/counters", s.handleWebSocket)
	return r
}

// BroadcastLoop periodically pushes a counter snapshot to every
// connected client until stopped.
func (s *Server) BroadcastLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.pushSnapshot()
		case msg := <-s.broadcast:
			s.fanOut(msg)
		}
	}
}

// Stop ends the broadcast loop.
func (s *Server) Stop() { close(s.stop) }

func (s *Server) pushSnapshot() {
	msg := CounterMessage{
		Type:      "counters",
		Timestamp: time.Now(),
		Counters:  s.ctx.Counters(),
		QueueLens: s.ctx.QueueLens(),
	}
	select {
	case s.broadcast <- msg:
	default:
	}
}

func (s *Server) fanOut(msg CounterMessage) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			client.Close()
			delete(s.clients, client)
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"counters":      s.ctx.Counters(),
		"queue_lens":    s.ctx.QueueLens(),
		"threshold_ms":  s.ctx.Threshold(),
		"random_config": s.ctx.RandomConfig(),
	}
	for _, cl := range []wireclass.Class{wireclass.ClassA, wireclass.ClassB, wireclass.ClassC} {
		status["class_"+cl.String()] = s.ctx.ClassConfig(cl)
	}
	if s.tx != nil {
		status["autotx"] = s.tx.Enabled()
	}
	writeJSON(w, status)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"GET /status":                "cumulative counters, queue depths, and current configuration",
		"GET /help":                  "this message",
		"POST /class/{id}/period":    `{"period_ms":n,"deadline_ms":n,"auto":bool} set a periodic class's period/deadline; id is a|b|c`,
		"POST /class/{id}/type":      `{"data_type":"i8|i16|i32|f32|f64"} set a periodic class's element type`,
		"POST /class/{id}/count":     `{"count":n} set a periodic class's target element count`,
		"POST /threshold":            `{"threshold_ms":n} set the batcher's processing horizon`,
		"POST /random":               `{"enabled":bool,"min_interval_ms":n,"max_interval_ms":n} toggle and parameterize the random producer`,
		"POST /random/type":          `{"data_type":"i8|i16|i32|f32|f64"} set the random class's element type`,
		"POST /random/size":          `{"count":n} set the random class's element count`,
		"POST /random/deadline":      `{"deadline_ms":n} set the random class's relative deadline`,
		"POST /random/burst":         `{"enabled":bool,"period_ms":n,"interval_ms":n} configure the random producer's burst mode`,
		"POST /txpower":              `{"level":"min|low|medium|high"} manually override the applied TX power level`,
		"POST /autotx":               `{"enabled":bool} toggle the automatic RSSI-driven TX-power controller`,
		"POST /reset":                "zero the cumulative counters",
		"POST /start":                "acknowledge scheduler liveness",
		"GET /ws/counters":           "websocket feed of counters and queue depths, pushed once per broadcast interval",
	})
}

func classFromName(name string) (wireclass.Class, bool) {
	switch name {
	case "a", "A":
		return wireclass.ClassA, true
	case "b", "B":
		return wireclass.ClassB, true
	case "c", "C":
		return wireclass.ClassC, true
	default:
		return 0, false
	}
}

type classPeriodRequest struct {
	PeriodMs   int64 `json:"period_ms"`
	DeadlineMs int64 `json:"deadline_ms"`
	Auto       bool  `json:"auto"`
}

// handleClassPeriod implements the "set class period deadline" command,
// with "auto" picking a random period (and, absent an explicit
// deadline_ms, a matching deadline) in [sched.MinPeriodMs,
// sched.MaxPeriodMs].
func (s *Server) handleClassPeriod(w http.ResponseWriter, r *http.Request) {
	cl, ok := classFromName(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown class", http.StatusNotFound)
		return
	}
	var req classPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	cfg := s.ctx.ClassConfig(cl)
	if req.Auto {
		cfg.PeriodMs = s.randomPeriod()
	} else {
		cfg.PeriodMs = req.PeriodMs
	}
	if req.DeadlineMs > 0 {
		cfg.RelDeadlineMs = req.DeadlineMs
	} else if req.Auto {
		cfg.RelDeadlineMs = cfg.PeriodMs
	}
	s.ctx.SetClassConfig(cl, cfg)
	writeJSON(w, s.ctx.ClassConfig(cl))
}

func (s *Server) randomPeriod() int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	const span = int64(sched.MaxPeriodMs - sched.MinPeriodMs)
	return int64(sched.MinPeriodMs) + s.rng.Int63n(span+1)
}

type classTypeRequest struct {
	DataType string `json:"data_type"`
}

func (s *Server) handleClassType(w http.ResponseWriter, r *http.Request) {
	cl, ok := classFromName(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown class", http.StatusNotFound)
		return
	}
	var req classTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	dt, ok := wireclass.ParseDataType(req.DataType)
	if !ok {
		http.Error(w, "unknown data_type", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.ClassConfig(cl)
	cfg.DataType = dt
	s.ctx.SetClassConfig(cl, cfg)
	writeJSON(w, s.ctx.ClassConfig(cl))
}

type classCountRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleClassCount(w http.ResponseWriter, r *http.Request) {
	cl, ok := classFromName(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown class", http.StatusNotFound)
		return
	}
	var req classCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.ClassConfig(cl)
	cfg.CountTarget = req.Count
	s.ctx.SetClassConfig(cl, cfg)
	writeJSON(w, s.ctx.ClassConfig(cl))
}

type thresholdRequest struct {
	ThresholdMs int64 `json:"threshold_ms"`
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.ctx.SetThreshold(req.ThresholdMs)
	writeJSON(w, map[string]int64{"threshold_ms": s.ctx.Threshold()})
}

type randomToggleRequest struct {
	Enabled       bool  `json:"enabled"`
	MinIntervalMs int64 `json:"min_interval_ms"`
	MaxIntervalMs int64 `json:"max_interval_ms"`
}

// handleRandom implements "rpacket on|off [min_ms] [max_ms]". A zero
// min/max in the request leaves that bound at its current value.
func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	var req randomToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.RandomConfig()
	cfg.Enabled = req.Enabled
	if req.MinIntervalMs > 0 {
		cfg.MinIntervalMs = req.MinIntervalMs
	}
	if req.MaxIntervalMs > 0 {
		cfg.MaxIntervalMs = req.MaxIntervalMs
	}
	s.ctx.SetRandomConfig(cfg)
	writeJSON(w, s.ctx.RandomConfig())
}

func (s *Server) handleRandomType(w http.ResponseWriter, r *http.Request) {
	var req classTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	dt, ok := wireclass.ParseDataType(req.DataType)
	if !ok {
		http.Error(w, "unknown data_type", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.RandomConfig()
	cfg.DataType = dt
	s.ctx.SetRandomConfig(cfg)
	writeJSON(w, s.ctx.RandomConfig())
}

func (s *Server) handleRandomSize(w http.ResponseWriter, r *http.Request) {
	var req classCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.RandomConfig()
	cfg.ElementCount = sched.ClampCount(req.Count)
	s.ctx.SetRandomConfig(cfg)
	writeJSON(w, s.ctx.RandomConfig())
}

func (s *Server) handleRandomDeadline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeadlineMs int64 `json:"deadline_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.RandomConfig()
	cfg.RelDeadlineMs = req.DeadlineMs
	s.ctx.SetRandomConfig(cfg)
	writeJSON(w, s.ctx.RandomConfig())
}

type randomBurstRequest struct {
	Enabled    bool  `json:"enabled"`
	PeriodMs   int64 `json:"period_ms"`
	IntervalMs int64 `json:"interval_ms"`
}

func (s *Server) handleRandomBurst(w http.ResponseWriter, r *http.Request) {
	var req randomBurstRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	cfg := s.ctx.RandomConfig()
	cfg.BurstEnabled = req.Enabled
	if req.PeriodMs > 0 {
		cfg.BurstPeriodMs = req.PeriodMs
	}
	if req.IntervalMs > 0 {
		cfg.BurstIntervalMs = req.IntervalMs
	}
	s.ctx.SetRandomConfig(cfg)
	writeJSON(w, s.ctx.RandomConfig())
}

type txPowerRequest struct {
	Level string `json:"level"`
}

// handleTXPower implements the manual "txpower v" command: it writes
// directly to the radio and leaves the automatic controller's cached
// level unchanged, so the controller writes again only once its mapped
// level differs from the level it last applied itself.
func (s *Server) handleTXPower(w http.ResponseWriter, r *http.Request) {
	if s.r == nil {
		http.Error(w, "radio unavailable", http.StatusServiceUnavailable)
		return
	}
	var req txPowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	level, ok := radio.ParseLevel(req.Level)
	if !ok {
		http.Error(w, "unknown level", http.StatusBadRequest)
		return
	}
	if err := s.r.SetPower(r.Context(), level); err != nil {
		http.Error(w, "set power failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"level": level.String()})
}

type autoTXRequest struct {
	Enabled bool `json:"enabled"`
}

// handleAutoTX implements "autotx on|off": toggling the adaptive
// controller on or off without touching the last-applied power level.
func (s *Server) handleAutoTX(w http.ResponseWriter, r *http.Request) {
	if s.tx == nil {
		http.Error(w, "tx-power controller unavailable", http.StatusServiceUnavailable)
		return
	}
	var req autoTXRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.tx.SetEnabled(req.Enabled)
	writeJSON(w, map[string]bool{"autotx": s.tx.Enabled()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ctx.Reset()
	writeJSON(w, map[string]string{"status": "reset"})
}

// handleStart acknowledges scheduler liveness; producers, batcher, and
// the TX-power controller are already running as goroutines started at
// process launch, so this is a readiness ack rather than a real
// lifecycle transition.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "started"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("control: websocket upgrade failed", zap.Error(err))
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
