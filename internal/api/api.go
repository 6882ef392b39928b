package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
)

// Runner executes the action batch a request produced.
type Runner interface {
	Run(actions []model.Action) int
}

// DiagnosticsSource reports the IR encoder counters.
type DiagnosticsSource interface {
	Diagnostics() ir.Diagnostics
}

type Server struct {
	state          *state.Controller
	runner         Runner
	diagnostics    DiagnosticsSource
	maxHoldMinutes int
	wsInterval     time.Duration
	now            func() time.Time
}

type TimeResponse struct {
	TimeSynced bool   `json:"timeSynced"`
	Timezone   string `json:"timezone"`
	NowEpoch   int64  `json:"nowEpoch"`
}

type TimezoneRequest struct {
	Timezone string `json:"timezone"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(st *state.Controller, runner Runner, diagnostics DiagnosticsSource, maxHoldMinutes int) *Server {
	return &Server{
		state:          st,
		runner:         runner,
		diagnostics:    diagnostics,
		maxHoldMinutes: maxHoldMinutes,
		wsInterval:     time.Second,
		now:            time.Now,
	}
}

var irCommands = map[string]state.Command{
	"/api/ir/on":           state.CmdPowerOn,
	"/api/ir/off":          state.CmdPowerOff,
	"/api/ir/heat/on":      state.CmdHeatOn,
	"/api/ir/heat/off":     state.CmdHeatOff,
	"/api/ir/heat/up":      state.CmdHeatUp,
	"/api/ir/heat/down":    state.CmdHeatDown,
	"/api/ir/light/toggle": state.CmdLightToggle,
	"/api/ir/timer/toggle": state.CmdTimerToggle,
}

// Router wires every endpoint behind permissive CORS for the local web UI.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", s.getStatus).Methods("GET")
	r.HandleFunc("/api/target", s.setTarget).Methods("POST")
	r.HandleFunc("/api/mode", s.setMode).Methods("POST")
	r.HandleFunc("/api/hysteresis", s.setHysteresis).Methods("POST")
	r.HandleFunc("/api/offset", s.setOffset).Methods("POST")

	for path, cmd := range irCommands {
		r.HandleFunc(path, s.manual(cmd)).Methods("POST")
	}
	r.HandleFunc("/api/ir/diagnostics", s.getDiagnostics).Methods("GET")

	r.HandleFunc("/api/hold/enter", s.enterHold).Methods("POST")
	r.HandleFunc("/api/hold/exit", s.exitHold).Methods("POST")
	r.HandleFunc("/api/safety/reset", s.resetSafety).Methods("POST")

	r.HandleFunc("/api/schedule", s.getSchedule).Methods("GET")
	r.HandleFunc("/api/schedule", s.putSchedule).Methods("PUT")
	r.HandleFunc("/api/time", s.getTime).Methods("GET")
	r.HandleFunc("/api/timezone", s.putTimezone).Methods("PUT")

	r.HandleFunc("/api/ws", s.serveWS).Methods("GET")

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)
}

// HTTPServer returns the listener for port with request logging through zerolog.
func (s *Server) HTTPServer(port int) *http.Server {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	return &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(log.Logger, s.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Status(s.now()))
}

func (s *Server) setTarget(w http.ResponseWriter, r *http.Request) {
	value, ok := s.requireValue(w, r)
	if !ok {
		return
	}
	target, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(target) || math.IsInf(target, 0) {
		s.writeError(w, http.StatusBadRequest, "Invalid temperature value")
		return
	}
	if s.state.SetTarget(target) {
		log.Info().Float64("target", target).Msg("Target temperature updated via API")
	}
	s.getStatus(w, r)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	value, ok := s.requireValue(w, r)
	if !ok {
		return
	}
	mode, ok := model.ParseMode(value)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid mode. Use 'HEAT' or 'OFF'")
		return
	}
	changed, actions := s.state.SetMode(mode, s.now())
	s.runner.Run(actions)
	if changed {
		log.Info().Str("mode", string(mode)).Msg("Mode updated via API")
	}
	s.getStatus(w, r)
}

func (s *Server) setHysteresis(w http.ResponseWriter, r *http.Request) {
	value, ok := s.requireValue(w, r)
	if !ok {
		return
	}
	hysteresis, err := strconv.ParseFloat(value, 64)
	if err != nil || hysteresis < model.MinHysteresisF || hysteresis > model.MaxHysteresisF {
		s.writeError(w, http.StatusBadRequest, "Invalid hysteresis value (0.5-5.0)")
		return
	}
	s.state.SetHysteresis(hysteresis)
	s.getStatus(w, r)
}

func (s *Server) setOffset(w http.ResponseWriter, r *http.Request) {
	value, ok := s.requireValue(w, r)
	if !ok {
		return
	}
	offset, err := strconv.Atoi(value)
	if err != nil || !model.ValidFireplaceOffset(offset) {
		s.writeError(w, http.StatusBadRequest, "Invalid offset value (2-10, even only)")
		return
	}
	s.state.SetFireplaceOffset(offset)
	s.getStatus(w, r)
}

func (s *Server) manual(cmd state.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actions, err := s.state.Manual(cmd, s.now())
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.runner.Run(actions)
		log.Info().Str("command", string(cmd)).Msg("Manual fireplace command via API")
		s.getStatus(w, r)
	}
}

func (s *Server) getDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.diagnostics.Diagnostics())
}

// enterHold takes ?minutes=N. A missing or unusable value means the default
// hold; values above the configured maximum are capped.
func (s *Server) enterHold(w http.ResponseWriter, r *http.Request) {
	var d time.Duration
	if minutes, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && minutes > 0 {
		if minutes > s.maxHoldMinutes {
			minutes = s.maxHoldMinutes
		}
		d = time.Duration(minutes) * time.Minute
	}
	s.state.EnterHold(d, s.now())
	s.getStatus(w, r)
}

func (s *Server) exitHold(w http.ResponseWriter, r *http.Request) {
	s.state.ExitHold()
	s.getStatus(w, r)
}

func (s *Server) resetSafety(w http.ResponseWriter, r *http.Request) {
	s.state.ResetSafety()
	log.Info().Msg("Safety state reset via API")
	s.getStatus(w, r)
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	sched := s.state.Schedule()
	if sched.Entries == nil {
		sched.Entries = []schedule.Entry{}
	}
	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) putSchedule(w http.ResponseWriter, r *http.Request) {
	var sched schedule.Schedule
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&sched); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid schedule payload")
		return
	}
	kept := s.state.SetSchedule(sched)
	log.Info().Bool("enabled", kept.Enabled).Int("entries", len(kept.Entries)).Msg("Schedule updated via API")
	s.getSchedule(w, r)
}

func (s *Server) getTime(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, TimeResponse{
		TimeSynced: s.state.TimeSynced(),
		Timezone:   s.state.Timezone(),
		NowEpoch:   s.now().Unix(),
	})
}

func (s *Server) putTimezone(w http.ResponseWriter, r *http.Request) {
	var req TimezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := s.state.SetTimezone(req.Timezone); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid timezone value")
		return
	}
	log.Info().Str("timezone", req.Timezone).Msg("Timezone updated via API")
	s.getTime(w, r)
}

func (s *Server) requireValue(w http.ResponseWriter, r *http.Request) (string, bool) {
	value := r.URL.Query().Get("value")
	if value == "" {
		s.writeError(w, http.StatusBadRequest, "Missing 'value' parameter")
		return "", false
	}
	return value, true
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
