package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sketchforge/backend/pkg/sketch"
	"github.com/sketchforge/backend/pkg/store"
)

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type generateRequest struct {
	Description string `json:"description"`
}

type deployRequest struct {
	Code string `json:"code"`
	Port string `json:"port"`
	FQBN string `json:"fqbn"`
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	description := strings.TrimSpace(payload.Description)
	if description == "" {
		respondError(w, http.StatusBadRequest, "description is required")
		return
	}

	run := s.createRun(store.KindGenerate, truncate(description, 200))
	defer s.runs.CloseSubscribers(run.ID)

	svc := s.newService(s.runLogger(run.ID))
	result, err := svc.GenerateAndValidate(r.Context(), description)
	if err != nil {
		s.finishRun(run.ID, store.StatusFailed, err.Error())

		var exhausted *sketch.RepairExhaustedError
		if errors.As(err, &exhausted) {
			respondJSON(w, map[string]any{
				"run_id":              run.ID,
				"error":               "generated code failed validation and repair",
				"arduino_code":        exhausted.Artifact.Code,
				"wiring_instructions": exhausted.Artifact.Wiring,
				"diagnostics":         exhausted.Result.Stderr,
				"attempts":            exhausted.Attempts,
			}, http.StatusUnprocessableEntity)
			return
		}
		var genErr *sketch.GenerationError
		if errors.As(err, &genErr) {
			respondError(w, http.StatusBadGateway, genErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.finishRun(run.ID, store.StatusSucceeded, "")

	message := "sketch generated and validated"
	if !result.Validated {
		message = "sketch generated; toolchain unavailable, code not validated"
	}
	respondJSON(w, map[string]any{
		"run_id":              run.ID,
		"arduino_code":        result.Artifact.Code,
		"wiring_instructions": result.Artifact.Wiring,
		"validated":           result.Validated,
		"attempts":            result.Attempts,
		"message":             message,
	}, http.StatusOK)
}

func (s *server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var payload deployRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}
	port := payload.Port
	if port == "" {
		port = sketch.PortAuto
	}

	run := s.createRun(store.KindDeploy, "port="+port)
	defer s.runs.CloseSubscribers(run.ID)

	svc := s.newService(s.runLogger(run.ID))
	result, err := svc.Deploy(r.Context(), payload.Code, port, payload.FQBN)
	if err != nil {
		s.finishRun(run.ID, store.StatusFailed, err.Error())

		if errors.Is(err, sketch.ErrToolchainUnavailable) {
			respondJSON(w, map[string]any{
				"success": false,
				"error":   "arduino-cli is not installed; deploy unavailable",
			}, http.StatusServiceUnavailable)
			return
		}
		var dep *sketch.DeployError
		if errors.As(err, &dep) {
			body := map[string]any{
				"run_id":  run.ID,
				"success": false,
				"phase":   dep.Phase,
				"error":   deployErrorMessage(dep),
			}
			if dep.Diagnostics != "" {
				body["details"] = dep.Diagnostics
			}
			if dep.Hint != "" {
				body["suggestion"] = dep.Hint
			}
			respondJSON(w, body, http.StatusOK)
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.finishRun(run.ID, store.StatusSucceeded, "")
	respondJSON(w, map[string]any{
		"run_id":  run.ID,
		"success": true,
		"port":    result.Port,
		"output":  result.Output,
		"message": "sketch deployed successfully",
	}, http.StatusOK)
}

func deployErrorMessage(dep *sketch.DeployError) string {
	if errors.Is(dep.Err, sketch.ErrDeviceNotFound) {
		return "no target board detected"
	}
	switch dep.Phase {
	case sketch.PhaseBuild:
		return "compile failed before transfer"
	case sketch.PhaseTransfer:
		return "upload failed"
	}
	return dep.Error()
}

func (s *server) handleDevices(w http.ResponseWriter, r *http.Request) {
	// Explicit status checks re-resolve the CLI so an install made
	// after boot is picked up without a restart.
	path := s.cli.Relocate(r.Context())

	tc := map[string]any{
		"available": s.cli.Available(),
		"path":      path,
	}
	if s.cli.Available() {
		if version, err := s.cli.Version(r.Context()); err == nil {
			tc["version"] = version
		} else {
			tc["available"] = false
			tc["error"] = err.Error()
		}
	}

	devices := s.devices.List(r.Context())
	boardCount := 0
	for _, d := range devices {
		if d.Likely {
			boardCount++
		}
	}

	respondJSON(w, map[string]any{
		"devices":     devices,
		"toolchain":   tc,
		"board_count": boardCount,
	}, http.StatusOK)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.pg != nil {
		runs, err := s.pg.List()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, map[string]any{"runs": runs}, http.StatusOK)
		return
	}
	respondJSON(w, map[string]any{"runs": s.runs.List()}, http.StatusOK)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	run, err := s.runs.Get(id)
	if err != nil && s.pg != nil {
		run, err = s.pg.Get(id)
	}
	if err != nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, map[string]any{"run": run}, http.StatusOK)
}

func (s *server) handleStreamRunLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	ch, err := s.runs.Subscribe(id)
	if err != nil {
		// Runs from a previous process only exist in Postgres; serve
		// their persisted logs instead of a live stream.
		if s.pg != nil {
			if lines, pgErr := s.pg.ListLogs(id, 1000); pgErr == nil && len(lines) > 0 {
				respondJSON(w, map[string]any{"run_id": id, "logs": lines}, http.StatusOK)
				return
			}
		}
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	done := r.Context().Done()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "data: %s\n\n", "[stream closed]")
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *server) createRun(kind store.Kind, detail string) store.Run {
	now := time.Now().UTC()
	run := store.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Detail:    detail,
		Status:    store.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.runs.Create(run)
	if s.pg != nil {
		if err := s.pg.Create(run); err != nil {
			log.Printf("persist run failed: %v", err)
		}
	}
	return run
}

func (s *server) finishRun(id string, status store.Status, errMsg string) {
	if _, err := s.runs.SetStatus(id, status, errMsg); err != nil {
		log.Printf("run status error: %v", err)
	}
	if s.pg != nil {
		finishedAt := time.Now().UTC()
		if err := s.pg.UpdateStatus(id, status, &finishedAt, errMsg); err != nil {
			log.Printf("postgres run status error: %v", err)
		}
	}
}

// runLogger tees pipeline logging into the process log and the run's
// log stream.
type runLogger struct {
	srv   *server
	runID string
}

func (s *server) runLogger(runID string) sketch.Logger {
	return &runLogger{srv: s, runID: runID}
}

func (l *runLogger) Info(msg string, args ...any)  { l.write(msg, args) }
func (l *runLogger) Error(msg string, args ...any) { l.write(msg, args) }

func (l *runLogger) write(msg string, args []any) {
	line := formatLine(msg, args)
	log.Printf("run %s: %s", l.runID, line)
	l.srv.runs.AppendLog(l.runID, line)
	if l.srv.pg != nil {
		if err := l.srv.pg.AppendLog(l.runID, line); err != nil {
			log.Printf("persist log error: %v", err)
		}
	}
}

func formatLine(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func respondJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, map[string]string{"error": message}, status)
}
