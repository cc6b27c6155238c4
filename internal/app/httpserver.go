package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/observability"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"go.uber.org/zap"
)

const maxLeadBody = 64 << 10

// Pinger проверка доступности БД (pgxpool.Pool)
type Pinger interface {
	Ping(ctx context.Context) error
}

// LeadSubmitter приём заявок с сайта
type LeadSubmitter interface {
	Submit(ctx context.Context, in service.LeadInput) (*service.LeadResult, error)
}

type HTTPServer struct {
	srv *http.Server
}

// NewHTTPHandler health, метрики и приём заявок
func NewHTTPHandler(db Pinger, leads LeadSubmitter, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/api/leads", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var in service.LeadInput
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBody)).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}

		res, err := leads.Submit(r.Context(), in)
		if err != nil {
			var verr *apperr.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verr.Fields})
				return
			}
			observability.CaptureErr(err)
			logger.Error("Lead submit failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}

		// Боту-спамеру отвечаем так же, как человеку
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "notified": res.Notified || res.Spam})
	})

	return mux
}

// StartHTTP запускает сервер и останавливает его при отмене ctx
func StartHTTP(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
