package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/crosssell"
	"github.com/sells-group/leadintel/internal/engagement"
	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/pivot"
	"github.com/sells-group/leadintel/internal/ranking"
	"github.com/sells-group/leadintel/internal/scorer"
	"github.com/sells-group/leadintel/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(st, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return eris.Wrap(err, "serve: listen")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// newRouter wires all HTTP endpoints against the store.
func newRouter(st store.Store, cfg *config.Config) http.Handler {
	acc := engagement.NewAccumulator(st)
	ranker := ranking.New(st)
	detector := pivot.NewDetector(st, cfg.Pivot)
	recommender := crosssell.New(st, cfg.CrossSell)
	eventLimiter := rate.NewLimiter(rate.Limit(cfg.Server.EventRateRPS), cfg.Server.EventBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.Server.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/events", func(w http.ResponseWriter, req *http.Request) {
		if !eventLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		var ev model.Event
		if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if ev.CompanyID == "" || ev.ProjectID == "" {
			writeError(w, http.StatusBadRequest, "company_id and project_id are required")
			return
		}
		score, err := acc.ApplyEvent(req.Context(), ev)
		if err != nil {
			if eris.Is(err, engagement.ErrUnknownProject) {
				writeError(w, http.StatusNotFound, "unknown project")
				return
			}
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, score)
	})

	r.Post("/companies/{id}/intent", func(w http.ResponseWriter, req *http.Request) {
		companyID := chi.URLParam(req, "id")
		var snap model.ScrapeSnapshot
		if err := json.NewDecoder(req.Body).Decode(&snap); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, err := st.GetCompany(req.Context(), companyID); err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown company")
				return
			}
			serverError(w, err)
			return
		}
		profile := scorer.AnalyzeIntent(companyID, &snap, time.Now().UTC())
		if err := st.SaveIntentProfile(req.Context(), &profile); err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	})

	r.Post("/companies/{id}/score", func(w http.ResponseWriter, req *http.Request) {
		companyID := chi.URLParam(req, "id")
		c, err := st.GetCompany(req.Context(), companyID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown company")
				return
			}
			serverError(w, err)
			return
		}
		fit := scorer.ScoreFit(c, cfg.Scoring)
		if err := st.SaveFitResult(req.Context(), companyID, fit, time.Now().UTC()); err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fit)
	})

	r.Get("/projects/{id}/engagement", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "id")
		minScore, _ := strconv.Atoi(req.URL.Query().Get("min_score"))
		scores, err := acc.ListAboveThreshold(req.Context(), projectID, minScore)
		if err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scores)
	})

	r.Post("/rank", func(w http.ResponseWriter, req *http.Request) {
		var filter ranking.Filter
		if err := json.NewDecoder(req.Body).Decode(&filter); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		page, err := ranker.Rank(req.Context(), filter)
		if err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/projects/{id}/alerts", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "id")
		status := model.AlertStatus(req.URL.Query().Get("status"))
		alerts, err := st.ListPivotAlerts(req.Context(), projectID, status)
		if err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, alerts)
	})

	r.Post("/projects/{id}/alerts/{alertID}/ack", func(w http.ResponseWriter, req *http.Request) {
		alertID := chi.URLParam(req, "alertID")
		if err := detector.Acknowledge(req.Context(), alertID); err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown alert")
				return
			}
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
	})

	r.Post("/projects/{id}/pivots/run", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "id")
		alerts, err := detector.Detect(req.Context(), projectID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown project")
				return
			}
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
	})

	r.Post("/projects/{id}/crosssell/run", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "id")
		recs, err := recommender.Run(req.Context(), projectID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown project")
				return
			}
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
	})

	r.Get("/projects/{id}/crosssell", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "id")
		recs, err := st.ListRecommendations(req.Context(), projectID)
		if err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
