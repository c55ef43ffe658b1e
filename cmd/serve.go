package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/pipeline"
	"github.com/sells-group/intel-cli/internal/workflow"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intelligence HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Progress polling is optional: without a reachable Temporal
		// server the endpoint reports 503.
		var poller *workflow.Poller
		if tc, err := client.Dial(client.Options{
			HostPort:  cfg.Workflow.HostPort,
			Namespace: cfg.Workflow.Namespace,
		}); err != nil {
			zap.L().Warn("workflow engine unreachable, /progress disabled", zap.Error(err))
		} else {
			defer tc.Close()
			poller = workflow.NewPoller(workflow.NewTemporalEngine(tc, cfg.Workflow.TaskQueue))
		}

		dispatcher := pipeline.NewGoDispatcher(env.Worker)
		r := newRouter(env, dispatcher, poller)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *pipelineEnv, dispatcher pipeline.Dispatcher, poller *workflow.Poller) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/research", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			CompanyDomain string `json:"company_domain"`
			CompanyName   string `json:"company_name"`
			SalesContext  string `json:"sales_context"`
			SellerCompany string `json:"seller_company"`
			NoCache       bool   `json:"no_cache"`
			Async         bool   `json:"async"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.CompanyDomain == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "company_domain is required"})
			return
		}

		rr := model.ResearchRequest{
			CompanyDomain: body.CompanyDomain,
			CompanyName:   body.CompanyName,
			SalesContext:  model.SalesContext(body.SalesContext),
			SellerCompany: body.SellerCompany,
			UseCache:      !body.NoCache,
		}

		if body.Async {
			// Stash the request parameters so a standalone worker
			// draining the queue can rebuild them.
			additional := map[string]any{
				"company_name":   rr.CompanyName,
				"sales_context":  string(rr.SalesContext),
				"seller_company": rr.SellerCompany,
				"use_cache":      rr.UseCache,
			}
			id, err := env.Tracker.Create(req.Context(), rr.CompanyDomain, "intelligence", additional)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create request"})
				return
			}
			if err := dispatcher.Dispatch(id, rr); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "dispatch request"})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"request_id": id, "status": "pending"})
			return
		}

		intel, err := env.Pipeline.Research(req.Context(), rr)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, intel)
	})

	r.Get("/research/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec := env.Tracker.Get(req.Context(), chi.URLParam(req, "id"))
		if rec == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Get("/research/{id}/progress", func(w http.ResponseWriter, req *http.Request) {
		if poller == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "workflow engine unavailable"})
			return
		}
		progress, err := poller.Progress(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "execution not found"})
			return
		}
		writeJSON(w, http.StatusOK, progress)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
