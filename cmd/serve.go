package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/engine"
	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/internal/rank"
	"github.com/ngl-strategy/rim-assistant/pkg/llamacloud"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		handler := newServerHandler(serverDeps{
			client:  newLlamaCloud(),
			cache:   engineCache,
			build:   buildEngine,
			origins: cfg.Server.AllowedOrigins,
		})

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type serverDeps struct {
	client  llamacloud.Client
	cache   *engine.Cache
	build   func() (*engine.Engine, error)
	origins []string
}

type sourceView struct {
	SourceName string  `json:"source_name"`
	Date       string  `json:"date,omitempty"`
	Preview    string  `json:"preview"`
	Score      float64 `json:"score"`
}

func newServerHandler(deps serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/query", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Question == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
			return
		}

		e, err := deps.cache.GetOrCreate(deps.build)
		if err != nil {
			zap.L().Error("engine init failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "engine unavailable"})
			return
		}

		answer, err := e.Query(req.Context(), body.Question)
		if err != nil {
			zap.L().Error("query failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "query failed"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"answer":  answer.Text,
			"sources": sourceViews(answer.Sources),
		})
	})

	r.Get("/api/documents", func(w http.ResponseWriter, req *http.Request) {
		files, err := deps.client.ListFiles(req.Context())
		if err != nil {
			// Listing is best-effort for browsing; an unreachable pipeline
			// should not break the page.
			zap.L().Warn("document listing failed", zap.Error(err))
			writeJSON(w, http.StatusOK, map[string]any{"documents": []llamacloud.File{}})
			return
		}
		if files == nil {
			files = []llamacloud.File{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": files})
	})

	r.Post("/api/documents", func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field \"file\" is required"})
			return
		}
		defer file.Close()

		uploaded, err := deps.client.UploadFile(req.Context(), header.Filename, file)
		if err != nil {
			zap.L().Error("upload failed", zap.String("name", header.Filename), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upload failed"})
			return
		}

		deps.cache.Invalidate()
		writeJSON(w, http.StatusCreated, uploaded)
	})

	r.Delete("/api/documents/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if err := deps.client.DeleteFile(req.Context(), id); err != nil {
			zap.L().Error("delete failed", zap.String("file_id", id), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "delete failed"})
			return
		}

		deps.cache.Invalidate()
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func sourceViews(sources []model.Candidate) []sourceView {
	views := make([]sourceView, 0, len(sources))
	for _, c := range sources {
		v := sourceView{
			SourceName: c.SourceName,
			Preview:    c.Preview(),
			Score:      c.Score,
		}
		if date, ok := rank.ResolveDate(c); ok {
			v.Date = date.Format("2006-01-02")
		}
		views = append(views, v)
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
