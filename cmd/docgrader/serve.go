package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/docgrader/internal/auth"
	"github.com/pavelanni/docgrader/internal/grading"
	"github.com/pavelanni/docgrader/internal/handler"
	appI18n "github.com/pavelanni/docgrader/internal/i18n"
	"github.com/pavelanni/docgrader/internal/llm"
	"github.com/pavelanni/docgrader/internal/llm/prompts"
	"github.com/pavelanni/docgrader/internal/metrics"
	"github.com/pavelanni/docgrader/internal/model"
	"github.com/pavelanni/docgrader/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	addDBFlag(f)
	addLLMFlags(f)
	f.Bool("llm-ping", true, "Check the LLM endpoint before serving (OpenAI-compatible only)")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /grader)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Int64("max-upload-mb", 20, "Largest accepted PDF upload in megabytes")
	f.String("admin-password", "", "Initial admin password (or set DOCGRADER_ADMIN_PASSWORD)")
	addLogFlags(f)
	return cmd
}

// newEvaluator builds the configured evaluator backend.
func newEvaluator(ctx context.Context, v *viper.Viper) (llm.Evaluator, error) {
	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.Standard)
	}
	return llm.NewEvaluator(ctx, llm.Config{
		Provider:      v.GetString("llm-provider"),
		BaseURL:       v.GetString("llm-url"),
		APIKey:        llmKey(v),
		Model:         v.GetString("llm-model"),
		PromptVariant: promptVariant,
	})
}

// llmKey returns --llm-key or DOCGRADER_LLM_KEY, falling back to the
// selected provider's own environment variable.
func llmKey(v *viper.Viper) string {
	if key := v.GetString("llm-key"); key != "" {
		return key
	}
	if strings.EqualFold(v.GetString("llm-provider"), "gemini") {
		return os.Getenv("GEMINI_API_KEY")
	}
	return os.Getenv("OPENAI_API_KEY")
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if n, err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("removed expired sessions", "count", n)
	}

	// Seed default admin user if no users exist.
	if err := auth.SeedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	eval, err := newEvaluator(ctx, v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if p, ok := eval.(llm.Pinger); ok && v.GetBool("llm-ping") {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	appCfg := model.AppConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		MaxUploadSize: v.GetInt64("max-upload-mb") << 20,
	}

	m := metrics.New()
	h, err := handler.New(db, grading.NewService(db, eval, m), auth.NewPasswordVerifier(db), m, appCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", db.Path(),
		"provider", v.GetString("llm-provider"),
		"model", v.GetString("llm-model"),
		"lang", lang,
		"base_path", basePath,
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
