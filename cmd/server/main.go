package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/fisedigitale/backend/internal/api/http"
	"github.com/fisedigitale/backend/internal/audit"
	"github.com/fisedigitale/backend/internal/auth"
	"github.com/fisedigitale/backend/internal/config"
	"github.com/fisedigitale/backend/internal/db"
	"github.com/fisedigitale/backend/internal/grading"
	"github.com/fisedigitale/backend/internal/llm"
	"github.com/fisedigitale/backend/internal/worksheet"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := worksheet.NewSQLStore(dbh)

	// --- Grading oracle ---
	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.OracleProvider,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey: cfg.AnthropicKey,
			Model:  cfg.AnthropicModel,
		},
	})
	if err != nil {
		log.Fatalf("oracle provider: %v", err)
	}
	prompts := grading.NewPromptRegistry()
	grading.RegisterBuiltins(prompts)
	oracle := grading.NewLLMOracle(provider, prompts, cfg.OracleMaxTokens)
	grader := grading.NewGrader(oracle)

	svc := worksheet.NewService(store, grader, oracle, audit.NewEventLog(dbh), log.Default())
	authSvc := auth.NewService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := cfg.CORSOriginsDev
	if cfg.Mode == config.ModeProd {
		origins = cfg.CORSOriginsProd
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/api/authenticate", api.AuthenticateHandler(svc, authSvc))
	r.Post("/api/auth/teacher", api.TeacherLoginHandler(authSvc, cfg.AdminUser, cfg.AdminPassHash))

	// Student flow (worksheet-bound session token)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(authSvc))
		pr.With(auth.RequireRole(auth.RoleStudent)).
			Post("/api/submit-step", api.SubmitStepHandler(svc))
		pr.With(auth.RequireRole(auth.RoleStudent)).
			Post("/api/mark-attempt-completed", api.MarkAttemptCompletedHandler(svc))
	})

	// Teacher surfaces
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(authSvc), auth.RequireRole(auth.RoleTeacher))
		pr.Get("/api/dashboard", api.OverallDashboardHandler(svc))
		pr.Get("/api/dashboard/{worksheetID}", api.WorksheetDashboardHandler(svc))
		pr.Post("/api/students/bulk", api.BulkUpsertStudentsHandler(store))
		pr.Get("/api/students", api.ListStudentsHandler(store))
		pr.Post("/api/worksheets", api.PutWorksheetHandler(store, prompts))
		pr.Get("/api/worksheets", api.ListWorksheetsHandler(store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s, oracle=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, provider.ModelID())
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
