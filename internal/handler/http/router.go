package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	app config.AppConfig,
	JWTService jwt.Service,
	compensationHandler CompensationHandler,
	revisionHandler RevisionHandler,
	payrollHandler PayrollHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)

	origins := app.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  logLevel(app.LogLevel),
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireCompany)

			r.Route("/compensation", func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermissionCompensationView))
				r.Get("/rules", compensationHandler.GetRules)
				r.Post("/breakdown", compensationHandler.ComputeBreakdown)
				r.Post("/statutory-check", compensationHandler.ValidateManualEdits)
				r.Post("/pro-rata", compensationHandler.ProRate)
			})

			r.Route("/revisions", func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermissionRevisionDraft))
				r.Post("/", revisionHandler.Create)

				r.Route("/{revisionID}", func(r chi.Router) {
					r.Get("/", revisionHandler.GetByID)
					r.Put("/", revisionHandler.Update)
					r.Post("/submit", revisionHandler.Submit)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(auth.PermissionRevisionApprove))
						r.Post("/approve", revisionHandler.Approve)
						r.Post("/reject", revisionHandler.Reject)
					})
				})
			})

			r.With(middleware.RequirePermission(auth.PermissionRevisionDraft)).
				Get("/employees/{employeeID}/revisions", revisionHandler.ListByEmployee)

			r.Route("/payroll/runs", func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Post("/", payrollHandler.CreateRun)

				r.Route("/{runID}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetRun)
					r.Put("/status", payrollHandler.UpdateRunStatus)
					r.Put("/lock", payrollHandler.SetRunLock)
					r.Post("/payslips", payrollHandler.GeneratePayslip)
					r.Get("/summary", payrollHandler.GetRunSummary)
					r.Get("/bank-transfers.xlsx", payrollHandler.ExportBankTransfers)
				})
			})

			r.Route("/payslips/{payslipID}", func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermissionPayrollView))
				r.Get("/", payrollHandler.GetPayslip)
				r.Post("/analyze", payrollHandler.AnalyzePayslip)

				r.Route("/amendments", func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermissionPayrollAmend))
					r.Post("/salary-template", payrollHandler.ReviseSalaryTemplate)
					r.Post("/attendance", payrollHandler.CorrectAttendance)
				})
			})
		})
	})
	return r
}

func logLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
