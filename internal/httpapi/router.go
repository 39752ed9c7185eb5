package httpapi

import (
	"judgecore/internal/auth"
	"judgecore/internal/config"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the nine façade endpoints onto a fresh gin engine,
// mirroring the teacher's buildHTTPServer router-group-per-resource shape
// (cmd/submit-service/main.go).
func NewRouter(h *Handlers, rl *RateLimiter, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Trace())
	router.Use(CORS(CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))

	router.GET("/health", h.health)
	router.GET("/api/csrf-token", h.csrfToken)

	router.POST("/api/auth/register", perHour(rl, "register", cfg.RateLimit.RegisterPerHour), h.register)
	router.POST("/api/auth/login", perHour(rl, "login", cfg.RateLimit.LoginPerHour), h.login)

	router.GET("/api/problems", auth.OptionalAuth(h.Tokens), h.listProblems)
	router.GET("/api/problem/:slug", h.getProblem)

	router.POST("/api/run",
		auth.OptionalAuth(h.Tokens),
		perHour(rl, "run", cfg.RateLimit.RunPerHour),
		h.run)

	router.POST("/api/submit",
		auth.RequireAuth(h.Tokens),
		perHour(rl, "submit", cfg.RateLimit.SubmitPerHour),
		h.submit)

	router.GET("/api/submissions", auth.RequireAuth(h.Tokens), h.listSubmissions)

	return router
}
