package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig wires handlers and auth into the router
type RouterConfig struct {
	NegotiationHandler *NegotiationHandler
	VerifyHandler      *VerifyHandler
	APIToken           string
	AllowOrigins       []string
}

// NewRouter builds the HTTP routing table.
// The verification link and healthcheck are public; the negotiation API sits
// behind the bearer-token middleware.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	// Public
	router.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/verify", cfg.VerifyHandler.Verify)

	// Protected
	api := router.Group("/api")
	api.Use(RequireAPIToken(cfg.APIToken))
	{
		api.POST("/negotiations", cfg.NegotiationHandler.CreateOrGet)
		api.GET("/negotiations/:negotiationId/status", cfg.NegotiationHandler.GetStatus)
		api.POST("/negotiations/:negotiationId/accept", cfg.NegotiationHandler.AcceptTerms)
		api.POST("/negotiations/:negotiationId/confirmation-email", cfg.NegotiationHandler.RequestConfirmationEmail)
		api.POST("/negotiations/:negotiationId/finalize", cfg.NegotiationHandler.Finalize)
		api.POST("/negotiations/:negotiationId/cancel", cfg.NegotiationHandler.Cancel)
		api.PATCH("/negotiations/:negotiationId/fields", cfg.NegotiationHandler.PatchFields)
	}

	return router
}
