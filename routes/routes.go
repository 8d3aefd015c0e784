package routes

import (
	"net/http"
	"time"

	"corvex/handlers"
	"corvex/middleware"
	"corvex/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the chat widget endpoints.
func RegisterChatRoutes(r *gin.Engine, ch *handlers.ChatHandler) {
	api := r.Group("/api/chat")
	{
		api.POST("/open", ch.OpenHandler)
		api.POST("/message", ch.MessageHandler)
		api.GET("/history", ch.HistoryHandler)
		api.DELETE("/session/:sessionID", ch.ClearHandler)
	}
}

// RegisterBookingRoutes registers the scheduling modal endpoints.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	api := r.Group("/api/booking")
	{
		api.POST("/open", bh.OpenSchedulingHandler)
		api.POST("/select", bh.SelectHandler)
		api.POST("/confirm", bh.ConfirmHandler)
		api.GET("/slots", bh.SlotsHandler)
		api.DELETE("/session/:sessionID", bh.CloseHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "health": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, ch *handlers.ChatHandler, bh *handlers.BookingHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Device-Class", "X-Device-Touch"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.DeviceContextMiddleware())

	RegisterHealthRoute(r)
	RegisterChatRoutes(r, ch)
	RegisterBookingRoutes(r, bh)
}
