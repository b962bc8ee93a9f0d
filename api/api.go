package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	callsync "github.com/help-netizen/twilio-front-integration-sub004"
	"github.com/help-netizen/twilio-front-integration-sub004/api/middleware"
	"github.com/help-netizen/twilio-front-integration-sub004/config"
)

type Api struct {
	callsync *callsync.CallSync
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/webhooks/voice", a.IngestVoiceEvent)
	router.POST("/webhooks/dial", a.IngestDialEvent)
	router.POST("/webhooks/recording", a.IngestRecordingEvent)
	router.POST("/webhooks/transcription", a.IngestTranscriptionEvent)

	router.GET("/interactions", a.ListInteractions)
	router.GET("/interactions/:id", a.GetInteraction)

	router.GET("/calls/:call_sid/journal", a.GetJournal)
	router.GET("/events/dead-letter", a.GetDeadLetterEvents)
	router.POST("/events/:event_key/replay", a.ReplayEvent)

	router.GET("/reconciliation/status", a.ReconciliationStatus)

	return a.router
}

func NewAPI(c *callsync.CallSync) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{callsync: c, router: r}
}
