// Package gateway is the portal's HTTP surface: the wizard endpoints plus a
// thin authenticated relay onto the municipal backend.
package gateway

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tramite-portal/internal/backend"
	apperrors "tramite-portal/internal/common/errors"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/common/observability"
	"tramite-portal/internal/notify"
	"tramite-portal/internal/wizard"
)

type Server struct {
	engine  *gin.Engine
	wizard  *wizard.Wizard
	backend *backend.Client
	poller  *notify.Poller
	obs     *observability.Observability
	logger  logger.Logger
}

func NewServer(wiz *wizard.Wizard, client *backend.Client, poller *notify.Poller, obs *observability.Observability, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  gin.New(),
		wizard:  wiz,
		backend: client,
		poller:  poller,
		obs:     obs,
		logger:  log.WithFields(map[string]interface{}{"component": "gateway"}),
	}

	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api", s.authRequired())

	// Catalog and relay routes.
	api.GET("/procedures", measured("procedures", s.listProcedures))
	api.GET("/procedures/:id/requisitos", measured("requisitos", s.listRequisitos))
	api.GET("/formats/:id/download", measured("format_download", s.downloadFormat))
	api.GET("/applications/my", measured("applications_my", s.listMyApplications))
	api.GET("/applications/all", measured("applications_all", s.listAllApplications))
	api.GET("/applications/:id", measured("application_get", s.getApplication))
	api.GET("/applications/:id/history", measured("application_history", s.getHistory))
	api.PUT("/applications/:id/status", measured("application_status", s.changeStatus))
	api.POST("/applications/:id/transitions/:action", measured("application_transition", s.transition))
	api.GET("/notifications/count", measured("notifications_count", s.notificationCount))

	// Wizard routes.
	wiz := api.Group("/wizard")
	wiz.GET("", s.wizardState)
	wiz.POST("/select", s.observed("SELECT"), s.wizardSelect)
	wiz.POST("/upload/start", s.observed("UPLOAD"), s.wizardStartUpload)
	wiz.POST("/upload", s.observed("UPLOAD"), s.wizardUpload)
	wiz.DELETE("/upload/:requirementId", s.observed("UPLOAD"), s.wizardDeleteUpload)
	wiz.POST("/continue", s.observed("UPLOAD"), s.wizardContinue)
	wiz.PUT("/form/field", s.observed("FORM"), s.wizardSetFormField)
	wiz.POST("/form/submit", s.observed("FORM"), s.wizardSubmitForm)
	wiz.PUT("/payment-method", s.observed("PAY"), s.wizardSelectPaymentMethod)
	wiz.POST("/pay", s.observed("PAY"), s.wizardPay)
	wiz.GET("/summary", s.observed("DONE"), s.wizardSummary)
	wiz.POST("/finish", s.observed("DONE"), s.wizardFinish)
}

func asStandard(err error, target **apperrors.StandardError) bool {
	return errors.As(err, target)
}
