package gateway

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tramite-portal/internal/common/errors"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "identificador inválido"})
		return 0, false
	}
	return id, true
}

func (s *Server) listProcedures(c *gin.Context) {
	procedures, err := s.backend.ListProcedures(c.Request.Context(), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, procedures)
}

func (s *Server) listRequisitos(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	requisitos, err := s.backend.GetRequisitos(c.Request.Context(), token(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisitos)
}

// downloadFormat streams the requirement template through unchanged,
// preserving the backend's content type and disposition.
func (s *Server) downloadFormat(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	download, err := s.backend.DownloadFormat(c.Request.Context(), token(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer download.Body.Close()

	c.Header("Content-Type", download.ContentType)
	c.Header("Content-Disposition", download.Disposition)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, download.Body); err != nil {
		s.logger.WithError(err).Warn("format relay interrupted", map[string]interface{}{
			"formatId": id,
		})
	}
}

func (s *Server) listMyApplications(c *gin.Context) {
	applications, err := s.backend.ListMyApplications(c.Request.Context(), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applications)
}

func (s *Server) listAllApplications(c *gin.Context) {
	applications, err := s.backend.ListAllApplications(c.Request.Context(), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applications)
}

func (s *Server) getApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := s.backend.GetApplication(c.Request.Context(), token(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) getHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	history, err := s.backend.GetHistory(c.Request.Context(), token(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) changeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "estado requerido"})
		return
	}

	if err := s.backend.ChangeStatus(c.Request.Context(), token(c), id, body.Status); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": body.Status})
}

// allowedTransitions are the named admin actions the backend accepts.
var allowedTransitions = map[string]bool{
	"approve": true,
	"reject":  true,
	"observe": true,
	"review":  true,
}

func (s *Server) transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	action := c.Param("action")
	if !allowedTransitions[action] {
		s.respondError(c, apperrors.NewFormFieldInvalidError("action", "unknown transition"))
		return
	}

	if err := s.backend.Transition(c.Request.Context(), token(c), id, action); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action})
}

// notificationCount answers live when it can and falls back to the last
// polled value, so the badge survives backend hiccups.
func (s *Server) notificationCount(c *gin.Context) {
	if s.poller != nil {
		s.poller.Track(scope(c), token(c))
	}

	count, err := s.backend.NotificationCount(c.Request.Context(), token(c))
	if err != nil {
		if s.poller != nil {
			c.JSON(http.StatusOK, gin.H{"unread": s.poller.Count(scope(c)), "stale": true})
			return
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
