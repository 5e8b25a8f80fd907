package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) wizardState(c *gin.Context) {
	state, err := s.wizard.State(c.Request.Context(), scope(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardSelect(c *gin.Context) {
	var body struct {
		ProcedureID int64 `json:"procedureId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ProcedureID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "procedureId requerido"})
		return
	}

	state, err := s.wizard.Select(c.Request.Context(), scope(c), token(c), body.ProcedureID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardStartUpload(c *gin.Context) {
	state, err := s.wizard.StartUpload(c.Request.Context(), scope(c), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// wizardUpload receives one requirement file as multipart form data. The
// declared content type and size are validated by the wizard before any byte
// reaches the backend.
func (s *Server) wizardUpload(c *gin.Context) {
	requirementID, err := strconv.ParseInt(c.PostForm("requirementId"), 10, 64)
	if err != nil || requirementID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "requirementId requerido"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "archivo requerido"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "archivo ilegible"})
		return
	}
	defer file.Close()

	state, err := s.wizard.Upload(c.Request.Context(), scope(c), token(c),
		requirementID, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardDeleteUpload(c *gin.Context) {
	requirementID, ok := pathID(c, "requirementId")
	if !ok {
		return
	}

	state, err := s.wizard.DeleteUpload(c.Request.Context(), scope(c), token(c), requirementID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardContinue(c *gin.Context) {
	state, err := s.wizard.ContinueToForm(c.Request.Context(), scope(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardSetFormField(c *gin.Context) {
	var body struct {
		Field   string `json:"field"`
		Value   string `json:"value"`
		Numeric bool   `json:"numeric"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "campo requerido"})
		return
	}

	state, err := s.wizard.SetFormField(c.Request.Context(), scope(c), body.Field, body.Value, body.Numeric)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardSubmitForm(c *gin.Context) {
	state, err := s.wizard.SubmitForm(c.Request.Context(), scope(c), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardSelectPaymentMethod(c *gin.Context) {
	var body struct {
		Method string `json:"method"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Method == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "método de pago requerido"})
		return
	}

	state, err := s.wizard.SelectPaymentMethod(c.Request.Context(), scope(c), body.Method)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardPay(c *gin.Context) {
	state, err := s.wizard.Pay(c.Request.Context(), scope(c), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) wizardSummary(c *gin.Context) {
	summary, err := s.wizard.Summary(c.Request.Context(), scope(c), token(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) wizardFinish(c *gin.Context) {
	if err := s.wizard.Finish(c.Request.Context(), scope(c)); err != nil {
		s.respondError(c, err)
		return
	}
	if s.poller != nil {
		s.poller.Forget(scope(c))
	}
	c.JSON(http.StatusOK, gin.H{"step": "SELECT"})
}
