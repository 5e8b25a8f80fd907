// Package backend is the typed client for the external municipal backend,
// the source of truth for procedures, applications, payments and files.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "tramite-portal/internal/common/errors"
	httpx "tramite-portal/internal/common/http"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/models"
)

type Client struct {
	baseURL string
	http    *httpx.Client
	logger  logger.Logger
}

func NewClient(baseURL string, httpClient *httpx.Client, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log.WithFields(map[string]interface{}{"component": "backend"}),
	}
}

// FormatDownload carries a relayed binary body. Callers own Body.
type FormatDownload struct {
	ContentType string
	Disposition string
	Body        io.ReadCloser
}

// --- Catalog ---

func (c *Client) ListProcedures(ctx context.Context, token string) ([]models.Procedure, error) {
	raw, err := c.getRaw(ctx, token, "/procedures")
	if err != nil {
		return nil, err
	}
	return decodeList[models.Procedure](raw)
}

func (c *Client) GetRequisitos(ctx context.Context, token string, procedureID int64) ([]models.Requirement, error) {
	raw, err := c.getRaw(ctx, token, fmt.Sprintf("/procedures/%d/requisitos", procedureID))
	if err != nil {
		return nil, err
	}
	return decodeList[models.Requirement](raw)
}

// --- Applications ---

func (c *Client) CreateApplication(ctx context.Context, token string, userID, procedureID int64) (*models.Application, error) {
	body := map[string]interface{}{
		"userId":      userID,
		"procedureId": procedureID,
	}
	raw, err := c.sendJSON(ctx, token, http.MethodPost, "/applications", body)
	if err != nil {
		return nil, err
	}

	var app models.Application
	if err := json.Unmarshal(raw, &app); err != nil {
		return nil, apperrors.NewBackendRejectedError(0, "respuesta de solicitud inválida")
	}
	return &app, nil
}

func (c *Client) ListMyApplications(ctx context.Context, token string) ([]models.Application, error) {
	raw, err := c.getRaw(ctx, token, "/applications/my")
	if err != nil {
		return nil, err
	}
	return decodeList[models.Application](raw)
}

func (c *Client) ListAllApplications(ctx context.Context, token string) ([]models.Application, error) {
	raw, err := c.getRaw(ctx, token, "/applications/all")
	if err != nil {
		return nil, err
	}
	return decodeList[models.Application](raw)
}

func (c *Client) GetApplication(ctx context.Context, token string, id int64) (*models.Application, error) {
	raw, err := c.getRaw(ctx, token, fmt.Sprintf("/applications/%d", id))
	if err != nil {
		return nil, err
	}
	var app models.Application
	if err := json.Unmarshal(raw, &app); err != nil {
		return nil, apperrors.NewBackendRejectedError(0, "respuesta de solicitud inválida")
	}
	return &app, nil
}

// --- Files ---

func (c *Client) UploadFile(ctx context.Context, token string, applicationID, requirementID int64, fileName, contentType string, content io.Reader) (*models.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("requirementId", fmt.Sprintf("%d", requirementID)); err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	if err := mw.Close(); err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+fmt.Sprintf("/applications/%d/files", applicationID), &buf)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setCommonHeaders(req, token)

	raw, err := c.doJSON(ctx, req)
	if err != nil {
		return nil, err
	}

	// The backend answers with either {id} or {fileId}.
	var resp struct {
		ID     int64 `json:"id"`
		FileID int64 `json:"fileId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.NewBackendRejectedError(0, "respuesta de archivo inválida")
	}
	fileID := resp.ID
	if fileID == 0 {
		fileID = resp.FileID
	}

	return &models.UploadedFile{
		ID:            fileID,
		RequirementID: requirementID,
		ApplicationID: applicationID,
	}, nil
}

func (c *Client) DeleteFile(ctx context.Context, token string, applicationID, fileID int64) error {
	_, err := c.sendJSON(ctx, token, http.MethodDelete, fmt.Sprintf("/applications/%d/files/%d", applicationID, fileID), nil)
	return err
}

// --- Form / transitions ---

func (c *Client) SaveForm(ctx context.Context, token string, applicationID int64, fields []models.FormField) error {
	body := map[string]interface{}{"fields": fields}
	_, err := c.sendJSON(ctx, token, http.MethodPost, fmt.Sprintf("/applications/%d/form", applicationID), body)
	return err
}

func (c *Client) Submit(ctx context.Context, token string, applicationID int64) error {
	_, err := c.sendJSON(ctx, token, http.MethodPost, fmt.Sprintf("/applications/%d/submit", applicationID), nil)
	return err
}

func (c *Client) Pay(ctx context.Context, token string, applicationID int64, payment models.Payment) error {
	_, err := c.sendJSON(ctx, token, http.MethodPost, fmt.Sprintf("/applications/%d/pay", applicationID), payment)
	return err
}

func (c *Client) ChangeStatus(ctx context.Context, token string, applicationID int64, newStatus string) error {
	body := map[string]interface{}{"status": newStatus}
	_, err := c.sendJSON(ctx, token, http.MethodPut, fmt.Sprintf("/applications/%d/status", applicationID), body)
	return err
}

// Transition requests one of the named admin transitions:
// approve, reject, observe, review.
func (c *Client) Transition(ctx context.Context, token string, applicationID int64, action string) error {
	_, err := c.sendJSON(ctx, token, http.MethodPost, fmt.Sprintf("/applications/%d/%s", applicationID, action), nil)
	return err
}

// --- History / summary ---

func (c *Client) GetHistory(ctx context.Context, token string, applicationID int64) ([]models.HistoryEntry, error) {
	raw, err := c.getRaw(ctx, token, fmt.Sprintf("/applications/%d/history", applicationID))
	if err != nil {
		return nil, err
	}
	return decodeList[models.HistoryEntry](raw)
}

func (c *Client) GetSummary(ctx context.Context, token string, applicationID int64) (*models.BackendSummary, error) {
	raw, err := c.getRaw(ctx, token, fmt.Sprintf("/applications/%d/summary", applicationID))
	if err != nil {
		return nil, err
	}
	var summary models.BackendSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, apperrors.NewBackendRejectedError(0, "respuesta de resumen inválida")
	}
	return &summary, nil
}

// --- Formats ---

func (c *Client) DownloadFormat(ctx context.Context, token string, formatID int64) (*FormatDownload, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+fmt.Sprintf("/formats/%d/download", formatID), nil)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	c.setCommonHeaders(req, token)

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, apperrors.NewBackendRejectedError(resp.StatusCode, "Error al descargar el formato")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = "attachment"
	}

	return &FormatDownload{
		ContentType: contentType,
		Disposition: disposition,
		Body:        resp.Body,
	}, nil
}

// --- Notifications ---

func (c *Client) NotificationCount(ctx context.Context, token string) (int, error) {
	raw, err := c.getRaw(ctx, token, "/notifications/count")
	if err != nil {
		return 0, err
	}
	var count models.NotificationCount
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, apperrors.NewBackendRejectedError(0, "respuesta de notificaciones inválida")
	}
	return count.Unread, nil
}

// --- Plumbing ---

func (c *Client) getRaw(ctx context.Context, token, path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	c.setCommonHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req)
}

func (c *Client) sendJSON(ctx context.Context, token, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewBackendUnreachableError(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	c.setCommonHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		c.logger.WithError(err).Warn("backend request failed", map[string]interface{}{
			"method": req.Method,
			"path":   req.URL.Path,
		})
		return nil, apperrors.NewBackendUnreachableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewBackendUnreachableError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewBackendRejectedError(resp.StatusCode, extractMessage(raw))
	}

	return raw, nil
}

func (c *Client) setCommonHeaders(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(token, "Bearer "))
	}
	req.Header.Set("X-Request-Id", uuid.New().String())
}

// extractMessage pulls {message} out of an error payload when present.
func extractMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Message
}
