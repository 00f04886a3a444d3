package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimipsen/grouper/pkg/export"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportBytes  = 10 << 20
)

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// ExportSession downloads one session as JSON
func (h *Handler) ExportSession(c *gin.Context) {
	session, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := export.ExportSession(*session)
	if err != nil {
		h.respondError(c, err)
		return
	}
	attachment(c, export.ExportFilename(session.Name, time.Now()), jsonContentType, data)
}

// ExportAll downloads every session as a JSON array
func (h *Handler) ExportAll(c *gin.Context) {
	sessions, err := h.Sessions.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := export.ExportSessions(sessions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	attachment(c, export.ExportFilename("", time.Now()), jsonContentType, data)
}

func readBody(c *gin.Context) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return nil, false
	}
	return data, true
}

// ValidateImport checks an import payload without storing anything
func (h *Handler) ValidateImport(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, export.ValidateImportData(data))
}

// ImportSessions stores the sessions of an export file, replacing sessions
// with the same id
func (h *Handler) ImportSessions(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	sessions, err := export.ImportSessions(data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	n, err := h.Sessions.Import(c.Request.Context(), sessions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	c.JSON(http.StatusOK, gin.H{"imported": n, "session_ids": ids})
}

// ResultXLSX downloads one stored grouping result as a workbook
func (h *Handler) ResultXLSX(c *gin.Context) {
	session, result, ok := h.loadResult(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteResultXLSX(&buf, *result, session.People); err != nil {
		h.respondError(c, err)
		return
	}
	filename := fmt.Sprintf("grouper-%s.xlsx", result.ID)
	attachment(c, filename, xlsxContentType, buf.Bytes())
}
