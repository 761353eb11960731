package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/nonce"
	"github.com/goliatone/go-settings/pkg/render"
	"github.com/goliatone/go-settings/pkg/state"
)

// NonceHeader carries the values token of PATCH and DELETE requests.
const NonceHeader = "X-Settings-Nonce"

// StylesheetPath is linked from every rendered page.
const StylesheetPath = "/assets/settings.css"

const maxFormMemory = 8 << 20

var errUploadTooLarge = errors.New("handler: settings upload exceeds 8 MiB")

// RenderSettings draws the settings page of an option group.
func (s *Server) RenderSettings(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	persisted, err := registry.Values(c.Request.Context())
	if err != nil {
		s.fail(c, registry, err)
		return
	}

	translator := s.translator(c)
	var notices []render.Notice
	if c.Query("settings-updated") == "true" {
		notices = append(notices, render.Notice{Kind: render.NoticeSuccess, Message: translator.Translate(render.MsgSettingsSaved)})
	}
	s.writePage(c, http.StatusOK, registry, s.pageData(c, registry, persisted, translator, notices))
}

// SaveSettings stores a form submission. Rejected values redraw the form with
// the submitted input and one message per field.
func (s *Server) SaveSettings(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	translator := s.translator(c)
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	form := c.Request.PostForm
	group := registry.Group()
	if form.Get("option_page") != group || !s.Nonces.Verify(form.Get("_wpnonce"), nonce.ActionSave, group) {
		c.String(http.StatusForbidden, translator.Translate(render.MsgActionFailed))
		return
	}

	submitted := ParseSubmission(group, form)
	_, err := registry.Save(c.Request.Context(), submitted, actor(c))
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr):
		persisted, loadErr := registry.Values(c.Request.Context())
		if loadErr != nil {
			s.fail(c, registry, loadErr)
			return
		}
		data := s.pageData(c, registry, persisted, translator, []render.Notice{{
			Kind:    render.NoticeError,
			Message: translator.Translate(render.MsgFixErrors),
		}})
		data.Submitted = submitted
		data.Errors = verr.Fields
		s.writePage(c, http.StatusUnprocessableEntity, registry, data)
	case err != nil:
		s.fail(c, registry, err)
	default:
		target := url.URL{Path: c.Request.URL.Path, RawQuery: url.Values{"settings-updated": {"true"}}.Encode()}
		c.Redirect(http.StatusSeeOther, target.String())
	}
}

// ExportSettings downloads the stored values as a JSON attachment.
func (s *Server) ExportSettings(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	group := registry.Group()
	if !s.Nonces.Verify(c.Query("_wpnonce"), nonce.ActionExport, group) {
		c.String(http.StatusForbidden, s.translator(c).Translate(render.MsgActionFailed))
		return
	}
	payload, err := registry.Export(c.Request.Context(), actor(c))
	if err != nil {
		s.fail(c, registry, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rgs-settings-`+group+`.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// ImportSettings replaces the stored values with an uploaded export. The
// payload comes from the "settings" form value or file.
func (s *Server) ImportSettings(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	group := registry.Group()
	if c.PostForm("option_group") != group || !s.Nonces.Verify(c.PostForm("_wpnonce"), nonce.ActionImport, group) {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	payload, err := importPayload(c)
	if err != nil {
		logrus.WithError(err).WithField("group", group).Warn("Failed to read settings upload")
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	if _, err := registry.Import(c.Request.Context(), payload, actor(c)); err != nil {
		if !errors.Is(err, settings.ErrInvalidImport) {
			logrus.WithError(err).WithField("group", group).Error("Failed to import settings")
		}
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// importPayload returns the "settings" form value, else the uploaded file.
// A request carrying neither yields an empty payload.
func importPayload(c *gin.Context) ([]byte, error) {
	if value := c.PostForm("settings"); value != "" {
		return []byte(value), nil
	}
	file, err := c.FormFile("settings")
	if err != nil {
		return nil, nil
	}
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("handler: open upload: %w", err)
	}
	defer f.Close()
	return readUpload(f)
}

func readUpload(r io.Reader) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r, maxFormMemory+1))
	if err != nil {
		return nil, fmt.Errorf("handler: read upload: %w", err)
	}
	if len(payload) > maxFormMemory {
		return nil, errUploadTooLarge
	}
	return payload, nil
}

// GetValues returns the materialized values of an option group. The response
// carries the record ETag and a token for PATCH and DELETE.
func (s *Server) GetValues(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	values, err := registry.Materialize(ctx)
	if err != nil {
		s.fail(c, registry, err)
		return
	}
	meta, err := registry.Meta(ctx)
	if err != nil {
		s.fail(c, registry, err)
		return
	}
	if meta.ETag != "" {
		c.Header("ETag", meta.ETag)
	}
	c.Header(NonceHeader, s.Nonces.Create(nonce.ActionValues, registry.Group()))
	c.JSON(http.StatusOK, values)
}

// PatchValues merges a JSON object of storage keys into the stored values.
// An If-Match header must match the current ETag.
func (s *Server) PatchValues(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	if !s.Nonces.Verify(c.GetHeader(NonceHeader), nonce.ActionValues, registry.Group()) {
		c.JSON(http.StatusForbidden, gin.H{"error": s.translator(c).Translate(render.MsgActionFailed)})
		return
	}
	var partial settings.Values
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, meta, err := registry.Patch(c.Request.Context(), partial, c.GetHeader("If-Match"), actor(c))
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Fields})
	case errors.Is(err, state.ErrETagMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.fail(c, registry, err)
	default:
		c.Header("ETag", meta.ETag)
		c.JSON(http.StatusOK, gin.H{"values": saved, "etag": meta.ETag})
	}
}

// DeleteValues removes the stored record. Reads fall back to defaults.
func (s *Server) DeleteValues(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	if !s.Nonces.Verify(c.GetHeader(NonceHeader), nonce.ActionValues, registry.Group()) {
		c.JSON(http.StatusForbidden, gin.H{"error": s.translator(c).Translate(render.MsgActionFailed)})
		return
	}
	if err := registry.Delete(c.Request.Context(), actor(c)); err != nil {
		s.fail(c, registry, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSchema returns the OpenAPI document of an option group.
func (s *Server) GetSchema(c *gin.Context) {
	registry, ok := s.registry(c)
	if !ok {
		return
	}
	document, err := s.Generator.GenerateRegistry(registry)
	if err != nil {
		s.fail(c, registry, err)
		return
	}
	c.JSON(http.StatusOK, document)
}

func (s *Server) pageData(c *gin.Context, registry *settings.Registry, persisted settings.Values, translator render.Translator, notices []render.Notice) render.PageData {
	group := registry.Group()
	path := c.Request.URL.Path
	exportURL := url.URL{
		Path:     path + "/export",
		RawQuery: url.Values{"_wpnonce": {s.Nonces.Create(nonce.ActionExport, group)}}.Encode(),
	}
	return render.PageData{
		Definition:     registry.Definition(),
		Defaults:       registry.Defaults(),
		Persisted:      persisted,
		Notices:        notices,
		Action:         path,
		FormToken:      s.Nonces.Create(nonce.ActionSave, group),
		ExportURL:      exportURL.String(),
		ImportToken:    s.Nonces.Create(nonce.ActionImport, group),
		ShowTabLinks:   true,
		ShowSaveButton: true,
		Translator:     translator,
	}
}

func (s *Server) writePage(c *gin.Context, status int, registry *settings.Registry, data render.PageData) {
	title := registry.Definition().Page.Title
	if title == "" {
		title = registry.Group()
	}
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
	buf.WriteString(html.EscapeString(title))
	buf.WriteString(`</title><link rel="stylesheet" href="` + StylesheetPath + `"></head><body>`)
	if err := s.Renderer.RenderPage(&buf, data); err != nil {
		s.fail(c, registry, err)
		return
	}
	buf.WriteString("</body></html>")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) fail(c *gin.Context, registry *settings.Registry, err error) {
	logrus.WithError(err).WithField("group", registry.Group()).Error("Settings request failed")
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
