package http

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miladpirayegar-hash/scholar/internal/config"
	"github.com/miladpirayegar-hash/scholar/internal/domain"
	"github.com/miladpirayegar-hash/scholar/internal/pipeline"
	"github.com/miladpirayegar-hash/scholar/internal/services"
	"github.com/miladpirayegar-hash/scholar/internal/storage"
)

type API struct {
	cfg     config.Config
	files   *storage.FileManager
	store   *storage.SessionStore
	pipe    *pipeline.Pipeline
	outline *services.OutlineExtractor
	sheets  *services.SheetService
	share   *services.ShareService
}

func NewAPI(cfg config.Config, files *storage.FileManager, store *storage.SessionStore, pipe *pipeline.Pipeline, outline *services.OutlineExtractor, sheets *services.SheetService, share *services.ShareService) *API {
	return &API{cfg: cfg, files: files, store: store, pipe: pipe, outline: outline, sheets: sheets, share: share}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/sessions", api.handleCreateSession)
		apiGroup.GET("/sessions", api.handleListSessions)
		apiGroup.GET("/sessions/:id", api.handleGetSession)
		apiGroup.POST("/sessions/:id/reprocess", api.handleReprocessSession)
		apiGroup.POST("/sessions/:id/sheet", api.handleGenerateSheet)
		apiGroup.POST("/sessions/:id/share", api.handleShareSession)

		apiGroup.POST("/outline", api.handleExtractOutline)
	}

	r.GET("/sheets/:id", api.handleServeSheet)
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleCreateSession(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "missing audio file")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		log.Printf("error opening upload: %v", err)
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	audioPath, err := a.files.SaveUploadedAudio(upload, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("error saving uploaded audio: %v", err)
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	title := strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	sess := a.store.Create(audioPath, title)

	a.pipe.Start(sess.ID)
	log.Printf("session %s created from %s", sess.ID, fileHeader.Filename)

	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

func (a *API) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, a.store.List())
}

func (a *API) handleGetSession(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (a *API) handleReprocessSession(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	a.pipe.Start(sess.ID)

	c.JSON(http.StatusAccepted, gin.H{"id": sess.ID, "status": domain.StatusProcessing})
}

func (a *API) handleExtractOutline(c *gin.Context) {
	text, ok := a.readOutlineText(c)
	if !ok {
		return
	}

	result, err := a.outline.Extract(c.Request.Context(), text)
	if err != nil {
		log.Printf("outline extraction failed: %v", err)

		var cfgErr *services.ConfigurationError
		if errors.As(err, &cfgErr) {
			respondMessage(c, http.StatusInternalServerError, cfgErr.Error())
			return
		}
		respondMessage(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"outline": result})
}

func (a *API) readOutlineText(c *gin.Context) (string, bool) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		upload, err := fileHeader.Open()
		if err != nil {
			respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
			return "", false
		}
		defer upload.Close()

		raw, err := io.ReadAll(upload)
		if err != nil {
			respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
			return "", false
		}

		text := strings.TrimSpace(string(raw))
		if text == "" {
			respondMessage(c, http.StatusBadRequest, "uploaded file contains no text")
			return "", false
		}
		return text, true
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, "missing outline text")
		return "", false
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		respondMessage(c, http.StatusBadRequest, "missing outline text")
		return "", false
	}
	return text, true
}

func (a *API) handleGenerateSheet(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	if sess.Status != domain.StatusReady || sess.Insights == nil {
		respondMessage(c, http.StatusConflict, "session has no insights yet")
		return
	}

	sheetPath := a.files.SheetPath(sess.ID)
	if err := a.sheets.Render(sess, sheetPath); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sheetPath": sheetPath})
}

func (a *API) handleShareSession(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	if _, err := os.Stat(a.files.SheetPath(sess.ID)); err != nil {
		respondMessage(c, http.StatusBadRequest, "no study sheet available for this session")
		return
	}

	url, expiresAt := a.share.Generate(sess.ID)

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt.UTC()})
}

func (a *API) handleServeSheet(c *gin.Context) {
	sessionID := c.Param("id")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	if expires < time.Now().Unix() {
		respondMessage(c, http.StatusGone, "link expired")
		return
	}

	if !a.share.Validate(c.Request.URL.Path, expires, signature) {
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	}

	if _, err := a.store.Get(sessionID); err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	sheetPath := a.files.SheetPath(sessionID)
	if _, err := os.Stat(sheetPath); err != nil {
		respondMessage(c, http.StatusNotFound, "study sheet not found")
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(sheetPath, filepath.Base(sheetPath))
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
