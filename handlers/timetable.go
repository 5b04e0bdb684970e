package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"timetable-lookup/middleware"
	"timetable-lookup/models"
	"timetable-lookup/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgTimetableNotFound = "Could not find timetable"
	timetableContentType = "application/octet-stream"
)

type TimetableHandler struct {
	timetableService *services.TimetableService
	flashStore       *services.FlashStore
	logger           *zap.Logger
}

func NewTimetableHandler(timetables *services.TimetableService, flashes *services.FlashStore, logger *zap.Logger) *TimetableHandler {
	return &TimetableHandler{
		timetableService: timetables,
		flashStore:       flashes,
		logger:           logger,
	}
}

// Index отдаёт форму вместе с flash-сообщениями
func (h *TimetableHandler) Index(c *gin.Context) {
	h.render(c, "index.tmpl", "Timetable download")
}

// Tutorial отдаёт страницу с инструкцией
func (h *TimetableHandler) Tutorial(c *gin.Context) {
	h.render(c, "tutorial.tmpl", "Timetable tutorial")
}

func (h *TimetableHandler) render(c *gin.Context, page, title string) {
	flashes := h.flashStore.Pop(middleware.SessionID(c))
	c.HTML(http.StatusOK, page, gin.H{
		"title":    title,
		"messages": services.Group(flashes),
	})
}

// Submit отдаёт файл расписания или редиректит на форму с ошибкой
func (h *TimetableHandler) Submit(c *gin.Context) {
	// Непоказанные сообщения заменяются результатом этой отправки
	h.flashStore.Pop(middleware.SessionID(c))

	reqID := zap.String("request_id", middleware.RequestIDFrom(c))

	var req models.TimetableRequest
	if err := c.ShouldBind(&req); err != nil {
		h.timetableService.Log(models.LogEvent{
			StudentID: req.StudentID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Outcome:   models.OutcomeFailure,
			Err:       err,
		}, reqID)
		h.notFound(c, err)
		return
	}

	file, err := h.timetableService.Lookup(c.Request.Context(), req, reqID)
	if err != nil {
		h.notFound(c, err)
		return
	}
	defer file.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": contentDisposition(file.Name),
	}
	if !file.LastModified.IsZero() {
		extraHeaders["Last-Modified"] = file.LastModified.UTC().Format(http.TimeFormat)
	}
	c.DataFromReader(http.StatusOK, file.Size, timetableContentType, file.Body, extraHeaders)
}

func (h *TimetableHandler) notFound(c *gin.Context, cause error) {
	_ = c.Error(cause)

	sessionID, err := middleware.StartSession(c)
	if err != nil {
		h.logger.Error("failed to start session for flash message", zap.Error(err))
	} else {
		h.flashStore.Add(sessionID, models.Flash{Kind: models.FlashError, Text: msgTimetableNotFound})
	}

	c.Redirect(http.StatusFound, "/")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// contentDisposition заставляет браузер скачать файл под именем name.
// Для не-ASCII имён в filename идёт замена, точное имя в filename*
func contentDisposition(name string) string {
	fallback := asciiFallback(name)
	header := `attachment; filename="` + quoteEscaper.Replace(fallback) + `"`
	if fallback != name {
		header += `; filename*=UTF-8''` + url.PathEscape(name)
	}
	return header
}

// asciiFallback заменяет все не-ASCII символы на "?"
func asciiFallback(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 127 {
			return '?'
		}
		return r
	}, s)
}
