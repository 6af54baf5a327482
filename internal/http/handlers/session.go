package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/http/response"
	"github.com/studyforge/quizgen-backend/internal/ingestion/sampler"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/services"
	"github.com/studyforge/quizgen-backend/internal/session"
)

const maxUploadBytes = 256 << 20

type SessionHandler struct {
	log           *logger.Logger
	study         services.StudyService
	sheetFontPath string
}

func NewSessionHandler(log *logger.Logger, study services.StudyService, sheetFontPath string) *SessionHandler {
	return &SessionHandler{
		log:           log.With("handler", "SessionHandler"),
		study:         study,
		sheetFontPath: sheetFontPath,
	}
}

// sessionView is the wire shape of a session snapshot. Snapshot PNGs stay
// out of it; they have their own endpoints.
type sessionView struct {
	State      session.State       `json:"state"`
	ManualText string              `json:"manual_text"`
	Files      []domain.SourceItem `json:"files"`
	Quiz       *domain.Quiz        `json:"quiz,omitempty"`
	Answers    map[int]string      `json:"answers"`
	Score      *int                `json:"score,omitempty"`
	Status     string              `json:"status"`
	LastError  string              `json:"last_error,omitempty"`
	Snapshots  *snapshotsView      `json:"snapshots,omitempty"`
}

type snapshotsView struct {
	SourceName  string  `json:"source_name"`
	IntervalSec float64 `json:"interval_sec"`
	DurationSec float64 `json:"duration_sec"`
	Count       int     `json:"count"`
}

func viewOf(snap session.Snapshot) sessionView {
	view := sessionView{
		State:      snap.State,
		ManualText: snap.ManualText,
		Files:      snap.Files,
		Quiz:       snap.Quiz,
		Answers:    snap.Answers,
		Score:      snap.Score,
		Status:     snap.StatusLine,
		LastError:  snap.LastError,
	}
	if snap.Snapshots != nil {
		view.Snapshots = &snapshotsView{
			SourceName:  snap.Snapshots.SourceName,
			IntervalSec: snap.Snapshots.IntervalSec,
			DurationSec: snap.Snapshots.DurationSec,
			Count:       len(snap.Snapshots.Snapshots),
		}
	}
	return view
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	response.RespondOK(c, viewOf(h.study.Current()))
}

type setTextRequest struct {
	Text string `json:"text"`
}

func (h *SessionHandler) SetText(c *gin.Context) {
	var req setTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	snap, err := h.study.SetManualText(req.Text)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(snap))
}

// SetFiles replaces the file list from a multipart form; every part under
// the "files" field becomes one source.
func (h *SessionHandler) SetFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	if form == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", nil)
		return
	}

	uploads := make([]services.Upload, 0, len(form.File["files"]))
	var total int64
	for _, fh := range form.File["files"] {
		total += fh.Size
		if total > maxUploadBytes {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "uploads_too_large", nil)
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "could_not_read_files", err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "could_not_read_files", err)
			return
		}
		uploads = append(uploads, services.Upload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	snap, err := h.study.SetFiles(c.Request.Context(), uploads)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(snap))
}

func (h *SessionHandler) Generate(c *gin.Context) {
	snap, err := h.study.Generate(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, viewOf(snap))
}

type selectAnswerRequest struct {
	QuestionIndex *int   `json:"question_index" binding:"required"`
	Option        string `json:"option"`
}

func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	var req selectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	snap, err := h.study.SelectAnswer(*req.QuestionIndex, req.Option)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(snap))
}

func (h *SessionHandler) Submit(c *gin.Context) {
	snap, err := h.study.Submit()
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(snap))
}

type snapshotMeta struct {
	Index  int     `json:"index"`
	AtSec  float64 `json:"at_sec"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

func (h *SessionHandler) ListSnapshots(c *gin.Context) {
	snap := h.study.Current()
	if snap.Snapshots == nil {
		response.RespondOK(c, []snapshotMeta{})
		return
	}
	metas := make([]snapshotMeta, 0, len(snap.Snapshots.Snapshots))
	for _, s := range snap.Snapshots.Snapshots {
		metas = append(metas, snapshotMeta{Index: s.Index, AtSec: s.AtSec, Width: s.Width, Height: s.Height})
	}
	response.RespondOK(c, metas)
}

func (h *SessionHandler) GetSnapshot(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_index", err)
		return
	}
	snap := h.study.Current()
	if snap.Snapshots == nil || idx >= len(snap.Snapshots.Snapshots) {
		response.RespondError(c, http.StatusNotFound, "snapshot_not_found", fmt.Errorf("no snapshot at index %d", idx))
		return
	}
	c.Data(http.StatusOK, "image/png", snap.Snapshots.Snapshots[idx].PNG)
}

// GetContactSheet renders all snapshots into one tiled PNG.
func (h *SessionHandler) GetContactSheet(c *gin.Context) {
	snap := h.study.Current()
	if snap.Snapshots == nil || len(snap.Snapshots.Snapshots) == 0 {
		response.RespondError(c, http.StatusNotFound, "no_snapshots", nil)
		return
	}
	sheet, err := sampler.RenderContactSheet(*snap.Snapshots, h.sheetFontPath)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sheet_render_failed", err)
		return
	}
	c.Data(http.StatusOK, "image/png", sheet)
}
