package controller

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"excel_interview_backend/internal/service"
	"excel_interview_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionController struct {
	InterviewService *service.InterviewService
}

func NewSessionController(interviewService *service.InterviewService) *SessionController {
	return &SessionController{InterviewService: interviewService}
}

// @Summary Start an interview session
// @Description Registers the candidate and opens a session with the first question pending
// @Tags interview
// @Accept json
// @Produce json
// @Param request body service.CreateSessionRequest true "candidate details"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/sessions [post]
func (c *SessionController) CreateSession(ctx *gin.Context) {
	var req service.CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "candidate_name and candidate_email are required")
		return
	}

	session, err := c.InterviewService.CreateSession(ctx.Request.Context(), req)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// @Summary Fetch the next question
// @Description Returns the pending question, a follow-up, or the closing message once the session is done
// @Tags interview
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/question [get]
func (c *SessionController) NextQuestion(ctx *gin.Context) {
	view, err := c.InterviewService.NextQuestion(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Submit an answer
// @Description Accepts typed text or an audio recording for the pending question and returns the score
// @Tags interview
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "session id"
// @Param text_answer formData string false "typed answer"
// @Param time_spent formData number false "seconds spent on the question"
// @Param audio formData file false "recorded answer"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/answer [post]
func (c *SessionController) SubmitAnswer(ctx *gin.Context) {
	input := service.SubmitInput{
		Text: ctx.PostForm("text_answer"),
	}
	if v := ctx.PostForm("time_spent"); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil && seconds >= 0 {
			input.TimeSpent = seconds
		}
	}

	if file, err := ctx.FormFile("audio"); err == nil && file != nil {
		path := filepath.Join(os.TempDir(), "answer_"+uuid.New().String()+filepath.Ext(file.Filename))
		if err := ctx.SaveUploadedFile(file, path); err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		defer os.Remove(path)
		input.AudioPath = path
	}

	result, err := c.InterviewService.SubmitAnswer(ctx.Request.Context(), ctx.Param("id"), input)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Fetch the interview report
// @Description Aggregates a completed session into the final report
// @Tags interview
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/report [get]
func (c *SessionController) GetReport(ctx *gin.Context) {
	report, err := c.InterviewService.GetReport(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

func (c *SessionController) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound), errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrBankExhausted):
		// Session creation can fail when no catalog question matches the
		// requested role level; the empty bank is a missing resource, not a
		// server fault.
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrSessionCompleted):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidInput),
		errors.Is(err, util.ErrNoPendingQuestion),
		errors.Is(err, util.ErrNoAnswerProvided),
		errors.Is(err, util.ErrSessionNotComplete):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
