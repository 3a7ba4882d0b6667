package controller

import (
	"errors"
	"net/http"
	"strconv"

	"excel_interview_backend/internal/service"
	"excel_interview_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// @Summary List catalog questions
// @Description Lists the question bank, filterable by category and difficulty
// @Tags questions
// @Produce json
// @Param category query string false "category filter"
// @Param difficulty query string false "beginner|intermediate|advanced"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /api/questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	questions, total, err := c.QuestionService.List(
		ctx.Query("category"), ctx.Query("difficulty"), page, limit)
	if err != nil {
		c.writeError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  questions,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary Create a catalog question
// @Description Adds one hand-authored question to the bank
// @Tags questions
// @Accept json
// @Produce json
// @Param request body service.CreateQuestionRequest true "question"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/admin/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req service.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "category, difficulty and question_text are required")
		return
	}

	question, err := c.QuestionService.Create(req)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// @Summary Generate catalog questions
// @Description Drafts questions with the model for one category and difficulty
// @Tags questions
// @Accept json
// @Produce json
// @Param request body service.GenerateQuestionsRequest true "generation request"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/admin/questions/generate [post]
func (c *QuestionController) GenerateQuestions(ctx *gin.Context) {
	var req service.GenerateQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "category and difficulty are required")
		return
	}

	questions, err := c.QuestionService.Generate(ctx.Request.Context(), req)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	util.Created(ctx, questions)
}

func (c *QuestionController) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidInput):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrGenerationFailed):
		util.Error(ctx, http.StatusBadGateway, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
