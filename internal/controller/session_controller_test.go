package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"excel_interview_backend/internal/util"
)

func TestSessionController_ErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := &SessionController{}

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"SessionNotFound", util.ErrSessionNotFound, http.StatusNotFound},
		{"QuestionNotFound", util.ErrQuestionNotFound, http.StatusNotFound},
		{"EmptyQuestionBank", util.ErrBankExhausted, http.StatusNotFound},
		{"SessionCompleted", util.ErrSessionCompleted, http.StatusConflict},
		{"InvalidInput", util.ErrInvalidInput, http.StatusBadRequest},
		{"NoPendingQuestion", util.ErrNoPendingQuestion, http.StatusBadRequest},
		{"NoAnswerProvided", util.ErrNoAnswerProvided, http.StatusBadRequest},
		{"SessionNotComplete", util.ErrSessionNotComplete, http.StatusBadRequest},
		{"UnmappedError", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(rec)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			c.writeError(ctx, tc.err)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
