package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/progress"
	"github.com/born-ml/einsum/internal/quiz"
	"github.com/born-ml/einsum/internal/tensor"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, errorResponse{Error: err.Error(), Kind: errorKind(err)})
}

// bindJSON decodes the request body into v, answering 413 for bodies over
// the configured limit and 400 for anything else that does not decode.
func bindJSON(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abort(c, http.StatusRequestEntityTooLarge, err)
		return false
	}
	abort(c, http.StatusBadRequest, err)
	return false
}

// errorKind names the parse or evaluation failure, if err is one.
func errorKind(err error) string {
	var pe *einsum.ParseError
	if errors.As(err, &pe) {
		return pe.Kind.String()
	}
	var ee *einsum.EvaluationError
	if errors.As(err, &ee) {
		return ee.Kind.String()
	}
	return ""
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "questions": s.Bank().Len()})
}

func (s *Server) handleListQuestions(c *gin.Context) {
	var level quiz.Difficulty
	if q := c.Query("difficulty"); q != "" {
		if err := level.UnmarshalText([]byte(q)); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
	}

	out := []questionView{}
	for _, q := range s.Bank().Questions() {
		if level != 0 && q.Difficulty != level {
			continue
		}
		out = append(out, newQuestionView(q))
	}
	c.JSON(http.StatusOK, gin.H{"questions": out})
}

func (s *Server) handleGetQuestion(c *gin.Context) {
	q, ok := s.Bank().Get(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, errors.New("question not found"))
		return
	}
	c.JSON(http.StatusOK, newQuestionView(q))
}

type evaluateRequest struct {
	Expression string          `json:"expression" binding:"required"`
	Inputs     []tensor.Tensor `json:"inputs"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := s.evaluator.ParseAndEvaluate(req.Expression, req.Inputs...)
	s.metrics.ObserveEvaluation(err)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"output": out})
}

type checkRequest struct {
	Expression string `json:"expression" binding:"required"`
	Session    string `json:"session"`
}

type checkResponse struct {
	Correct     bool            `json:"correct"`
	CasesRun    int             `json:"cases_run"`
	Message     string          `json:"message"`
	Failure     *failureView    `json:"failure,omitempty"`
	Hints       []string        `json:"hints,omitempty"`
	Explanation string          `json:"explanation"`
	Canonical   string          `json:"canonical"`
	Progress    *progress.State `json:"progress,omitempty"`
}

func (s *Server) handleCheck(c *gin.Context) {
	q, ok := s.Bank().Get(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, errors.New("question not found"))
		return
	}
	var req checkRequest
	if !bindJSON(c, &req) {
		return
	}

	var sess *session
	if req.Session != "" {
		if sess, ok = s.session(req.Session); !ok {
			abort(c, http.StatusNotFound, errors.New("session not found"))
			return
		}
	}

	start := time.Now()
	res, err := s.runner().Run(q, req.Expression)
	if err != nil {
		s.log.Error("Broken question", zap.String("question", q.ID), zap.Error(err))
		abort(c, http.StatusInternalServerError, err)
		return
	}
	s.metrics.ObserveCheck(q.Difficulty, res, time.Since(start))

	resp := checkResponse{
		Correct:     res.Passed,
		CasesRun:    res.CasesRun,
		Message:     "Correct!",
		Explanation: q.Explanation,
		Canonical:   q.Canonical,
	}
	if f := res.Failure; f != nil {
		resp.Message = f.Reason
		resp.Failure = newFailureView(f)
		resp.Hints = quiz.DetailedHint(q)
	}
	if sess != nil {
		st := sess.record(res.Passed, s.cfg.Progress)
		resp.Progress = &st
	}
	c.JSON(http.StatusOK, resp)
}

type sessionResponse struct {
	ID      string           `json:"id"`
	Created time.Time        `json:"created"`
	State   progress.State   `json:"state"`
	Summary progress.Summary `json:"summary"`
}

func newSessionResponse(sess *session) sessionResponse {
	st := sess.snapshot()
	return sessionResponse{ID: sess.id, Created: sess.created, State: st, Summary: progress.Summarize(st)}
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.newSession()
	s.log.Debug("Session created", zap.String("session", sess.id))
	c.JSON(http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, errors.New("session not found"))
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleNextQuestion(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, errors.New("session not found"))
		return
	}
	q, st, err := sess.next(s.Bank())
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": newQuestionView(q), "state": st})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.deleteSession(c.Param("id")) {
		abort(c, http.StatusNotFound, errors.New("session not found"))
		return
	}
	c.Status(http.StatusNoContent)
}
