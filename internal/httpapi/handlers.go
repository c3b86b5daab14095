package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/countbot/internal/chat"
	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
)

type submissionRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Text          string `json:"text" binding:"required"`
	ChannelRef    string `json:"channel_ref"`
}

func (r submissionRequest) submission() engine.Submission {
	return engine.Submission{ParticipantID: r.ParticipantID, Text: r.Text, ChannelRef: r.ChannelRef}
}

type submissionResponse struct {
	// Ignored is set when the text is not an expression.
	Ignored bool          `json:"ignored,omitempty"`
	Outcome *game.Outcome `json:"outcome,omitempty"`
}

type evalRequest struct {
	Text string `json:"text" binding:"required"`
}

type evalResponse struct {
	engine.EvalResult
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// bindJSON decodes the request body into req, answering 413 for bodies
// over the limit and 400 for anything else that fails to bind.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return false
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
	return false
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submissionRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := s.dispatch.Game().Submit(c.Request.Context(), req.submission())
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		c.JSON(http.StatusOK, submissionResponse{Ignored: true})
		return
	}
	c.JSON(http.StatusOK, submissionResponse{Outcome: out})
}

func (s *Server) handleMessage(c *gin.Context) {
	var req submissionRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := s.dispatch.Handle(c.Request.Context(), req.submission())
	if err != nil {
		writeError(c, err)
		return
	}
	if reply == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleEval(c *gin.Context) {
	var req evalRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.dispatch.Game().Eval(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, evalResponse{EvalResult: *res, Message: res.Message()})
}

func (s *Server) handleStats(c *gin.Context) {
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, s.dispatch.Game().Snapshot())
		return
	}
	c.String(http.StatusOK, s.dispatch.Stats(c.Request.Context()))
}

func (s *Server) handleHelp(c *gin.Context) {
	c.String(http.StatusOK, s.dispatch.Help())
}

// writeError maps engine and evaluator errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		ee *expr.Error
		re *engine.RuntimeError
	)
	switch {
	case errors.As(err, &ee):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: ee.Message, Code: string(ee.Code)})
	case errors.Is(err, engine.ErrNotExpression):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: chat.ErrorMessage(err), Code: string(engine.ErrCodeNotExpression)})
	case errors.Is(err, engine.ErrNoParticipant):
		c.JSON(http.StatusBadRequest, errorResponse{Error: chat.ErrorMessage(err), Code: string(engine.ErrCodeInvalidSubmission)})
	case errors.Is(err, engine.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: chat.ErrorMessage(err), Code: string(engine.ErrCodeStopped)})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.As(err, &re):
		c.JSON(http.StatusInternalServerError, errorResponse{Error: re.Message, Code: string(re.Code)})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
