package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

// MatchAPI is the part of the match service exposed over REST.
type MatchAPI interface {
	CreateMatch(ctx context.Context, req app.CreateMatchRequest) (*domain.Match, error)
	State(ctx context.Context, matchID string) (domain.MatchState, error)
}

type RouterConfig struct {
	Matches MatchAPI
	WS      *WSHandler
	Metrics http.Handler
	Logger  logrus.FieldLogger
}

type createMatchRequest struct {
	MatchID     string   `json:"matchId"`
	Players     []string `json:"players" binding:"required,len=2,dive,required"`
	QuestionIDs []string `json:"questionIds" binding:"omitempty,dive,required"`
}

type createMatchResponse struct {
	MatchID        string    `json:"matchId"`
	Players        []string  `json:"players"`
	TotalQuestions int       `json:"totalQuestions"`
	StartedAt      time.Time `json:"startedAt"`
}

func NewRouter(c RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	if c.Metrics != nil {
		e.GET("/metrics", gin.WrapH(c.Metrics))
	}
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), requestLogger(c.Logger))

	e.GET("/healthz", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	e.GET("/ws", gin.WrapF(c.WS.ServeWS))

	api := e.Group("/api")
	{
		api.POST("/matches", createMatch(c.Matches))
		api.GET("/matches/:id", getMatch(c.Matches))
	}
	return e
}

func createMatch(svc MatchAPI) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req createMatchRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			writeError(ctx, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("%v", err)))
			return
		}

		m, err := svc.CreateMatch(ctx.Request.Context(), app.CreateMatchRequest{
			MatchID:     req.MatchID,
			PlayerIDs:   req.Players,
			QuestionIDs: req.QuestionIDs,
		})
		if err != nil {
			writeError(ctx, err)
			return
		}

		resp := createMatchResponse{
			MatchID:        m.ID,
			TotalQuestions: m.TotalQuestions,
			StartedAt:      m.StartedAt,
		}
		for _, p := range m.Players {
			resp.Players = append(resp.Players, p.PlayerID)
		}
		ctx.JSON(http.StatusCreated, resp)
	}
}

func getMatch(svc MatchAPI) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		state, err := svc.State(ctx.Request.Context(), ctx.Param("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, state)
	}
}

func writeError(ctx *gin.Context, err error) {
	ev := domain.NewErrorEvent(err)
	ctx.AbortWithStatusJSON(statusOf(ev.Code), ev)
}

func statusOf(code domain.Code) int {
	switch code {
	case domain.CodeNotFound, domain.CodeUserNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidRequest:
		return http.StatusBadRequest
	case domain.CodeNotParticipant:
		return http.StatusForbidden
	case domain.CodeNoQuestions:
		return http.StatusServiceUnavailable
	case domain.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  ctx.Request.Method,
			"path":    ctx.FullPath(),
			"status":  ctx.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(ctx.Errors) > 0 {
			entry.WithError(ctx.Errors.Last()).Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
