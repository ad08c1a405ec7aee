package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
	"github.com/orbitq/orbitq/internal/event"
	"github.com/orbitq/orbitq/internal/identity"
	"github.com/orbitq/orbitq/internal/leaderboard"
	"github.com/orbitq/orbitq/internal/session"
)

type Config struct {
	Engine       *gin.Engine
	EventBus     *event.Bus
	Session      *session.Service
	Leaderboard  *leaderboard.Service
	Categories   Categories
	Identity     identity.Provider
	Redis        Redis
	PubsubPrefix string
}

// Categories lists the quiz categories available for session creation.
type Categories interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API is the HTTP transport over the session and leaderboard services. It
// holds no game state of its own.
type API struct {
	ss  *session.Service
	ls  *leaderboard.Service
	cat Categories
	idp identity.Provider

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		ss:     c.Session,
		ls:     c.Leaderboard,
		cat:    c.Categories,
		idp:    c.Identity,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	v1 := c.Engine.Group("/v1", a.authenticate)
	{
		v1.GET("/categories", a.listCategories)

		v1.POST("/sessions", a.createSession)
		v1.GET("/sessions", a.listSessions)
		v1.GET("/sessions/:code", a.getSession)
		v1.DELETE("/sessions/:code", a.deleteSession)
		v1.POST("/sessions/:code/join", a.joinSession)
		v1.POST("/sessions/:code/start", a.startSession)
		v1.GET("/sessions/:code/question", a.currentQuestion)
		v1.POST("/sessions/:code/answers", a.submitAnswer)

		v1.GET("/leaderboards/sessions/:session_id", a.sessionLeaderboard)
		v1.GET("/leaderboards/global", a.globalLeaderboard)
	}

	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})

	return a
}

const ctxPlayer = "player"

// authenticate resolves the bearer token to a player via the identity
// collaborator. Token verification itself lives entirely outside the core.
func (a *API) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		abortError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing bearer token")))
		return
	}

	player, err := a.idp.Resolve(c.Request.Context(), token)
	if err != nil {
		abortError(c, err)
		return
	}

	c.Set(ctxPlayer, player)
	c.Next()
}

func currentPlayer(c *gin.Context) domain.Player {
	return c.MustGet(ctxPlayer).(domain.Player)
}

func (a *API) listCategories(c *gin.Context) {
	cs, err := a.cat.ListCategories(c.Request.Context())
	if err != nil {
		abortError(c, err)
		return
	}

	out := make([]CategoryResponse, 0, len(cs))
	for _, cat := range cs {
		out = append(out, CategoryResponse{CategoryID: cat.CategoryID, Name: cat.Name})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (a *API) createSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	ss, err := a.ss.CreateSession(c.Request.Context(), session.CreateSessionRequest{
		HostID:        currentPlayer(c).PlayerID,
		CategoryID:    req.CategoryID,
		QuestionCount: req.QuestionCount,
		StartTime:     req.StartTime,
		Duration:      time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(*ss))
}

func (a *API) listSessions(c *gin.Context) {
	views := a.ls.ActiveSessions(c.Request.Context())

	out := make([]SessionViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, sessionViewResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (a *API) getSession(c *gin.Context) {
	v, err := a.ss.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionViewResponse(*v))
}

func (a *API) deleteSession(c *gin.Context) {
	if err := a.ss.DeleteSession(c.Request.Context(), c.Param("code")); err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) joinSession(c *gin.Context) {
	ss, err := a.ss.Join(c.Request.Context(), c.Param("code"), currentPlayer(c))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse(*ss))
}

func (a *API) startSession(c *gin.Context) {
	err := a.ss.StartSession(c.Request.Context(), c.Param("code"), currentPlayer(c).PlayerID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) currentQuestion(c *gin.Context) {
	v, err := a.ss.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		abortError(c, err)
		return
	}

	q, err := a.ss.CurrentQuestion(c.Request.Context(), v.SessionID, currentPlayer(c).PlayerID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, questionResponse(q))
}

func (a *API) submitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	v, err := a.ss.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		abortError(c, err)
		return
	}

	resp, err := a.ss.SubmitAnswer(c.Request.Context(), session.SubmitAnswerRequest{
		SessionID:      v.SessionID,
		PlayerID:       currentPlayer(c).PlayerID,
		QuestionID:     req.QuestionID,
		ChosenOptionID: req.OptionID,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	out := SubmitAnswerResponse{
		Points:     resp.Points,
		TotalScore: resp.TotalScore,
		Finished:   resp.Finished,
	}
	if resp.NextQuestion != nil {
		q := questionResponse(resp.NextQuestion)
		out.NextQuestion = &q
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) sessionLeaderboard(c *gin.Context) {
	l, err := a.ls.SessionLeaderboard(c.Request.Context(), leaderboard.SessionLeaderboardRequest{
		SessionID: c.Param("session_id"),
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboardResponse(*l))
}

func (a *API) globalLeaderboard(c *gin.Context) {
	l, err := a.ls.GlobalLeaderboard(c.Request.Context())
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboardResponse(*l))
}

func abortError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e})
}
