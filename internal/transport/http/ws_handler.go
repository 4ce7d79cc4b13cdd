package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// CommandHandler runs player commands.
type CommandHandler interface {
	Handle(ctx context.Context, cmd app.Command) (domain.Event, error)
}

// PlayerDirectory registers players the first time they connect.
type PlayerDirectory interface {
	Ensure(ctx context.Context, u domain.User) error
}

type WSConfig struct {
	Service CommandHandler
	Hub     *Hub
	Auth    *Authenticator
	// Players is optional; when set, unknown players are created with DefaultRating.
	Players       PlayerDirectory
	DefaultRating int
	Logger        logrus.FieldLogger
}

type WSHandler struct {
	service       CommandHandler
	hub           *Hub
	auth          *Authenticator
	players       PlayerDirectory
	defaultRating int
	validate      *validator.Validate
	log           logrus.FieldLogger
	upgrader      websocket.Upgrader
}

func NewWSHandler(c WSConfig) *WSHandler {
	return &WSHandler{
		service:       c.Service,
		hub:           c.Hub,
		auth:          c.Auth,
		players:       c.Players,
		defaultRating: c.DefaultRating,
		validate:      validator.New(),
		log:           c.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type matchPayload struct {
	MatchID string `json:"matchId" validate:"required"`
}

type answerPayload struct {
	MatchID       string `json:"matchId" validate:"required"`
	QuestionIndex *int   `json:"questionIndex" validate:"required,min=0"`
	Option        *int   `json:"option" validate:"required,min=0"`
}

type skipPayload struct {
	MatchID       string `json:"matchId" validate:"required"`
	QuestionIndex *int   `json:"questionIndex" validate:"required,min=0"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the match use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.Identify(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	playerID := id.PlayerID

	if h.players != nil {
		err := h.players.Ensure(r.Context(), domain.User{ID: playerID, DisplayName: id.Name, Rating: h.defaultRating})
		if err != nil {
			h.log.WithError(err).WithField("player_id", playerID).Error("register player failed")
			http.Error(w, "player registration failed", http.StatusInternalServerError)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("player_id", playerID)
	c := h.hub.register(playerID)
	defer h.hub.unregister(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, c, log)
	}()

	joined := make(map[string]struct{})
	h.readLoop(ctx, conn, c, playerID, joined, log)

	for matchID := range joined {
		_, _ = h.service.Handle(ctx, app.Command{Kind: app.CommandLeave, MatchID: matchID, PlayerID: playerID})
	}
	cancel()
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, c *client, playerID string, joined map[string]struct{}, log logrus.FieldLogger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound domain.Frame
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("ws read failed")
			}
			return
		}

		cmd, err := h.decode(inbound, playerID)
		if err != nil {
			h.reply(c, domain.NewErrorEvent(err), log)
			continue
		}

		reply, err := h.service.Handle(ctx, cmd)
		if err != nil {
			h.reply(c, domain.NewErrorEvent(err), log)
			continue
		}
		if cmd.Kind == app.CommandJoin {
			joined[cmd.MatchID] = struct{}{}
		}
		if cmd.Kind == app.CommandLeave {
			delete(joined, cmd.MatchID)
		}
		if reply != nil {
			h.reply(c, reply, log)
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, c *client, log logrus.FieldLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// closing unblocks the reader when a write fails
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) reply(c *client, e domain.Event, log logrus.FieldLogger) {
	frame, err := domain.EncodeEvent(e)
	if err != nil {
		log.WithError(err).Error("encode reply failed")
		return
	}
	c.enqueue(frame)
}

// decode turns an inbound frame into a command for playerID.
func (h *WSHandler) decode(f domain.Frame, playerID string) (app.Command, error) {
	cmd := app.Command{Kind: app.CommandKind(f.Type), PlayerID: playerID}

	var target interface{}
	switch cmd.Kind {
	case app.CommandJoin, app.CommandTimeoutNotice, app.CommandLeave:
		target = &matchPayload{}
	case app.CommandSubmitAnswer:
		target = &answerPayload{}
	case app.CommandSkipQuestion:
		target = &skipPayload{}
	default:
		return cmd, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("unsupported message type %q", f.Type))
	}

	if len(f.Payload) == 0 {
		return cmd, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("missing payload"))
	}
	if err := json.Unmarshal(f.Payload, target); err != nil {
		return cmd, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("invalid %s payload", f.Type), domain.WithCause(err))
	}
	if err := h.validate.Struct(target); err != nil {
		return cmd, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("invalid %s payload: %v", f.Type, err))
	}

	switch p := target.(type) {
	case *matchPayload:
		cmd.MatchID = p.MatchID
	case *answerPayload:
		cmd.MatchID, cmd.QuestionIndex, cmd.Option = p.MatchID, *p.QuestionIndex, *p.Option
	case *skipPayload:
		cmd.MatchID, cmd.QuestionIndex = p.MatchID, *p.QuestionIndex
	}
	return cmd, nil
}
