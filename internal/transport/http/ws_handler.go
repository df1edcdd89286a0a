package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/auth"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/timer"
	"quiz-game-service/internal/validation"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

// PlayHandler runs a whole game over one websocket with a server-side countdown.
type PlayHandler struct {
	games       *app.GameService
	resultDelay time.Duration
	logger      *slog.Logger
	timerOpts   []timer.Option
	upgrader    websocket.Upgrader
}

func NewPlayHandler(games *app.GameService, resultDelay time.Duration, logger *slog.Logger, opts ...timer.Option) *PlayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if resultDelay < 0 {
		resultDelay = 0
	}
	return &PlayHandler{
		games:       games,
		resultDelay: resultDelay,
		logger:      logger,
		timerOpts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Number int    `json:"number"`
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type startedPayload struct {
	SessionID string       `json:"sessionId"`
	Topic     domain.Topic `json:"topic"`
}

type tickPayload struct {
	Number    int `json:"number"`
	Remaining int `json:"remaining"`
}

type resultPayload struct {
	domain.AnswerResult
	Number   int  `json:"number"`
	TimedOut bool `json:"timedOut"`
}

type summaryPayload struct {
	domain.Summary
	Warning string `json:"warning,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func message(typ string, payload any) outboundMessage[any] {
	return outboundMessage[any]{Type: typ, Payload: payload}
}

// ServeWS starts a game on the requested topic and plays it to the summary. Closing the
// socket before the summary abandons the game.
func (h *PlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "a valid bearer token is required")
		return
	}
	slug := r.URL.Query().Get("topic")
	if !validation.IsValidSlug(slug) {
		respondError(w, http.StatusBadRequest, "invalid_slug", "topic must be a valid slug")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	started, err := h.games.Start(ctx, slug, userID)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(message("error", errorPayload{Message: err.Error()}))
		return
	}

	p := &playConn{
		conn:       conn,
		logger:     h.logger.With("session_id", started.SessionID, "user_id", userID),
		send:       make(chan outboundMessage[any], sendBuffer),
		inbound:    make(chan answerPayload),
		quit:       make(chan struct{}),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go p.writeLoop()
	go p.readLoop()

	h.play(ctx, p, userID, started)

	close(p.quit)
	<-p.writerDone
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *PlayHandler) play(ctx context.Context, p *playConn, userID string, started app.Started) {
	sessionID := started.SessionID
	view := started.Question

	var current atomic.Int64
	current.Store(int64(view.Number))

	timeouts := make(chan int, 1)
	expire := func(number int) func() {
		return func() {
			select {
			case timeouts <- number:
			default:
			}
		}
	}
	opts := append(append([]timer.Option(nil), h.timerOpts...), timer.WithOnTick(func(remaining int) {
		p.offer(message("tick", tickPayload{Number: int(current.Load()), Remaining: remaining}))
	}))

	p.push(message("started", startedPayload{SessionID: sessionID, Topic: started.Topic}))
	p.push(message("question", view))

	countdown := timer.New(view.TimeLimitSeconds, expire(view.Number), opts...)
	defer countdown.Stop()
	shownAt := time.Now()
	awaiting := true
	var next <-chan time.Time

	for {
		select {
		case <-p.readerDone:
			if err := h.games.Abandon(ctx, sessionID, userID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				p.logger.Warn("abandon after disconnect failed", "error", err)
			}
			p.logger.Info("player disconnected before the end of the game")
			return

		case in := <-p.inbound:
			if !awaiting || in.Number != view.Number {
				p.push(message("error", errorPayload{Message: fmt.Sprintf("question %d is not open", in.Number)}))
				continue
			}
			countdown.Pause()
			if countdown.Expired() {
				// the timeout is already queued and wins
				continue
			}
			res, err := h.games.Answer(ctx, sessionID, userID, in.Answer, time.Since(shownAt).Milliseconds())
			if err != nil {
				p.push(message("error", errorPayload{Message: err.Error()}))
				countdown.Resume()
				continue
			}
			countdown.Stop()
			awaiting = false
			p.push(message("result", resultPayload{AnswerResult: res, Number: view.Number}))
			next = time.After(h.resultDelay)

		case number := <-timeouts:
			if !awaiting || number != view.Number {
				continue
			}
			res, err := h.games.Expire(ctx, sessionID, userID, int64(view.TimeLimitSeconds)*1000)
			if err != nil {
				p.logger.Warn("recording timeout failed", "error", err)
				p.push(message("error", errorPayload{Message: err.Error()}))
				return
			}
			awaiting = false
			p.push(message("result", resultPayload{AnswerResult: res, Number: view.Number, TimedOut: true}))
			next = time.After(h.resultDelay)

		case <-next:
			next = nil
			nextView, more, err := h.games.Advance(ctx, sessionID, userID)
			if err != nil {
				p.push(message("error", errorPayload{Message: err.Error()}))
				return
			}
			if !more {
				h.finish(ctx, p, sessionID, userID)
				return
			}
			view = nextView
			current.Store(int64(view.Number))
			countdown.SetOnTimeout(expire(view.Number))
			countdown.Reset(view.TimeLimitSeconds)
			shownAt = time.Now()
			awaiting = true
			p.push(message("question", view))
		}
	}
}

func (h *PlayHandler) finish(ctx context.Context, p *playConn, sessionID, userID string) {
	summary, err := h.games.Finish(ctx, sessionID, userID)
	var perr *domain.PersistenceError
	if err != nil && !errors.As(err, &perr) {
		p.push(message("error", errorPayload{Message: err.Error()}))
		return
	}
	payload := summaryPayload{Summary: summary}
	if perr != nil {
		p.logger.Warn("game finished without a stored completion", "error", err)
		payload.Warning = "result could not be saved"
	}
	p.push(message("summary", payload))
}

// playConn owns the goroutines of one socket. Only writeLoop writes data frames.
type playConn struct {
	conn   *websocket.Conn
	logger *slog.Logger

	send    chan outboundMessage[any]
	inbound chan answerPayload

	quit       chan struct{}
	writerDone chan struct{}
	readerDone chan struct{}
}

// push queues msg, blocking until there is room or the writer has gone.
func (p *playConn) push(msg outboundMessage[any]) {
	select {
	case p.send <- msg:
	case <-p.writerDone:
	}
}

// offer queues msg only if there is room.
func (p *playConn) offer(msg outboundMessage[any]) {
	select {
	case p.send <- msg:
	default:
	}
}

func (p *playConn) write(msg outboundMessage[any]) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(msg)
}

func (p *playConn) writeLoop() {
	defer close(p.writerDone)
	for {
		select {
		case msg := <-p.send:
			if err := p.write(msg); err != nil {
				p.logger.Debug("ws write error", "error", err)
				return
			}
		case <-p.quit:
			for {
				select {
				case msg := <-p.send:
					if err := p.write(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (p *playConn) readLoop() {
	defer close(p.readerDone)
	for {
		var in inboundMessage
		if err := p.conn.ReadJSON(&in); err != nil {
			return
		}
		switch in.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(in.Payload, &payload); err != nil {
				p.push(message("error", errorPayload{Message: "invalid answer payload"}))
				continue
			}
			select {
			case p.inbound <- payload:
			case <-p.quit:
				return
			}
		default:
			p.push(message("error", errorPayload{Message: "unsupported message type"}))
		}
	}
}
