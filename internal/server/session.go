package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"footballsocial/internal/middleware"
	"footballsocial/internal/observability"
	"footballsocial/internal/shell"
	"footballsocial/internal/view"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Client to server message types.
const (
	msgSearch        = "search"
	msgSort          = "sort"
	msgUpvote        = "upvote"
	msgComment       = "comment"
	msgEdit          = "edit"
	msgDelete        = "delete"
	msgConfirmResult = "confirm_result"
)

// Server to client message types.
const (
	msgRender   = "render"
	msgNavigate = "navigate"
	msgConfirm  = "confirm"
	msgNotice   = "notice"
)

// ClientMessage is a message sent by the browser over a view session.
type ClientMessage struct {
	Type    string `json:"type"`
	Term    string `json:"term,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Content string `json:"content,omitempty"`
	ID      string `json:"id,omitempty"`
	OK      bool   `json:"ok,omitempty"`
}

// ServerMessage is a message pushed to the browser over a view session.
type ServerMessage struct {
	Type    string `json:"type"`
	HTML    string `json:"html,omitempty"`
	To      string `json:"to,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrSessionClosed is returned by Confirm once the session has ended.
var ErrSessionClosed = errors.New("view session closed")

// wsConn is the part of a websocket connection a session uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// session is one browser tab connected to one mounted view. It is the view's
// Navigator and Confirmer.
type session struct {
	id   string
	name string
	conn wsConn
	log  *observability.WSLogger
	span *observability.Span

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu       sync.Mutex
	confirms map[string]chan bool

	tasks sync.WaitGroup
}

func newSession(ctx context.Context, name string, conn wsConn) *session {
	id := uuid.NewString()
	ctx, span := observability.StartSessionSpan(middleware.WithSessionID(ctx, id), name, id)
	ctx, cancel := context.WithCancel(ctx)
	return &session{
		id:       id,
		name:     name,
		conn:     conn,
		log:      observability.NewWSLogger(name),
		span:     span,
		ctx:      ctx,
		cancel:   cancel,
		confirms: make(map[string]chan bool),
	}
}

func (s *session) send(msg ServerMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.log.LogError(s.ctx, msg.Type, err)
	}
}

func (s *session) render(html string) {
	s.send(ServerMessage{Type: msgRender, HTML: html})
}

func (s *session) notice(message string) {
	s.send(ServerMessage{Type: msgNotice, Message: message})
}

// Navigate implements view.Navigator.
func (s *session) Navigate(path string) {
	s.send(ServerMessage{Type: msgNavigate, To: path})
}

// Confirm implements view.Confirmer. It blocks until the browser answers, ctx
// is done or the session ends.
func (s *session) Confirm(ctx context.Context, message string) (bool, error) {
	id := uuid.NewString()
	answer := make(chan bool, 1)

	s.mu.Lock()
	s.confirms[id] = answer
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.confirms, id)
		s.mu.Unlock()
	}()

	s.send(ServerMessage{Type: msgConfirm, ID: id, Message: message})

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.ctx.Done():
		return false, ErrSessionClosed
	}
}

func (s *session) resolve(id string, ok bool) {
	s.mu.Lock()
	answer, found := s.confirms[id]
	s.mu.Unlock()
	if found {
		select {
		case answer <- ok:
		default:
		}
	}
}

// goTask runs fn alongside the read loop.
func (s *session) goTask(fn func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn()
	}()
}

// run reads client messages until the connection fails.
func (s *session) run(handle func(ClientMessage)) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.LogError(s.ctx, "decode", err)
			continue
		}
		s.log.LogMessage(s.ctx, msg.Type)
		handle(msg)
	}
}

// close ends the session: pending confirms are answered with
// ErrSessionClosed and running tasks are waited for.
func (s *session) close(reason string) {
	s.cancel()
	s.tasks.Wait()
	_ = s.conn.Close()
	s.log.LogDisconnect(s.ctx, reason)
	s.span.AddAttributes(attribute.String("session.close_reason", reason))
	s.span.End()
}

func (s *Server) setupSessionRoutes(app *fiber.App) {
	ws := app.Group("/ws", upgradeRequired)
	ws.Get("/feed", websocket.New(func(conn *websocket.Conn) {
		s.feedSession(conn, remoteIP(conn))
	}))
	ws.Get(shell.RouteDetail, websocket.New(func(conn *websocket.Conn) {
		id, ok := shell.ParseID(conn.Params(shell.PostIDParam))
		if !ok {
			_ = conn.Close()
			return
		}
		s.detailSession(conn, id, remoteIP(conn))
	}))
}

// upgradeRequired rejects plain HTTP requests on session routes and keeps the
// client IP for the write budget.
func upgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("ip", c.IP())
	return c.Next()
}

func remoteIP(conn *websocket.Conn) string {
	ip, _ := conn.Locals("ip").(string)
	return ip
}

// allowWrite applies the write budget to a session message.
func (s *Server) allowWrite(sess *session, resource, ip string) bool {
	allowed, _ := s.limiter.Allow(sess.ctx, resource, "ip:"+ip)
	if !allowed {
		sess.notice("Too many requests, please try again later.")
	}
	return allowed
}

func (s *Server) feedSession(conn wsConn, ip string) {
	s.sessions.Add(1)
	defer s.sessions.Done()
	middleware.ActiveWebSockets.Inc()
	defer middleware.ActiveWebSockets.Dec()

	sess := newSession(context.Background(), "feed", conn)
	sess.log.LogConnect(sess.ctx, map[string]interface{}{"ip": ip})

	feed := view.NewFeed(s.postRepo)
	feed.OnChange(func(st view.FeedState) {
		html, err := s.fragment("feed_body", st)
		if err != nil {
			sess.log.LogError(sess.ctx, msgRender, err)
			return
		}
		sess.render(html)
	})

	_ = feed.Load(sess.ctx)

	sess.run(func(msg ClientMessage) {
		observability.WebSocketEventsTotal.WithLabelValues("feed", msg.Type).Inc()
		switch msg.Type {
		case msgSearch:
			feed.SetSearch(msg.Term)
		case msgSort:
			feed.SetSort(view.ParseSortMode(msg.Sort))
		}
	})

	feed.Dispose()
	sess.close("connection closed")
}

func (s *Server) detailSession(conn wsConn, postID uint, ip string) {
	s.sessions.Add(1)
	defer s.sessions.Done()
	middleware.ActiveWebSockets.Inc()
	defer middleware.ActiveWebSockets.Dec()

	sess := newSession(context.Background(), "detail", conn)
	sess.log.LogConnect(sess.ctx, map[string]interface{}{"ip": ip, "post_id": postID})

	detail := view.NewDetail(s.postRepo, s.commentRepo, sess, sess)
	detail.OnChange(func(st view.DetailState) {
		html, err := s.fragment("detail_body", st)
		if err != nil {
			sess.log.LogError(sess.ctx, msgRender, err)
			return
		}
		sess.render(html)
	})

	_ = detail.Load(sess.ctx, postID)

	sess.run(func(msg ClientMessage) {
		observability.WebSocketEventsTotal.WithLabelValues("detail", msg.Type).Inc()
		switch msg.Type {
		case msgUpvote:
			if s.allowWrite(sess, "upvote", ip) {
				detail.Upvote(sess.ctx)
			}
		case msgComment:
			if s.allowWrite(sess, "create_comment", ip) {
				detail.SetCommentInput(msg.Content)
				detail.SubmitComment(sess.ctx)
			}
		case msgEdit:
			detail.Edit()
		case msgDelete:
			if s.allowWrite(sess, "delete_post", ip) {
				sess.goTask(func() { _ = detail.Delete(sess.ctx) })
			}
		case msgConfirmResult:
			sess.resolve(msg.ID, msg.OK)
		}
	})

	// The view is disposed first so continuations and a delete still in
	// flight finish their writes without touching the closed connection.
	detail.Dispose()
	sess.close("connection closed")
	detail.Wait()
}
