// Package notify lets local processes send chat messages through the bot
// by writing a JSON request to a Unix domain socket.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/core/types"
)

const (
	connDeadline = 5 * time.Second
	sendTimeout  = 10 * time.Second
)

// Sender delivers one message. *client.Bot implements it.
type Sender interface {
	SendMessage(ctx context.Context, m client.SendMessage) (types.Message, error)
}

// Server listens on a Unix domain socket and forwards notify requests to
// the configured chats.
type Server struct {
	socketPath string
	sender     Sender
	chats      []int64
	listener   net.Listener
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewServer creates a notify server delivering to chats.
func NewServer(socketPath string, sender Sender, chats []int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		sender:     sender,
		chats:      chats,
		logger:     logger,
	}
}

// Start begins listening. It cleans up stale sockets, creates the directory
// with 0700 permissions, and sets the socket to 0600.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("another instance is already listening on %s", s.socketPath)
		}
		s.logger.Info("removing stale socket", "path", s.socketPath)
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln
	s.logger.Info("notify socket listening", "path", s.socketPath)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()
	return nil
}

// Shutdown stops accepting, waits for in-flight connections and removes
// the socket file.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept error", "error", err)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connDeadline))

	data, err := io.ReadAll(io.LimitReader(conn, MaxPayloadBytes+1))
	if err != nil {
		s.writeResponse(conn, Response{Error: "read error"})
		return
	}

	p, err := Parse(data)
	if err != nil {
		s.logger.Warn("invalid notify request", "error", err)
		s.writeResponse(conn, Response{Error: err.Error()})
		return
	}

	targets := s.chats
	if p.ChatID != 0 {
		if !slices.Contains(s.chats, p.ChatID) {
			s.writeResponse(conn, Response{Error: fmt.Sprintf("chat %d is not a notify target", p.ChatID)})
			return
		}
		targets = []int64{p.ChatID}
	}
	if len(targets) == 0 {
		s.writeResponse(conn, Response{Error: "no notify chats configured"})
		return
	}

	text := p.Text
	if p.Source != "" {
		text = "[" + p.Source + "] " + text
	}

	id := uuid.NewString()
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	for _, chatID := range targets {
		if _, err := s.sender.SendMessage(sendCtx, client.SendMessage{ChatID: chatID, Text: text}); err != nil {
			s.logger.Error("notify send failed", "id", id, "chat_id", chatID, "error", err)
			s.writeResponse(conn, Response{Error: "delivery failed"})
			return
		}
	}

	s.logger.Info("notification sent", "id", id, "chats", len(targets), "source", p.Source)
	s.writeResponse(conn, Response{OK: true, ID: id})
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	json.NewEncoder(conn).Encode(resp)
}
