package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fernspiel/internal/paths"
	"fernspiel/pkg/logging"

	"github.com/chzyer/readline"
	"github.com/gorilla/websocket"
)

const subsystem = "Console"

// Prompt is shown in front of every input line.
const Prompt = "fernspiel> "

// closeTimeout bounds how long Run waits for the runtime to answer a close
// frame.
const closeTimeout = time.Second

// Config configures a console session.
type Config struct {
	// HistoryFile persists input lines across sessions. Empty disables history.
	HistoryFile string

	// Stdin and Stdout default to the terminal.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Console relays lines between a terminal and a control connection.
type Console struct {
	conn   *websocket.Conn
	config Config
}

// New creates a console on an open control connection. The console owns conn
// and closes it when Run returns.
func New(conn *websocket.Conn, config Config) *Console {
	return &Console{conn: conn, config: config}
}

// Run reads lines until the session ends. It returns nil when the user
// leaves or the runtime closes the connection normally.
func (c *Console) Run(ctx context.Context) error {
	defer c.conn.Close()

	if c.config.HistoryFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.config.HistoryFile), paths.DefaultDirMode); err != nil {
			logging.Warn(subsystem, "History disabled: %v", err)
			c.config.HistoryFile = ""
		}
	}

	// readline's own stdin wrapper does not pass Close through, so a
	// pending read would keep rl.Close waiting forever.
	var source io.Reader = os.Stdin
	if c.config.Stdin != nil {
		source = c.config.Stdin
	}
	stdin := readline.NewCancelableStdin(source)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            Prompt,
		HistoryFile:       c.config.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             stdin,
		Stdout:            c.config.Stdout,
	})
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	var closeOnce sync.Once
	closeReadline := func() {
		closeOnce.Do(func() {
			stdin.Close()
			rl.Close()
		})
	}
	defer closeReadline()

	received := make(chan error, 1)
	go func() {
		received <- Receive(c.conn, rl.Stdout())
		// unblocks Readline once the runtime hangs up
		closeReadline()
	}()

	stop := context.AfterFunc(ctx, closeReadline)
	defer stop()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if err := Send(c.conn, input); err != nil {
			return err
		}
	}

	return c.hangUp(received)
}

// hangUp sends a close frame and waits briefly for the receiver to finish.
func (c *Console) hangUp(received <-chan error) error {
	select {
	case err := <-received:
		return err
	default:
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil {
		logging.Debug(subsystem, "Close frame not sent: %v", err)
		return nil
	}

	select {
	case err := <-received:
		return err
	case <-time.After(closeTimeout):
		logging.Debug(subsystem, "Runtime did not answer the close frame")
		return nil
	}
}

// Send writes line as a single text frame.
func Send(conn *websocket.Conn, line string) error {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	return nil
}

// Receive prints every frame read from conn to out until the connection
// closes. A normal close by either side returns nil.
func Receive(conn *websocket.Conn, out io.Writer) error {
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug(subsystem, "Connection closed: %v", err)
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		switch mt {
		case websocket.TextMessage:
			fmt.Fprintf(out, "%s\n", strings.TrimRight(string(msg), "\n"))
		default:
			fmt.Fprintf(out, "[binary frame, %d bytes]\n", len(msg))
		}
	}
}
