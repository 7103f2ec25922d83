// Command assistant-cli is an interactive websocket client for the assistant.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/gorilla/websocket"

	"github.com/waegarcia/conversational-assistant/internal/transport/ws"
)

// Client is a websocket chat client.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	out       io.Writer
	done      chan struct{}
}

// NewClient dials the assistant.
func NewClient(addr string, out io.Writer) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{
		conn: conn,
		out:  out,
		done: make(chan struct{}),
	}, nil
}

func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendHello identifies the user and waits for hello_ack.
func (c *Client) SendHello(userID, sessionID string) error {
	msg := ws.HelloMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		UserID: userID,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type == ws.TypeError {
		var errMsg ws.ErrorMessage
		_ = json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != ws.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

func (c *Client) SendMessage(content string) error {
	return c.conn.WriteJSON(ws.UserMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeMessage,
			Ts:        time.Now().UnixMilli(),
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		Content: content,
	})
}

func (c *Client) SendEnd() error {
	return c.conn.WriteJSON(ws.BaseMessage{Type: ws.TypeEnd, Ts: time.Now().UnixMilli()})
}

// ReadMessages prints server frames until the connection closes. Output goes
// through the readline writer so the prompt is redrawn.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var base ws.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}

		switch base.Type {
		case ws.TypeReply:
			var r ws.ReplyMessage
			_ = json.Unmarshal(data, &r)
			fmt.Fprintf(c.out, "assistant [%s]: %s\n", r.Intent, r.Message)
		case ws.TypeEnded:
			fmt.Fprintf(c.out, "conversation %s ended\n", base.SessionID)
		case ws.TypeError:
			var e ws.ErrorMessage
			_ = json.Unmarshal(data, &e)
			fmt.Fprintf(c.out, "error %s: %s\n", e.Code, e.Message)
		default:
			fmt.Fprintf(c.out, "[%s] %s\n", base.Type, string(data))
		}
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket server address")
	userID := flag.String("user", "cli-user", "User ID")
	sessionID := flag.String("session", "", "Resume an existing session")
	history := flag.String("history", "", "Path of the input history file")
	flag.Parse()

	log.SetFlags(log.Ltime)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		log.Fatalf("Failed to init terminal: %v", err)
	}
	defer rl.Close()
	log.SetOutput(rl.Stderr())

	fmt.Fprintf(rl.Stdout(), "Connecting to %s...\n", *addr)

	client, err := NewClient(*addr, rl.Stdout())
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.SendHello(*userID, *sessionID); err != nil {
		log.Fatalf("Hello failed: %v", err)
	}

	if client.sessionID != "" {
		fmt.Fprintf(rl.Stdout(), "Resuming session %s\n", client.sessionID)
	}
	fmt.Fprintln(rl.Stdout(), "Connected. Type a message and press Enter.")
	fmt.Fprintln(rl.Stdout(), "Commands: /end to finish the conversation, /quit to exit")

	go client.ReadMessages()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			fmt.Fprintln(rl.Stdout(), "Bye!")
			return
		}
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(rl.Stdout(), "Bye!")
			return
		case "/end":
			err = client.SendEnd()
		default:
			err = client.SendMessage(input)
		}
		if err != nil {
			log.Printf("Send error: %v", err)
		}
	}
}
