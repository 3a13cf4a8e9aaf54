package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type smokeOptions struct {
	server  string
	topicID string
	answer  string
	timeout time.Duration
}

func newSmokeCommand() *cobra.Command {
	opts := &smokeOptions{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a typed interview against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return smoke(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.topicID, "topic", "arrays", "topic id")
	cmd.Flags().StringVar(&opts.answer, "answer", "It depends on the input size, for example a loop over n items is O(n).", "answer submitted for every question")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline")
	return cmd
}

type smokeTokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func smoke(out io.Writer, opts *smokeOptions) error {
	base, err := url.Parse(opts.server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Step 1: Get authentication token. Servers without JWT_SECRET accept
	// anonymous candidates.
	fmt.Fprintln(out, "Step 1: Getting authentication token...")
	reqBody, _ := json.Marshal(map[string]string{"name": "Smoke Test", "email": "smoke@example.com"})
	resp, err := http.Post(base.JoinPath("/api/v1/auth/token").String(), "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to request token: %w", err)
	}
	var token smokeTokenResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
			resp.Body.Close()
			return fmt.Errorf("failed to decode token response: %w", err)
		}
		fmt.Fprintf(out, "✓ Authenticated as %s\n", token.UserID)
	} else {
		fmt.Fprintf(out, "✓ Continuing anonymously (status %d)\n", resp.StatusCode)
	}
	resp.Body.Close()

	// Step 2: Connect to WebSocket
	fmt.Fprintln(out, "Step 2: Connecting to WebSocket...")
	wsURL := *base
	wsURL.Scheme = strings.Replace(base.Scheme, "http", "ws", 1)
	wsURL.Path = "/ws"
	header := http.Header{}
	if token.Token != "" {
		header.Set("Authorization", "Bearer "+token.Token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("WebSocket connection failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("WebSocket connection failed: %w", err)
	}
	defer conn.Close()
	fmt.Fprintln(out, "✓ WebSocket connection successful!")

	send := func(msg map[string]interface{}) error {
		msg["timestamp"] = time.Now().Format(time.RFC3339)
		return conn.WriteJSON(msg)
	}

	// Step 3: Introduce the candidate and start
	fmt.Fprintln(out, "Step 3: Starting interview...")
	for _, msg := range []map[string]interface{}{
		{"type": "ping", "data": "smoke"},
		{"type": "candidate", "name": "Smoke Test", "email": "smoke@example.com"},
		{"type": "select_topic", "topic_id": opts.topicID},
		{"type": "permissions", "camera": true, "microphone": true},
		{"type": "start", "text_only": true},
	} {
		if err := send(msg); err != nil {
			return fmt.Errorf("failed to send %v: %w", msg["type"], err)
		}
	}

	// Step 4: Answer every question until the report is ready
	deadline := time.Now().Add(opts.timeout)
	answered := -1
	for {
		conn.SetReadDeadline(deadline)
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}

		switch msg["type"] {
		case "pong":
			fmt.Fprintln(out, "✓ Received pong")
		case "error":
			return fmt.Errorf("server error %v: %v", msg["error_code"], msg["details"])
		case "speaking_start":
			fmt.Fprintf(out, "Interviewer: %v\n", msg["text"])
		case "state":
			index, _ := msg["current_index"].(float64)
			if msg["status"] == "awaiting_response" && int(index) > answered {
				answered = int(index)
				fmt.Fprintf(out, "Candidate: %s\n", opts.answer)
				if err := send(map[string]interface{}{"type": "answer_text", "text": opts.answer}); err != nil {
					return fmt.Errorf("failed to send answer: %w", err)
				}
			}
		case "report_ready":
			fmt.Fprintf(out, "✓ Report %v ready with score %v\n", msg["report_id"], msg["score"])
			reportURL, _ := msg["url"].(string)
			return fetchReportMeta(out, base, reportURL, token.Token)
		}
	}
}

func fetchReportMeta(out io.Writer, base *url.URL, reportURL, token string) error {
	req, err := http.NewRequest(http.MethodGet, base.JoinPath(reportURL, "meta").String(), nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report lookup failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Report metadata: %s\n", body)
	fmt.Fprintln(out, "✓ Smoke test passed!")
	return nil
}
