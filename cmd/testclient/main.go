package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	serverAddr = flag.String("addr", "http://localhost:8080", "Yatra server base URL")
	message    = flag.String("message", "", "Send a single message instead of starting a REPL")
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	client := &http.Client{Timeout: 60 * time.Second}

	if *message != "" {
		reply, _, err := send(client, *serverAddr, *message, "")
		if err != nil {
			logger.WithError(err).Fatal("Chat request failed")
		}
		fmt.Println(reply)
		return
	}

	greeting, err := greet(client, *serverAddr)
	if err != nil {
		logger.WithError(err).Fatal("Failed to reach server")
	}
	fmt.Println(greeting)

	sessionID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}

		reply, sid, err := send(client, *serverAddr, line, sessionID)
		if err != nil {
			logger.WithError(err).Error("Chat request failed")
			continue
		}
		sessionID = sid
		fmt.Println(reply)
	}
}

func greet(client *http.Client, addr string) (string, error) {
	resp, err := client.Get(addr + "/greet")
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return payload.Message, nil
}

func send(client *http.Client, addr, message, sessionID string) (string, string, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(chatRequest{Message: message, SessionID: sessionID}); err != nil {
		return "", "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := client.Post(addr+"/chat", "application/json", buf)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, payload.Response)
	}

	return payload.Response, payload.SessionID, nil
}
