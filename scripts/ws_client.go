// Package main runs a demo WebSocket client for plan events.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

const (
	storeID  = "s_demo"
	planDate = "2024-09-05"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s/v1/stores/%s", port, storeID)

	mustCall(http.MethodPut, base+"/config", `{"pickers":["P1","P2"],"pickingStartTime":"09:00","pickingEndTime":"11:00"}`)
	mustCall(http.MethodPost, base+"/orders?date="+planDate, `[
		{"orderId":"order-1","orderValue":"0.00","pickingTime":"PT15M","completeBy":"09:15"},
		{"orderId":"order-2","orderValue":"0.00","pickingTime":"PT20M","completeBy":"09:30"},
		{"orderId":"order-5","orderValue":"0.00","pickingTime":"PT60M","completeBy":"10:15"}
	]`)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/stores/" + storeID + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), headers())
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s", msg)
		}
	}()

	time.Sleep(500 * time.Millisecond)
	mustCall(http.MethodPost, base+"/plans", `{"planDate":"`+planDate+`"}`)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}

func headers() http.Header {
	h := http.Header{}
	h.Set("X-Store-Id", storeID)
	h.Set("X-Role", "planner")
	return h
}

func mustCall(method, target, body string) {
	req, err := http.NewRequest(method, target, bytes.NewReader([]byte(body)))
	if err != nil {
		log.Fatal(err)
	}
	req.Header = headers()
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("%s %s: %d %s", method, target, resp.StatusCode, out)
	}
	log.Printf("%s %s -> %d %s", method, target, resp.StatusCode, bytes.TrimSpace(out))
}
