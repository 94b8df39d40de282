// Package main runs a demo WebSocket client for optimization run events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the run.completed event is not missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/stream"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	var ack wsMessage
	if err := c.ReadJSON(&ack); err != nil || ack.Type != "connection_ack" {
		log.Fatalf("no ack: %v %+v", err, ack)
	}
	sub, _ := json.Marshal(map[string]any{"events": []string{"run.completed"}})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: sub}); err != nil {
		log.Fatal(err)
	}

	// Trigger an optimization with a couple of demo points
	body := []byte(`{"tenantId":"t_demo",
		"points":[
			{"id":"d1","lat":25.271,"lng":55.308,"zone":"deira","priority":"high","expectedGallons":20},
			{"id":"d2","lat":25.265,"lng":55.305,"zone":"deira","priority":"medium","expectedGallons":15}],
		"vehicles":[{"id":1,"lat":25.2048,"lng":55.2708,"status":"active","homeZone":"deira"}]}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	log.Printf("optimize status: %s", resp.Status)

	deadline := time.Now().Add(10 * time.Second)
	_ = c.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case "next":
			log.Printf("event: %s", string(msg.Payload))
			_ = c.WriteJSON(wsMessage{Type: "complete", ID: msg.ID})
			return
		case "ping":
			_ = c.WriteJSON(wsMessage{Type: "pong"})
		}
	}
	log.Fatal("timed out waiting for run.completed")
}
