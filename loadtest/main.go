package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50 // Pairs of users chatting with each other
	MsgCount  = 20 // Messages per user
)

type authResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

type roomResponse struct {
	ChatRoomID int64 `json:"chat_room_id"`
}

func main() {
	log.Printf("starting load test: %d users, %d messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// Pairs: user 0a talks to user 0b, 1a to 1b, ...
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("load test complete")
}

func runPair(pairID int) {
	emailA := fmt.Sprintf("load_%d_a@test.local", pairID)
	emailB := fmt.Sprintf("load_%d_b@test.local", pairID)
	pass := "password123"

	authA := authenticate(emailA, pass)
	authB := authenticate(emailB, pass)
	if authA == nil || authB == nil {
		return
	}

	roomID := createRoom(authA.Token, authB.UserID)
	if roomID == 0 {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamChat(&wsWg, authA, roomID, authB.UserID)
	go spamChat(&wsWg, authB, roomID, authA.UserID)
	wsWg.Wait()
}

// authenticate registers (ignoring duplicates on re-runs) and logs in.
func authenticate(email, password string) *authResponse {
	postJSON("/register", map[string]string{
		"name":     email,
		"email":    email,
		"password": password,
	})

	resp, err := postJSON("/login", map[string]string{"email": email, "password": password})
	if err != nil {
		log.Printf("login failed [%s]: %v", email, err)
		return nil
	}
	defer resp.Body.Close()

	var data authResponse
	json.NewDecoder(resp.Body).Decode(&data)
	if data.Token == "" {
		log.Printf("login returned no token [%s]", email)
		return nil
	}
	return &data
}

func createRoom(token string, participantID int64) int64 {
	url := fmt.Sprintf("%s/api/chat/rooms/%d", BaseURL, participantID)
	req, _ := http.NewRequest("POST", url, nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != 200 {
		log.Printf("create room failed: %v", err)
		return 0
	}
	defer resp.Body.Close()

	var data roomResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.ChatRoomID
}

func spamChat(wg *sync.WaitGroup, auth *authResponse, roomID, receiverID int64) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", WSURL, auth.Token), nil)
	if err != nil {
		log.Printf("ws connect failed [%d]: %v", auth.UserID, err)
		return
	}
	defer conn.Close()

	// Drain inbound events so the server's send buffer never fills.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		frame := map[string]any{
			"type": "send-message",
			"data": map[string]any{
				"chat_room_id":      roomID,
				"receiver_id":       receiverID,
				"content":           fmt.Sprintf("load test message %d from %d", i, auth.UserID),
				"client_message_id": fmt.Sprintf("%d-%d", auth.UserID, i),
			},
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("send failed [%d]: %v", auth.UserID, err)
			break
		}
		// Simulate a real network instead of hammering localhost.
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("user %d finished sending %d messages", auth.UserID, MsgCount)
}

func postJSON(endpoint string, data any) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
