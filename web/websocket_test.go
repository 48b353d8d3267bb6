package web

import (
	"sync"
	"testing"
)

func newTestClient() *Client {
	return &Client{
		send:    make(chan []byte, 256),
		types:   make(map[string]bool),
		gameIDs: make(map[string]bool),
	}
}

func TestShouldReceiveNoFilters(t *testing.T) {
	client := newTestClient()

	if !client.shouldReceive(&WSMessage{Type: "populate_progress", GameID: "g1"}) {
		t.Error("Expected client without filters to receive all messages")
	}
}

func TestShouldReceiveTypeFilter(t *testing.T) {
	client := newTestClient()
	client.handleMessage([]byte(`{"type":"subscribe","types":["verify_progress"]}`))

	if client.shouldReceive(&WSMessage{Type: "populate_progress", GameID: "g1"}) {
		t.Error("Expected filtered type to be rejected")
	}
	if !client.shouldReceive(&WSMessage{Type: "verify_progress", GameID: "g1"}) {
		t.Error("Expected subscribed type to be accepted")
	}
}

func TestShouldReceiveGameFilter(t *testing.T) {
	client := newTestClient()
	client.handleMessage([]byte(`{"type":"subscribe","game_ids":["g1"]}`))

	if !client.shouldReceive(&WSMessage{Type: "populate_progress", GameID: "g1"}) {
		t.Error("Expected subscribed game to be accepted")
	}
	if client.shouldReceive(&WSMessage{Type: "populate_progress", GameID: "g2"}) {
		t.Error("Expected other game to be rejected")
	}
	if client.shouldReceive(&WSMessage{Type: "populate_progress"}) {
		t.Error("Expected message without game id to be rejected under game filter")
	}
}

func TestUnsubscribeClearsFilters(t *testing.T) {
	client := newTestClient()
	client.handleMessage([]byte(`{"type":"subscribe","types":["verify_progress"]}`))
	client.handleMessage([]byte(`{"type":"unsubscribe"}`))

	if !client.shouldReceive(&WSMessage{Type: "populate_progress"}) {
		t.Error("Expected unsubscribed client to receive all messages again")
	}
}

// 过滤器由 readPump 写、Hub.Run 读，在 -race 下并发读写必须安全
func TestFilterUpdateConcurrentWithReceive(t *testing.T) {
	client := newTestClient()
	msg := &WSMessage{Type: "populate_progress", GameID: "g1"}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			client.handleMessage([]byte(`{"type":"subscribe","types":["verify_progress"],"game_ids":["g1"]}`))
			client.handleMessage([]byte(`{"type":"unsubscribe"}`))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			client.shouldReceive(msg)
		}
	}()

	wg.Wait()
}
