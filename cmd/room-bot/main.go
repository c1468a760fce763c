package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Room is the part of the room view the bot reads.
type Room struct {
	ID      string   `json:"id"`
	OwnerID string   `json:"owner_id"`
	Players []string `json:"players"`
	Arena   *struct {
		ID string `json:"id"`
	} `json:"arena"`
}

type Step struct {
	Action string
	Player string
}

type client struct {
	base     string
	adminKey string
	http     *http.Client
}

func main() {
	c := &client{
		base:     getenv("API_URL", "http://localhost:8080/api"),
		adminKey: getenv("ADMIN_API_KEY", ""),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	gameType := getenv("GAME_TYPE", "SPLEEF")
	players, _ := strconv.Atoi(getenv("BOT_PLAYERS", "4"))
	if players < 1 {
		players = 1
	}
	pool := make([]string, players)
	for i := range pool {
		pool[i] = fmt.Sprintf("bot-%d", i+1)
		if err := c.call(http.MethodPut, "/players/"+pool[i]+"/connection", map[string]any{}, nil); err != nil {
			log.Fatal(err)
		}
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var room *Room
	for {
		step := decide(rnd, room, pool)
		next, err := c.apply(step, room, gameType)
		if err != nil {
			log.Printf("%s %s: %v", step.Action, step.Player, err)
			next = nil
		}
		room = next
		time.Sleep(500 * time.Millisecond)
	}
}

// decide picks the next step: open a room when there is none, fill it while
// players are free, then launch or shuffle members.
func decide(rnd *rand.Rand, room *Room, pool []string) Step {
	if room == nil {
		return Step{Action: "create", Player: pool[rnd.Intn(len(pool))]}
	}
	if room.Arena != nil {
		return Step{Action: "disband"}
	}
	var free []string
	for _, p := range pool {
		if !contains(room.Players, p) {
			free = append(free, p)
		}
	}
	switch r := rnd.Intn(4); {
	case r < 2 && len(free) > 0:
		return Step{Action: "join", Player: free[rnd.Intn(len(free))]}
	case r == 2 && len(room.Players) > 1:
		return Step{Action: "leave", Player: room.Players[rnd.Intn(len(room.Players))]}
	default:
		return Step{Action: "launch"}
	}
}

func (c *client) apply(step Step, room *Room, gameType string) (*Room, error) {
	var out Room
	switch step.Action {
	case "create":
		err := c.call(http.MethodPost, "/rooms", map[string]any{"owner_id": step.Player, "game_type": gameType}, &out)
		return &out, err
	case "join", "leave":
		err := c.call(http.MethodPost, "/rooms/"+room.ID+"/"+step.Action, map[string]any{"player_id": step.Player}, &out)
		return &out, err
	case "launch":
		if err := c.call(http.MethodPost, "/rooms/"+room.ID+"/launch", nil, nil); err != nil {
			return room, err
		}
		err := c.call(http.MethodGet, "/rooms/"+room.ID, nil, &out)
		return &out, err
	default:
		return nil, c.call(http.MethodDelete, "/rooms/"+room.ID, nil, nil)
	}
}

func (c *client) call(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.adminKey != "" {
		req.Header.Set("X-Admin-Key", c.adminKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
