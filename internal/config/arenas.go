package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ArenaSpec is one arena a server hosts from startup, written in ARENAS as
// id:GAME_TYPE:min:max and separated by semicolons.
type ArenaSpec struct {
	ID         string
	GameType   string
	MinPlayers int
	MaxPlayers int
}

func parseArenaSpecs(raw []string) ([]ArenaSpec, error) {
	out := make([]ArenaSpec, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("arena %q: want id:GAME_TYPE:min:max", item)
		}
		minP, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("arena %q min players: %w", item, err)
		}
		maxP, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("arena %q max players: %w", item, err)
		}
		if minP < 1 || maxP < minP {
			return nil, fmt.Errorf("arena %q: invalid capacity %d-%d", item, minP, maxP)
		}
		out = append(out, ArenaSpec{ID: parts[0], GameType: parts[1], MinPlayers: minP, MaxPlayers: maxP})
	}
	return out, nil
}
