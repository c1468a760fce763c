package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the shared records in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ Records = (*PGStore)(nil)

func NewPG(dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &PGStore{Pool: pool}, nil
}

func (s *PGStore) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *PGStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *PGStore) Disabled() bool { return false }

const arenaColumns = `id, server_name, game_type, room_id, min_players, max_players, display_item, created_at, updated_at`

func (s *PGStore) UpsertArena(ctx context.Context, a Arena) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO arenas (id, server_name, game_type, room_id, min_players, max_players, display_item)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  server_name = EXCLUDED.server_name,
  game_type = EXCLUDED.game_type,
  room_id = EXCLUDED.room_id,
  min_players = EXCLUDED.min_players,
  max_players = EXCLUDED.max_players,
  display_item = EXCLUDED.display_item,
  updated_at = now()`,
		a.ID, a.ServerName, a.GameType, textParam(a.RoomID), a.MinPlayers, a.MaxPlayers, a.DisplayItem)
	return err
}

func (s *PGStore) GetArena(ctx context.Context, id string) (*Arena, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE id = $1`, id)
	a, err := scanArena(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (s *PGStore) GetArenaByRoom(ctx context.Context, roomID string) (*Arena, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE room_id = $1 ORDER BY created_at, id LIMIT 1`, roomID)
	a, err := scanArena(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (s *PGStore) ListArenasByGameType(ctx context.Context, gameType string) ([]Arena, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE game_type = $1 ORDER BY created_at, id`, gameType)
	if err != nil {
		return nil, err
	}
	return collectArenas(rows)
}

func (s *PGStore) ListArenasByServer(ctx context.Context, serverName string) ([]Arena, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE server_name = $1 ORDER BY created_at, id`, serverName)
	if err != nil {
		return nil, err
	}
	return collectArenas(rows)
}

func (s *PGStore) DeleteArena(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM arenas WHERE id = $1`, id)
	return err
}

func scanArena(row pgx.Row) (Arena, error) {
	var (
		a         Arena
		roomID    pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&a.ID, &a.ServerName, &a.GameType, &roomID, &a.MinPlayers, &a.MaxPlayers, &a.DisplayItem, &createdAt, &updatedAt); err != nil {
		return Arena{}, err
	}
	a.RoomID = textVal(roomID)
	a.CreatedAt = timeVal(createdAt)
	a.UpdatedAt = timeVal(updatedAt)
	return a, nil
}

func collectArenas(rows pgx.Rows) ([]Arena, error) {
	defer rows.Close()
	out := []Arena{}
	for rows.Next() {
		a, err := scanArena(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const roomColumns = `id, owner_id, player_ids, game_type, is_private, created_at, updated_at`

func (s *PGStore) UpsertRoom(ctx context.Context, r Room) error {
	players := r.PlayerIDs
	if players == nil {
		players = []string{}
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO game_rooms (id, owner_id, player_ids, game_type, is_private)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  owner_id = EXCLUDED.owner_id,
  player_ids = EXCLUDED.player_ids,
  game_type = EXCLUDED.game_type,
  is_private = EXCLUDED.is_private,
  updated_at = now()`,
		r.ID, r.OwnerID, players, r.GameType, r.Private)
	return err
}

func (s *PGStore) GetRoom(ctx context.Context, id string) (*Room, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE id = $1`, id)
	r, err := scanRoom(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &r, nil
}

func (s *PGStore) GetRoomByOwner(ctx context.Context, ownerID string) (*Room, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE owner_id = $1 ORDER BY created_at, id LIMIT 1`, ownerID)
	r, err := scanRoom(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &r, nil
}

func (s *PGStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+roomColumns+` FROM game_rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM game_rooms WHERE id = $1`, id)
	return err
}

func scanRoom(row pgx.Row) (Room, error) {
	var (
		r         Room
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.PlayerIDs, &r.GameType, &r.Private, &createdAt, &updatedAt); err != nil {
		return Room{}, err
	}
	if r.PlayerIDs == nil {
		r.PlayerIDs = []string{}
	}
	r.CreatedAt = timeVal(createdAt)
	r.UpdatedAt = timeVal(updatedAt)
	return r, nil
}

const inviteColumns = `id, room_id, player_id, created_at`

func (s *PGStore) CreateInvite(ctx context.Context, inv Invite) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO game_invites (id, room_id, player_id) VALUES ($1, $2, $3)`,
		inv.ID, inv.RoomID, inv.PlayerID)
	return err
}

func (s *PGStore) GetInvite(ctx context.Context, id string) (*Invite, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE id = $1`, id)
	inv, err := scanInvite(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &inv, nil
}

func (s *PGStore) FindInvite(ctx context.Context, roomID, playerID string) (*Invite, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE room_id = $1 AND player_id = $2 ORDER BY created_at, id LIMIT 1`, roomID, playerID)
	inv, err := scanInvite(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &inv, nil
}

func (s *PGStore) ListInvitesByPlayer(ctx context.Context, playerID string) ([]Invite, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE player_id = $1 ORDER BY created_at, id`, playerID)
	if err != nil {
		return nil, err
	}
	return collectInvites(rows)
}

func (s *PGStore) ListInvitesByRoom(ctx context.Context, roomID string) ([]Invite, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE room_id = $1 ORDER BY created_at, id`, roomID)
	if err != nil {
		return nil, err
	}
	return collectInvites(rows)
}

func (s *PGStore) DeleteInvite(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM game_invites WHERE id = $1`, id)
	return err
}

func (s *PGStore) DeleteInvitesByRoom(ctx context.Context, roomID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM game_invites WHERE room_id = $1`, roomID)
	return err
}

func scanInvite(row pgx.Row) (Invite, error) {
	var (
		inv       Invite
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&inv.ID, &inv.RoomID, &inv.PlayerID, &createdAt); err != nil {
		return Invite{}, err
	}
	inv.CreatedAt = timeVal(createdAt)
	return inv, nil
}

func collectInvites(rows pgx.Rows) ([]Invite, error) {
	defer rows.Close()
	out := []Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

const userColumns = `id, name, paws, created_at, updated_at`

func (s *PGStore) UpsertUser(ctx context.Context, u User) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO users (id, name, paws)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  updated_at = now()`,
		u.ID, u.Name, u.Paws)
	return err
}

func (s *PGStore) GetUser(ctx context.Context, id string) (*User, error) {
	var (
		u         User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Paws, &createdAt, &updatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	u.CreatedAt = timeVal(createdAt)
	u.UpdatedAt = timeVal(updatedAt)
	return &u, nil
}

func (s *PGStore) SetPaws(ctx context.Context, id string, amount int64) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET paws = $2, updated_at = now() WHERE id = $1`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AddPaws(ctx context.Context, id string, delta int64) (int64, error) {
	var paws int64
	err := s.Pool.QueryRow(ctx, `UPDATE users SET paws = paws + $2, updated_at = now() WHERE id = $1 RETURNING paws`, id, delta).Scan(&paws)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return paws, nil
}
