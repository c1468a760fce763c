package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore keeps the shared records in a local SQLite file. It only makes
// sense when every node of the fleet runs on the same host.
type SQLiteStore struct {
	db *sql.DB
}

var _ Records = (*SQLiteStore)(nil)

func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Disabled() bool { return false }

func sqlNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *SQLiteStore) UpsertArena(ctx context.Context, a Arena) error {
	now := toMillis(time.Now())
	var roomID any
	if a.RoomID != "" {
		roomID = a.RoomID
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO arenas (id, server_name, game_type, room_id, min_players, max_players, display_item, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  server_name = excluded.server_name,
  game_type = excluded.game_type,
  room_id = excluded.room_id,
  min_players = excluded.min_players,
  max_players = excluded.max_players,
  display_item = excluded.display_item,
  updated_at = excluded.updated_at`,
		a.ID, a.ServerName, a.GameType, roomID, a.MinPlayers, a.MaxPlayers, a.DisplayItem, now, now)
	return err
}

func (s *SQLiteStore) GetArena(ctx context.Context, id string) (*Arena, error) {
	a, err := sqliteScanArena(s.db.QueryRowContext(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE id = ?`, id))
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &a, nil
}

func (s *SQLiteStore) GetArenaByRoom(ctx context.Context, roomID string) (*Arena, error) {
	a, err := sqliteScanArena(s.db.QueryRowContext(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE room_id = ? ORDER BY created_at, id LIMIT 1`, roomID))
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &a, nil
}

func (s *SQLiteStore) ListArenasByGameType(ctx context.Context, gameType string) ([]Arena, error) {
	return s.queryArenas(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE game_type = ? ORDER BY created_at, id`, gameType)
}

func (s *SQLiteStore) ListArenasByServer(ctx context.Context, serverName string) ([]Arena, error) {
	return s.queryArenas(ctx, `SELECT `+arenaColumns+` FROM arenas WHERE server_name = ? ORDER BY created_at, id`, serverName)
}

func (s *SQLiteStore) DeleteArena(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM arenas WHERE id = ?`, id)
	return err
}

type sqlRow interface {
	Scan(dest ...any) error
}

func sqliteScanArena(row sqlRow) (Arena, error) {
	var (
		a         Arena
		roomID    sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.ServerName, &a.GameType, &roomID, &a.MinPlayers, &a.MaxPlayers, &a.DisplayItem, &createdAt, &updatedAt); err != nil {
		return Arena{}, err
	}
	a.RoomID = roomID.String
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (s *SQLiteStore) queryArenas(ctx context.Context, query string, args ...any) ([]Arena, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Arena{}
	for rows.Next() {
		a, err := sqliteScanArena(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertRoom(ctx context.Context, r Room) error {
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO game_rooms (id, owner_id, player_ids, game_type, is_private, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  owner_id = excluded.owner_id,
  player_ids = excluded.player_ids,
  game_type = excluded.game_type,
  is_private = excluded.is_private,
  updated_at = excluded.updated_at`,
		r.ID, r.OwnerID, joinIDs(r.PlayerIDs), r.GameType, r.Private, now, now)
	return err
}

func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*Room, error) {
	r, err := sqliteScanRoom(s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE id = ?`, id))
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &r, nil
}

func (s *SQLiteStore) GetRoomByOwner(ctx context.Context, ownerID string) (*Room, error) {
	r, err := sqliteScanRoom(s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE owner_id = ? ORDER BY created_at, id LIMIT 1`, ownerID))
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &r, nil
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM game_rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Room{}
	for rows.Next() {
		r, err := sqliteScanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_rooms WHERE id = ?`, id)
	return err
}

func sqliteScanRoom(row sqlRow) (Room, error) {
	var (
		r         Room
		players   string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &players, &r.GameType, &r.Private, &createdAt, &updatedAt); err != nil {
		return Room{}, err
	}
	r.PlayerIDs = splitIDs(players)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

func (s *SQLiteStore) CreateInvite(ctx context.Context, inv Invite) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO game_invites (id, room_id, player_id, created_at) VALUES (?, ?, ?, ?)`,
		inv.ID, inv.RoomID, inv.PlayerID, toMillis(time.Now()))
	return err
}

func (s *SQLiteStore) GetInvite(ctx context.Context, id string) (*Invite, error) {
	inv, err := sqliteScanInvite(s.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE id = ?`, id))
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &inv, nil
}

func (s *SQLiteStore) FindInvite(ctx context.Context, roomID, playerID string) (*Invite, error) {
	inv, err := sqliteScanInvite(s.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE room_id = ? AND player_id = ? ORDER BY created_at, id LIMIT 1`, roomID, playerID))
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &inv, nil
}

func (s *SQLiteStore) ListInvitesByPlayer(ctx context.Context, playerID string) ([]Invite, error) {
	return s.queryInvites(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE player_id = ? ORDER BY created_at, id`, playerID)
}

func (s *SQLiteStore) ListInvitesByRoom(ctx context.Context, roomID string) ([]Invite, error) {
	return s.queryInvites(ctx, `SELECT `+inviteColumns+` FROM game_invites WHERE room_id = ? ORDER BY created_at, id`, roomID)
}

func (s *SQLiteStore) DeleteInvite(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_invites WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) DeleteInvitesByRoom(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_invites WHERE room_id = ?`, roomID)
	return err
}

func sqliteScanInvite(row sqlRow) (Invite, error) {
	var (
		inv       Invite
		createdAt int64
	)
	if err := row.Scan(&inv.ID, &inv.RoomID, &inv.PlayerID, &createdAt); err != nil {
		return Invite{}, err
	}
	inv.CreatedAt = fromMillis(createdAt)
	return inv, nil
}

func (s *SQLiteStore) queryInvites(ctx context.Context, query string, args ...any) ([]Invite, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Invite{}
	for rows.Next() {
		inv, err := sqliteScanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u User) error {
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, name, paws, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  name = excluded.name,
  updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Paws, now, now)
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var (
		u         User
		createdAt int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Paws, &createdAt, &updatedAt)
	if err != nil {
		return nil, sqlNotFound(err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

func (s *SQLiteStore) SetPaws(ctx context.Context, id string, amount int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET paws = ?, updated_at = ? WHERE id = ?`, amount, toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddPaws(ctx context.Context, id string, delta int64) (int64, error) {
	var paws int64
	err := s.db.QueryRowContext(ctx, `UPDATE users SET paws = paws + ?, updated_at = ? WHERE id = ? RETURNING paws`, delta, toMillis(time.Now()), id).Scan(&paws)
	if err != nil {
		return 0, sqlNotFound(err)
	}
	return paws, nil
}
