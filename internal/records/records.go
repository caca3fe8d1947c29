// Package records talks to the game server's database: whitelist rows,
// license bans and the player accounts behind them.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreationReason tags bans issued through the bot so in-game tooling can
// tell them apart from staff-menu bans.
const CreationReason = "DISCORD_BAN_COMMAND"

var (
	ErrAlreadyWhitelisted = errors.New("license already whitelisted")
	ErrUserNotFound       = errors.New("user not found")
)

// User is a player account as the game server stores it.
type User struct {
	LicenseIdentifier string
	DiscordID         string
	IsStaff           bool
	IsSeniorStaff     bool
	IsSuperAdmin      bool
	PlaytimeMinutes   int64
}

// Ban is one row of the ban table. Timestamps are unix seconds; an
// Expire of zero means the ban never lapses.
type Ban struct {
	BanHash           string
	Identifier        string
	Reason            string
	Timestamp         int64
	Expire            int64
	CreatorIdentifier string
	CreationReason    string
}

// NewBan builds a ban record with a fresh hash, stamped at now.
func NewBan(identifier, reason, creatorIdentifier string, expire int64, now time.Time) Ban {
	return Ban{
		BanHash:           uuid.NewString(),
		Identifier:        identifier,
		Reason:            reason,
		Timestamp:         now.Unix(),
		Expire:            expire,
		CreatorIdentifier: creatorIdentifier,
		CreationReason:    CreationReason,
	}
}

// Store implements the record operations backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects using the supplied connection string and verifies
// the connection before returning.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	s.pool.Close()
}

// AddLicense inserts a license into the whitelist. Inserting a license
// that is already present returns ErrAlreadyWhitelisted.
func (s *Store) AddLicense(ctx context.Context, license string) error {
	const insert = `INSERT INTO user_whitelist (license_identifier) VALUES ($1);`
	_, err := s.pool.Exec(ctx, insert, license)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyWhitelisted
	}
	return err
}

// RemoveLicense drops a license from the whitelist and reports whether
// a row was actually removed.
func (s *Store) RemoveLicense(ctx context.Context, license string) (bool, error) {
	const remove = `DELETE FROM user_whitelist WHERE license_identifier = $1;`
	tag, err := s.pool.Exec(ctx, remove, license)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// BanUser inserts a ban record.
func (s *Store) BanUser(ctx context.Context, ban Ban) error {
	const insert = `
INSERT INTO user_bans (
    ban_hash, identifier, reason, timestamp, expire,
    creator_identifier, creation_reason
) VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	_, err := s.pool.Exec(ctx, insert,
		ban.BanHash,
		ban.Identifier,
		ban.Reason,
		ban.Timestamp,
		ban.Expire,
		ban.CreatorIdentifier,
		ban.CreationReason,
	)
	return err
}

// UnbanUser removes every ban for the identifier and reports whether
// any row was deleted.
func (s *Store) UnbanUser(ctx context.Context, identifier string) (bool, error) {
	const remove = `DELETE FROM user_bans WHERE identifier = $1;`
	tag, err := s.pool.Exec(ctx, remove, identifier)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ActiveBan returns the identifier's ban that has not lapsed, or nil.
// A zero expire counts as permanent.
func (s *Store) ActiveBan(ctx context.Context, identifier string) (*Ban, error) {
	const query = `
SELECT ban_hash, identifier, reason, timestamp, expire,
       creator_identifier, creation_reason
  FROM user_bans
 WHERE identifier = $1 AND (expire > $2 OR expire = 0)
 LIMIT 1;
`
	row := s.pool.QueryRow(ctx, query, identifier, time.Now().Unix())
	var ban Ban
	err := row.Scan(&ban.BanHash, &ban.Identifier, &ban.Reason, &ban.Timestamp,
		&ban.Expire, &ban.CreatorIdentifier, &ban.CreationReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

// UserByDiscordID looks up the player account linked to a Discord id.
func (s *Store) UserByDiscordID(ctx context.Context, discordID string) (*User, error) {
	const query = `
SELECT license_identifier, discord_id,
       COALESCE(is_staff, FALSE),
       COALESCE(is_senior_staff, FALSE),
       COALESCE(is_superadmin, FALSE),
       COALESCE(playtime, 0)
  FROM users
 WHERE discord_id = $1
 LIMIT 1;
`
	row := s.pool.QueryRow(ctx, query, discordID)
	var user User
	err := row.Scan(&user.LicenseIdentifier, &user.DiscordID,
		&user.IsStaff, &user.IsSeniorStaff, &user.IsSuperAdmin, &user.PlaytimeMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// StaffFlag names one of the toggleable role columns.
type StaffFlag string

const (
	FlagStaff       StaffFlag = "is_staff"
	FlagSeniorStaff StaffFlag = "is_senior_staff"
	FlagSuperAdmin  StaffFlag = "is_superadmin"
)

// ToggleFlag flips a role column for the user and returns the new
// value. A missing user returns ErrUserNotFound.
func (s *Store) ToggleFlag(ctx context.Context, discordID string, flag StaffFlag) (bool, error) {
	var query string
	switch flag {
	case FlagStaff:
		query = `UPDATE users SET is_staff = NOT COALESCE(is_staff, FALSE) WHERE discord_id = $1 RETURNING is_staff;`
	case FlagSeniorStaff:
		query = `UPDATE users SET is_senior_staff = NOT COALESCE(is_senior_staff, FALSE) WHERE discord_id = $1 RETURNING is_senior_staff;`
	case FlagSuperAdmin:
		query = `UPDATE users SET is_superadmin = NOT COALESCE(is_superadmin, FALSE) WHERE discord_id = $1 RETURNING is_superadmin;`
	default:
		return false, errors.New("unknown staff flag")
	}

	var value bool
	err := s.pool.QueryRow(ctx, query, discordID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	return value, nil
}

// GrantAllRoles sets every role column for the user at once.
func (s *Store) GrantAllRoles(ctx context.Context, discordID string) error {
	const update = `
UPDATE users
   SET is_staff = TRUE, is_senior_staff = TRUE, is_superadmin = TRUE
 WHERE discord_id = $1;
`
	tag, err := s.pool.Exec(ctx, update, discordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Playtime returns the user's stored playtime in minutes.
func (s *Store) Playtime(ctx context.Context, discordID string) (int64, error) {
	user, err := s.UserByDiscordID(ctx, discordID)
	if err != nil {
		return 0, err
	}
	return user.PlaytimeMinutes, nil
}
