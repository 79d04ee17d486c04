package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type CharacterRow struct {
	ID          int32
	AccountName string
	Name        string
	ClassType   int16
	Sex         int16
	ClassID     int32
	Str         int16
	Dex         int16
	Con         int16
	Wis         int16
	Cha         int16
	Intel       int16
	Level       int16
	Exp         int32
	HP          int16
	MP          int16
	MaxHP       int16
	MaxMP       int16
	AC          int16
	MR          int16
	X           int32
	Y           int32
	MapID       int16
	Heading     int16
	Lawful      int32
	Title       string
	AccessLevel int16
	DeletedAt   *time.Time
}

const characterColumns = `id, account_name, name, class_type, sex, class_id,
	        str, dex, con, wis, cha, intel,
	        level, exp, hp, mp, max_hp, max_mp, ac, mr,
	        x, y, map_id, heading,
	        lawful, title, access_level, deleted_at`

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func scanCharacter(row pgx.Row, c *CharacterRow) error {
	return row.Scan(
		&c.ID, &c.AccountName, &c.Name, &c.ClassType, &c.Sex, &c.ClassID,
		&c.Str, &c.Dex, &c.Con, &c.Wis, &c.Cha, &c.Intel,
		&c.Level, &c.Exp, &c.HP, &c.MP, &c.MaxHP, &c.MaxMP, &c.AC, &c.MR,
		&c.X, &c.Y, &c.MapID, &c.Heading,
		&c.Lawful, &c.Title, &c.AccessLevel, &c.DeletedAt,
	)
}

// LoadByAccount returns the account's characters, oldest first, skipping
// those pending deletion.
func (r *CharacterRepo) LoadByAccount(ctx context.Context, accountName string) ([]CharacterRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+characterColumns+`
		 FROM characters
		 WHERE account_name = $1 AND deleted_at IS NULL
		 ORDER BY id`, accountName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CharacterRow
	for rows.Next() {
		var c CharacterRow
		if err := scanCharacter(rows, &c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// LoadByName returns one character, or (nil, nil) when absent.
func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := scanCharacter(r.db.Pool.QueryRow(ctx,
		`SELECT `+characterColumns+`
		 FROM characters
		 WHERE name = $1 AND deleted_at IS NULL`, name,
	), c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO characters (
			account_name, name, class_type, sex, class_id,
			str, dex, con, wis, cha, intel,
			level, exp, hp, mp, max_hp, max_mp, ac, mr,
			x, y, map_id, heading,
			lawful, title, access_level
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,
			$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,
			$24,$25,$26
		) RETURNING id`,
		c.AccountName, c.Name, c.ClassType, c.Sex, c.ClassID,
		c.Str, c.Dex, c.Con, c.Wis, c.Cha, c.Intel,
		c.Level, c.Exp, c.HP, c.MP, c.MaxHP, c.MaxMP, c.AC, c.MR,
		c.X, c.Y, c.MapID, c.Heading,
		c.Lawful, c.Title, c.AccessLevel,
	).Scan(&c.ID)
}

func (r *CharacterRepo) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name = $1)`, name,
	).Scan(&exists)
	return exists, err
}

func (r *CharacterRepo) CountByAccount(ctx context.Context, accountName string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM characters WHERE account_name = $1 AND deleted_at IS NULL`,
		accountName,
	).Scan(&count)
	return count, err
}

// SoftDelete schedules a character for deletion seven days out, matching
// the client's delete-confirmation flow.
func (r *CharacterRepo) SoftDelete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET deleted_at = NOW() + INTERVAL '7 days' WHERE name = $1 AND deleted_at IS NULL`,
		name,
	)
	return err
}

func (r *CharacterRepo) HardDelete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM characters WHERE name = $1`, name,
	)
	return err
}

// CleanExpiredDeletions removes characters whose deletion grace period
// has lapsed. Called when the account opens its character list.
func (r *CharacterRepo) CleanExpiredDeletions(ctx context.Context, accountName string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM characters WHERE account_name = $1 AND deleted_at IS NOT NULL AND deleted_at <= NOW()`,
		accountName,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SavePosition updates only the character's position.
func (r *CharacterRepo) SavePosition(ctx context.Context, name string, x, y int32, mapID, heading int16) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET x = $1, y = $2, map_id = $3, heading = $4 WHERE name = $5`,
		x, y, mapID, heading, name,
	)
	return err
}

// PositionSave is one row of a periodic position sweep.
type PositionSave struct {
	Name    string
	X, Y    int32
	MapID   int16
	Heading int16
}

// SaveAllPositions writes a whole sweep in one transaction, so a failure
// mid-sweep leaves no partially saved world.
func (r *CharacterRepo) SaveAllPositions(ctx context.Context, rows []PositionSave) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("position sweep begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range rows {
		if _, err := tx.Exec(ctx,
			`UPDATE characters SET x = $1, y = $2, map_id = $3, heading = $4 WHERE name = $5`,
			p.X, p.Y, p.MapID, p.Heading, p.Name,
		); err != nil {
			return fmt.Errorf("position sweep update %s: %w", p.Name, err)
		}
	}
	return tx.Commit(ctx)
}

// SaveCharacter updates all mutable character fields.
func (r *CharacterRepo) SaveCharacter(ctx context.Context, c *CharacterRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET
			level = $1, exp = $2, hp = $3, mp = $4, max_hp = $5, max_mp = $6,
			x = $7, y = $8, map_id = $9, heading = $10,
			lawful = $11, str = $12, dex = $13, con = $14, wis = $15, cha = $16, intel = $17,
			ac = $18, mr = $19, title = $20
		WHERE name = $21`,
		c.Level, c.Exp, c.HP, c.MP, c.MaxHP, c.MaxMP,
		c.X, c.Y, c.MapID, c.Heading,
		c.Lawful, c.Str, c.Dex, c.Con, c.Wis, c.Cha, c.Intel,
		c.AC, c.MR, c.Title,
		c.Name,
	)
	return err
}
