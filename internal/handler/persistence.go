package handler

import (
	"context"

	"github.com/linworld/server/internal/persist"
	"github.com/linworld/server/internal/spatial"
	"github.com/linworld/server/internal/world"
)

// activeFromRow turns a persisted row into the session-owned runtime state.
func activeFromRow(c *persist.CharacterRow) *world.ActiveChar {
	return &world.ActiveChar{
		CharID:      c.ID,
		AccountName: c.AccountName,
		Name:        c.Name,
		Title:       c.Title,
		ClassID:     c.ClassID,
		ClassType:   c.ClassType,
		Level:       c.Level,
		Exp:         c.Exp,
		HP:          c.HP,
		MaxHP:       c.MaxHP,
		MP:          c.MP,
		MaxMP:       c.MaxMP,
		Str:         c.Str,
		Dex:         c.Dex,
		Con:         c.Con,
		Wis:         c.Wis,
		Intel:       c.Intel,
		Cha:         c.Cha,
		AC:          c.AC,
		MR:          c.MR,
		Lawful:      c.Lawful,
		Dead:        c.HP <= 0,
		Pos: spatial.Position{
			X:       c.X,
			Y:       c.Y,
			MapID:   c.MapID,
			Heading: byte(c.Heading),
		},
	}
}

// rowFromActive is the inverse: runtime state back into an update row. The
// identity columns (account, class, sex) never change in play and are left
// alone by the UPDATE.
func rowFromActive(c *world.ActiveChar) *persist.CharacterRow {
	return &persist.CharacterRow{
		ID:      c.CharID,
		Name:    c.Name,
		Title:   c.Title,
		Level:   c.Level,
		Exp:     c.Exp,
		HP:      c.HP,
		MaxHP:   c.MaxHP,
		MP:      c.MP,
		MaxMP:   c.MaxMP,
		Str:     c.Str,
		Dex:     c.Dex,
		Con:     c.Con,
		Wis:     c.Wis,
		Intel:   c.Intel,
		Cha:     c.Cha,
		AC:      c.AC,
		MR:      c.MR,
		Lawful:  c.Lawful,
		X:       c.Pos.X,
		Y:       c.Pos.Y,
		MapID:   c.Pos.MapID,
		Heading: int16(c.Pos.Heading),
	}
}

// saveActiveChar flushes the full runtime state to the database.
func saveActiveChar(ctx context.Context, deps *Deps, c *world.ActiveChar) error {
	return deps.Characters.SaveCharacter(ctx, rowFromActive(c))
}
