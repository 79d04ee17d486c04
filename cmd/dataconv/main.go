// dataconv converts L1J 3.80C Taiwan SQL dumps into the YAML data files
// the server loads at boot: templates.yaml, spawns.yaml, skills.yaml.
//
// Usage:
//
//	go run ./cmd/dataconv <command> [-sqldir path] [-outdir path] [-tick 200ms]
//
// Commands: templates, spawns, skills, all
//
// The dumps keep delays in milliseconds; -tick must match the server's
// tick_rate so move_delay and reuse_delay come out in the right unit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linworld/server/internal/data"
)

// ---------------------------------------------------------------------------
// SQL dump parsing
// ---------------------------------------------------------------------------

// scanInserts streams a dump file and hands each INSERT row's values to fn.
func scanInserts(path string, fn func(values []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(strings.ToUpper(line), "INSERT INTO") {
			continue
		}
		if vals := splitValues(line); vals != nil {
			fn(vals)
		}
	}
	return sc.Err()
}

// splitValues extracts the value list of one INSERT statement. Quoted
// strings may contain commas and doubled quotes; NULL becomes "".
func splitValues(line string) []string {
	idx := strings.Index(strings.ToUpper(line), "VALUES")
	if idx < 0 {
		return nil
	}
	rest := line[idx+len("VALUES"):]
	start := strings.IndexByte(rest, '(')
	end := strings.LastIndexByte(rest, ')')
	if start < 0 || end <= start {
		return nil
	}
	body := rest[start+1 : end]

	var (
		out    []string
		field  strings.Builder
		quoted bool
	)
	flush := func() {
		v := strings.TrimSpace(field.String())
		if strings.EqualFold(v, "null") {
			v = ""
		}
		out = append(out, v)
		field.Reset()
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quoted && c == '\'' && i+1 < len(body) && body[i+1] == '\'':
			field.WriteByte('\'') // escaped quote
			i++
		case c == '\'':
			quoted = !quoted
		case !quoted && c == ',':
			flush()
		default:
			field.WriteByte(c)
		}
	}
	flush()
	return out
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

func i32(s string) int32 { return int32(atoi(s)) }
func i16(s string) int16 { return int16(atoi(s)) }

// ticksFromMillis converts a millisecond delay from the dumps into whole
// ticks, rounding up so a short delay never becomes free.
func ticksFromMillis(ms int, tick time.Duration) int {
	if ms <= 0 {
		return 0
	}
	t := int((time.Duration(ms)*time.Millisecond + tick - 1) / tick)
	if t < 1 {
		t = 1
	}
	return t
}

// ---------------------------------------------------------------------------
// YAML output
// ---------------------------------------------------------------------------

type templatesDoc struct {
	Templates []data.EntityTemplate `yaml:"templates"`
}

type spawnsDoc struct {
	Spawns []data.SpawnEntry `yaml:"spawns"`
}

type skillsDoc struct {
	Skills []data.SkillEntry `yaml:"skills"`
}

func writeYAML(path string, doc any, header string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if header != "" {
		if _, err := fmt.Fprintf(f, "%s\n\n", header); err != nil {
			return err
		}
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return enc.Close()
}

// ---------------------------------------------------------------------------
// Converters
// ---------------------------------------------------------------------------

// keptImpls are the behaviour classes the server runs. Everything else in
// npc.sql (pets, dolls, towers, effect dummies) has no behaviour here and
// would only bloat the table.
var keptImpls = map[string]bool{
	"L1Monster":  true,
	"L1Guard":    true,
	"L1Merchant": true,
}

func convertTemplates(sqlDir, outDir string, tick time.Duration) error {
	var (
		kept    []data.EntityTemplate
		total   int
		skipped int
	)
	err := scanInserts(filepath.Join(sqlDir, "npc.sql"), func(r []string) {
		total++
		if len(r) < 31 {
			return
		}
		if !keptImpls[r[4]] {
			skipped++
			return
		}
		kept = append(kept, data.EntityTemplate{
			ID:        i32(r[0]),
			Name:      r[1],
			NameID:    r[2],
			Impl:      r[4],
			GfxID:     i32(r[5]),
			Level:     i16(r[6]),
			HP:        i32(r[7]),
			MP:        i32(r[8]),
			AC:        i16(r[9]),
			STR:       i16(r[10]),
			DEX:       i16(r[12]), // con sits between str and dex
			MR:        i16(r[15]),
			Exp:       i32(r[16]),
			Ranged:    i16(r[20]),
			AtkSpeed:  i16(r[23]),
			MoveDelay: int16(ticksFromMillis(atoi(r[22]), tick)), // passispeed
			Agro:      r[30] != "" && r[30] != "0",
		})
	})
	if err != nil {
		return err
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	fmt.Printf("  templates: %d kept, %d other impls skipped (%d rows)\n", len(kept), skipped, total)
	return writeYAML(filepath.Join(outDir, "templates.yaml"),
		templatesDoc{Templates: kept},
		"# 實體模板：由 npc.sql 轉出。impl 決定行為：L1Monster 會遊走，L1Guard / L1Merchant 站定不動。")
}

func convertSpawns(sqlDir, outDir string) error {
	var spawns []data.SpawnEntry

	// Monster placements.
	err := scanInserts(filepath.Join(sqlDir, "spawnlist.sql"), func(r []string) {
		if len(r) < 17 || atoi(r[2]) == 0 {
			return
		}
		spawns = append(spawns, data.SpawnEntry{
			TemplateID: i32(r[3]),
			MapID:      i16(r[16]),
			X:          i32(r[5]),
			Y:          i32(r[6]),
			Count:      atoi(r[2]),
			RandomX:    i32(r[7]),
			RandomY:    i32(r[8]),
			Heading:    i16(r[13]),
		})
	})
	if err != nil {
		return err
	}
	monsters := len(spawns)

	// Merchant and guard placements live in a second dump with its own
	// column order. Some distributions don't ship it.
	err = scanInserts(filepath.Join(sqlDir, "spawnlist_npc.sql"), func(r []string) {
		if len(r) < 11 || atoi(r[2]) == 0 {
			return
		}
		spawns = append(spawns, data.SpawnEntry{
			TemplateID: i32(r[3]),
			MapID:      i16(r[10]),
			X:          i32(r[4]),
			Y:          i32(r[5]),
			Count:      atoi(r[2]),
			RandomX:    i32(r[6]),
			RandomY:    i32(r[7]),
			Heading:    i16(r[8]),
		})
	})
	if err != nil {
		fmt.Printf("  spawns: spawnlist_npc.sql skipped (%v)\n", err)
	}

	sort.Slice(spawns, func(i, j int) bool {
		if spawns[i].MapID != spawns[j].MapID {
			return spawns[i].MapID < spawns[j].MapID
		}
		return spawns[i].TemplateID < spawns[j].TemplateID
	})
	fmt.Printf("  spawns: %d entries (%d monsters, %d npcs)\n", len(spawns), monsters, len(spawns)-monsters)
	return writeYAML(filepath.Join(outDir, "spawns.yaml"),
		spawnsDoc{Spawns: spawns},
		"# 開機生成表：由 spawnlist.sql + spawnlist_npc.sql 轉出。\n# randomx / randomy 會在 ±範圍內隨機散佈每一隻。")
}

func convertSkills(sqlDir, outDir string, tick time.Duration) error {
	var skills []data.SkillEntry
	err := scanInserts(filepath.Join(sqlDir, "skills.sql"), func(r []string) {
		if len(r) < 31 {
			return
		}
		skills = append(skills, data.SkillEntry{
			SkillID:         i32(r[0]),
			Name:            r[1],
			MpConsume:       atoi(r[4]),
			HpConsume:       atoi(r[5]),
			ReuseDelay:      ticksFromMillis(atoi(r[8]), tick),
			DamageValue:     atoi(r[12]),
			DamageDice:      atoi(r[13]),
			DamageDiceCount: atoi(r[14]),
			Ranged:          atoi(r[20]),
			ActionID:        atoi(r[25]),
			CastGfx:         i32(r[26]),
		})
	})
	if err != nil {
		return err
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].SkillID < skills[j].SkillID })
	fmt.Printf("  skills: %d entries\n", len(skills))
	return writeYAML(filepath.Join(outDir, "skills.yaml"),
		skillsDoc{Skills: skills},
		"# 攻擊魔法定義：由 skills.sql 轉出。skill_id = 魔法書列 × 8 + 欄 + 1。\n# ranged：-1 = 接觸，0 = 自身，正數 = 施放距離（格）。reuse_delay 以 tick 計。")
}

// ---------------------------------------------------------------------------
// CLI
// ---------------------------------------------------------------------------

func usage() {
	fmt.Println("Usage: dataconv <command> [-sqldir path] [-outdir path] [-tick 200ms]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  templates  Convert npc.sql -> templates.yaml")
	fmt.Println("  spawns     Convert spawnlist.sql + spawnlist_npc.sql -> spawns.yaml")
	fmt.Println("  skills     Convert skills.sql -> skills.yaml")
	fmt.Println("  all        Run all conversions")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	sqlDir := fs.String("sqldir", "l1j_sql", "L1J SQL dump directory")
	outDir := fs.String("outdir", "data", "YAML output directory")
	tick := fs.Duration("tick", 200*time.Millisecond, "server tick duration, for millisecond fields")
	_ = fs.Parse(os.Args[2:])

	steps := map[string]func() error{
		"templates": func() error { return convertTemplates(*sqlDir, *outDir, *tick) },
		"spawns":    func() error { return convertSpawns(*sqlDir, *outDir) },
		"skills":    func() error { return convertSkills(*sqlDir, *outDir, *tick) },
	}
	run := func(name string) {
		if err := steps[name](); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
	}

	if cmd == "all" {
		for _, name := range []string{"templates", "spawns", "skills"} {
			run(name)
		}
		return
	}
	if _, ok := steps[cmd]; !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}
	run(cmd)
}
