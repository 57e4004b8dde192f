package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/fantabid/go/internal/dbconfig"
)

type seedPlayer struct {
	Name      string
	Team      string
	Role      string
	Quotation int
}

var players = []seedPlayer{
	{"Maignan", "Milan", "P", 18},
	{"Sommer", "Inter", "P", 17},
	{"Di Gregorio", "Juventus", "P", 15},
	{"Meret", "Napoli", "P", 14},
	{"Bastoni", "Inter", "D", 20},
	{"Bremer", "Juventus", "D", 16},
	{"Di Lorenzo", "Napoli", "D", 17},
	{"Dimarco", "Inter", "D", 21},
	{"Theo Hernandez", "Milan", "D", 22},
	{"Dumfries", "Inter", "D", 15},
	{"Buongiorno", "Napoli", "D", 13},
	{"Calafiori", "Bologna", "D", 11},
	{"Barella", "Inter", "C", 24},
	{"Calhanoglu", "Inter", "C", 25},
	{"Pulisic", "Milan", "C", 28},
	{"Koopmeiners", "Juventus", "C", 22},
	{"Zaccagni", "Lazio", "C", 19},
	{"Pellegrini", "Roma", "C", 18},
	{"Anguissa", "Napoli", "C", 14},
	{"Orsolini", "Bologna", "C", 17},
	{"Lautaro Martinez", "Inter", "A", 38},
	{"Vlahovic", "Juventus", "A", 32},
	{"Lukaku", "Napoli", "A", 30},
	{"Retegui", "Atalanta", "A", 31},
	{"Lookman", "Atalanta", "A", 33},
	{"Thuram", "Inter", "A", 29},
	{"Dovbyk", "Roma", "A", 27},
	{"Kean", "Fiorentina", "A", 28},
}

func main() {
	name := flag.String("name", "Demo League", "league name")
	budget := flag.Int("budget", 500, "initial budget per participant")
	users := flag.String("users", "", "comma separated participant ids, random when empty")
	count := flag.Int("count", 4, "number of random participants when -users is empty")
	flag.Parse()

	participants, err := participantIDs(*users, *count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse users: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := cfg.NewPool(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	leagueID := uuid.New()
	inserted := 0
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO leagues (
              id, name, status, initial_budget, min_bid, min_bid_rule,
              timer_duration_minutes, active_auction_roles,
              slots_p, slots_d, slots_c, slots_a
            ) VALUES ($1,$2,'draft_active',$3,1,'fixed',1440,'ALL',3,8,8,6)
        `, leagueID, *name, *budget)
		if err != nil {
			return fmt.Errorf("insert league: %w", err)
		}

		for _, userID := range participants {
			_, err := tx.Exec(ctx, `
                INSERT INTO league_participants (league_id, user_id, current_budget)
                VALUES ($1,$2,$3)
            `, leagueID, userID, *budget)
			if err != nil {
				return fmt.Errorf("insert participant %s: %w", userID, err)
			}
		}

		for _, p := range players {
			tag, err := tx.Exec(ctx, `
                INSERT INTO players (id, name, team, role, quotation)
                SELECT $1::uuid, $2::text, $3::text, $4::text, $5::int
                WHERE NOT EXISTS (SELECT 1 FROM players WHERE name = $2::text AND team = $3::text)
            `, uuid.New(), p.Name, p.Team, p.Role, p.Quotation)
			if err != nil {
				return fmt.Errorf("insert player %s: %w", p.Name, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed league: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("League %s seeded: id=%s participants=%d players inserted=%d skipped=%d\n",
		*name, leagueID, len(participants), inserted, len(players)-inserted)
	for _, id := range participants {
		fmt.Printf("  participant %s\n", id)
	}
}

func participantIDs(csv string, count int) ([]uuid.UUID, error) {
	if strings.TrimSpace(csv) == "" {
		ids := make([]uuid.UUID, count)
		for i := range ids {
			ids[i] = uuid.New()
		}
		return ids, nil
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(csv, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
