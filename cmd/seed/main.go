package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicore/agenda/internal/db"
	"github.com/clinicore/agenda/internal/schedule"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedScheduleWindow(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("seed schedule window")
	}
	patients, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAgenda(context.Background(), pool, patients, 14); err != nil {
		log.Fatal().Err(err).Msg("seed agenda")
	}

	log.Info().Msg("seed complete")
}

func seedScheduleWindow(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO schedule_settings (day_start_min, day_end_min, step_min, updated_at)
		VALUES ($1, $2, $3, now())
	`, schedule.DefaultDayStartMin, schedule.DefaultDayEndMin, schedule.DefaultStepMin)
	return err
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding patients")

	ids := make([]uuid.UUID, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("patients seeded")
	return ids, nil
}

// seedAgenda fills the next days with a believable mix of bookings, fit-ins
// and clinic blocks.
func seedAgenda(ctx context.Context, pool *pgxpool.Pool, patients []uuid.UUID, days int) error {
	log.Info().Int("days", days).Msg("seeding agenda")

	statuses := []schedule.Status{
		schedule.StatusScheduled,
		schedule.StatusScheduled,
		schedule.StatusConfirmed,
		schedule.StatusWaiting,
		schedule.StatusInProgress,
		schedule.StatusDone,
		schedule.StatusNoShow,
		schedule.StatusCanceled,
	}
	types := []string{"Consulta", "Retorno", "Exame", "Avaliação"}
	channels := []string{"telefone", "whatsapp", "presencial", "site"}

	today := time.Now().Truncate(24 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d)

		for startMin := schedule.DefaultDayStartMin; startMin < schedule.DefaultDayEndMin; startMin += schedule.DefaultStepMin * 2 {
			if gofakeit.Number(0, 2) == 0 {
				continue // leave open slots
			}

			patient := patients[gofakeit.Number(0, len(patients)-1)]
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments
					(id, patient_id, date, start_min, duration_min, status, type,
					 channel, reason, is_block, allow_overbook, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, now(), now())
			`, uuid.New(), patient, date, startMin, schedule.DefaultStepMin*2,
				string(status),
				types[gofakeit.Number(0, len(types)-1)],
				channels[gofakeit.Number(0, len(channels)-1)],
				gofakeit.Sentence(4),
				gofakeit.Number(0, 9) == 0)
			if err != nil {
				return err
			}
		}

		// Lunch block
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, patient_id, date, start_min, duration_min, status, type,
				 channel, reason, is_block, allow_overbook, created_at, updated_at)
			VALUES ($1, NULL, $2, $3, $4, $5, '', '', 'Almoço', true, false, now(), now())
		`, uuid.New(), date, 12*60, 60, string(schedule.StatusScheduled))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("agenda seeded")
	return nil
}
