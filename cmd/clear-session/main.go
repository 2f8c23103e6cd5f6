package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/chat"
	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/db"
	"github.com/medisched/medisched/internal/realtime"
	redisclient "github.com/medisched/medisched/internal/redis"
)

// One-shot operator tool. With CHAT_ROOM_ID set it clears that room's stuck
// call session; without it, it ends every active session older than
// CALL_STALE_AFTER directly in the store.
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "clear-session").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	if raw := os.Getenv("CHAT_ROOM_ID"); raw != "" {
		roomID, err := uuid.Parse(raw)
		if err != nil {
			logger.Fatal().Str("chat_room_id", raw).Msg("CHAT_ROOM_ID must be a valid UUID")
		}

		rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer rdb.Close()

		events := realtime.NewRedisPublisher(rdb)
		repo := chat.NewPgRepository(pgPool)
		rooms := chat.NewService(repo, events, logger)
		calls := chat.NewCallService(rooms, repo, events, cfg.CallStaleAfter, logger)

		cleared, err := calls.ClearStuckSession(ctx, roomID)
		if err != nil {
			logger.Fatal().Err(err).Str("chat_room_id", roomID.String()).Msg("clear session failed")
		}
		if cleared {
			logger.Info().Str("chat_room_id", roomID.String()).Msg("stuck session cleared")
		} else {
			logger.Info().Str("chat_room_id", roomID.String()).Msg("no active session to clear")
		}
		return
	}

	cutoff := time.Now().Add(-cfg.CallStaleAfter)
	tag, err := pgPool.Exec(ctx, `
		UPDATE chat_rooms
		SET call_ended_at = now(), updated_at = now()
		WHERE call_session_id IS NOT NULL
		  AND call_ended_at IS NULL
		  AND call_started_at < $1
	`, cutoff)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep stale sessions failed")
	}

	logger.Info().
		Int64("cleared", tag.RowsAffected()).
		Dur("stale_after", cfg.CallStaleAfter).
		Msg("stale session sweep complete")
}
