package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floor-data/internal/common/database"
	"floor-data/internal/common/logger"
	commonredis "floor-data/internal/common/redis"
	"floor-data/internal/config"
	httpapi "floor-data/internal/http"
	"floor-data/internal/repository"
	"floor-data/internal/service"
	"floor-data/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "floor-data")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// 存储：DB 不可用时退回内存存储（重启丢失数据，仅用于联调）
	var (
		db *sql.DB
		st repository.Store
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			st = repository.NewPostgresStore(db)
			log.Info("DB enabled for floor-data", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if st == nil {
		st = repository.NewMemoryStore()
	}

	// 跨实例布局激活锁（可选）
	var (
		redisClient *redis.Client
		locker      store.ScopeLocker = store.NopScopeLocker{}
	)
	if cfg.RedisEnabled {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		c, err := commonredis.Connect(pingCtx, &cfg.Redis)
		cancel()
		if err == nil {
			redisClient = c
			locker = store.NewRedisScopeLocker(c, cfg.Floor.LayoutLockTTL)
			log.Info("Redis layout lock enabled", zap.String("addr", cfg.Redis.Addr))
		} else {
			log.Warn("Redis enabled but unreachable, layout activation relies on the store transaction only", zap.Error(err))
		}
	}

	clock := clockwork.NewRealClock()
	roomService := service.NewRoomService(st, log)
	groupService := service.NewTableGroupService(st, log)
	tableService := service.NewTableService(st, log)
	layoutService := service.NewLayoutService(st, locker, log)
	sessionService := service.NewGuestSessionService(st, clock, log)
	detailService := service.NewTableDetailService(st, clock, cfg.Floor.Location(), log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterRoomRoutes(httpapi.NewRoomHandler(roomService, log))
	router.RegisterTableGroupRoutes(httpapi.NewTableGroupHandler(groupService, log))
	router.RegisterTableRoutes(httpapi.NewTableHandler(tableService, detailService, roomService, groupService, log))
	router.RegisterLayoutRoutes(httpapi.NewLayoutHandler(layoutService, log))
	router.RegisterGuestSessionRoutes(httpapi.NewGuestSessionHandler(sessionService, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
	_ = commonredis.Close(redisClient)
	_ = database.Close(db)
}
