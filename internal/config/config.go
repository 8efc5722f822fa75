package config

import (
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // 容器镜像中可能没有 zoneinfo

	commoncfg "floor-data/internal/common/config"
)

// Config floor-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	Log struct {
		Level  string
		Format string
	}

	Floor FloorConfig
}

// FloorConfig 楼面业务配置
type FloorConfig struct {
	Timezone string // 显示 occupiedSince / reservationTime 使用的时区
	// LayoutLockTTL 跨实例布局激活锁的过期时间（仅 RedisEnabled 时生效）
	LayoutLockTTL time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true: if DB is unavailable, floor-data falls back to the memory store.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "floor",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Floor.Timezone = getEnv("FLOOR_TIMEZONE", "America/Denver")
	lockTTL := parseInt(getEnv("LAYOUT_LOCK_TTL_SECONDS", "5"), 5)
	if lockTTL <= 0 {
		lockTTL = 5
	}
	cfg.Floor.LayoutLockTTL = time.Duration(lockTTL) * time.Second

	return cfg
}

// Location 解析楼面时区，无效时退回 UTC
func (c *FloorConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
