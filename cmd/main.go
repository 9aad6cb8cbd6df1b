package main

import (
	"context"
	"net/http"
	"time"

	"pairchat/backend/internal/api/handler"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect PostgreSQL")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logrus.WithError(err).Fatal("failed to connect Redis")
	}

	err = db.AutoMigrate(
		&models.Room{},
		&models.WaitingTicket{},
		&models.Message{},
		&models.User{},
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to run migrations")
	}

	logrus.Info("database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.Info("starting PairChat backend")

	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file loaded")
	}
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration invalid")
	}

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb)

	r := gin.Default()
	h := handler.NewHandler(cfg, store)

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	authed := r.Group("/", h.AuthRequired())
	authed.POST("/rooms", h.CreateRoom)
	authed.GET("/rooms", h.ListRooms)
	authed.POST("/quickmatch", h.QuickMatch)
	authed.GET("/me/room", h.ActiveRoom)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logrus.WithField("addr", cfg.HTTPAddr).Info("listening")
	logrus.Fatal(server.ListenAndServe())
}
