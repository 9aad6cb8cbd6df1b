package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration invalid: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	store := storage.NewService(db, nil) // No redis needed for admin CLI
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "purge-tickets":
		minutes := 30
		if len(os.Args) > 2 {
			minutes, err = strconv.Atoi(os.Args[2])
			if err != nil {
				fmt.Println("Invalid age. Please provide minutes as an integer.")
				os.Exit(1)
			}
		}
		n, err := store.PurgeStaleTickets(ctx, time.Duration(minutes)*time.Minute)
		if err != nil {
			log.Fatalf("Error purging tickets: %v", err)
		}
		fmt.Printf("Removed %d waiting tickets older than %d minutes.\n", n, minutes)
	case "purge-rooms":
		n, err := store.PurgeEmptyRooms(ctx)
		if err != nil {
			log.Fatalf("Error purging rooms: %v", err)
		}
		fmt.Printf("Removed %d empty rooms.\n", n)
	default:
		fmt.Println("Unknown command. Available: purge-tickets [minutes], purge-rooms")
		os.Exit(1)
	}
}
