package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"choco-chat/internal/config"
	"choco-chat/internal/service"

	"github.com/joho/godotenv"
)

// 运维工具：直接改库重置某个用户的密码，不走 HTTP
func main() {
	configFile := flag.String("config", "", "config file path")
	username := flag.String("username", "", "user to reset")
	password := flag.String("password", "", "new password")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: resetpw -username <name> -password <new password> [-config <path>]")
		os.Exit(2)
	}

	godotenv.Load()
	cfg := config.Load(*configFile)

	db, err := cfg.OpenGormDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "db connect failed: %v\n", err)
		os.Exit(1)
	}

	auth := service.NewAuthService(db)
	if err := auth.ResetPassword(context.Background(), *username, *password); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "user %q not found\n", *username)
		} else {
			fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("password for user %q has been changed\n", *username)
}
