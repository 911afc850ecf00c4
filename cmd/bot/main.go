package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"proxybot/internal/app"
	"proxybot/internal/config"
)

func main() {
	var cfgPath, envPath string
	flag.StringVar(&cfgPath, "config", "", "path to config yaml/json (empty: environment only)")
	flag.StringVar(&envPath, "env", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(envPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	stopCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	_ = a.Stop(stopCtx)
}
