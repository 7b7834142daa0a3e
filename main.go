package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/miraclezmoon/TELEBOT-19/config"
	"github.com/miraclezmoon/TELEBOT-19/routes"
	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

func main() {
	createAdmin := flag.String("create-admin", "", "create or reset a dashboard operator as user:password, then exit")
	flag.Parse()

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	if err := utils.SetLocation(cfg.Timezone); err != nil {
		utils.Sugar.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	db := config.InitDatabase()

	defaults := services.DefaultSettings()
	defaults.DailyCoinBase = int64(cfg.DailyCoinBase)
	defaults.ReferralBonus = int64(cfg.ReferralBonus)
	defaults.WelcomeBonus = int64(cfg.WelcomeBonus)

	core := services.New(db, services.Options{
		Settings: defaults,
		Logger:   utils.Logger,
		Metrics:  utils.Metrics(),
		Now:      utils.Now,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *createAdmin != "" {
		user, pass, ok := strings.Cut(*createAdmin, ":")
		if !ok {
			utils.Sugar.Fatal("-create-admin expects user:password")
		}
		if _, err := core.Admins.Create(ctx, user, pass); err != nil {
			utils.Sugar.Fatalf("create admin: %v", err)
		}
		utils.Sugar.Infof("admin %q saved", user)
		return
	}

	if err := core.Init(ctx); err != nil {
		utils.Sugar.Fatalf("load settings: %v", err)
	}

	r := routes.SetupRouter(core)

	// Background draw of raffles past their end time (best-effort)
	services.StartRaffleSweeper(ctx, core.Raffles, time.Duration(cfg.RaffleSweepSeconds)*time.Second)

	utils.Logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db", cfg.DBDriver))
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
