package main

import (
	"log"

	"github.com/kataras/iris/v12"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/logger"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/server"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init()

	app := iris.New()
	server.RegisterAdminRoutes(app, cfg)

	addr := cfg.AdminServer.Addr()
	log.Printf("admin server listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to run admin server: %v", err)
	}
}
