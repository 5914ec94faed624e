package main

import (
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ohowland/pdn_core/internal/pkg/config"
	"github.com/ohowland/pdn_core/internal/pkg/mcptools"
	"github.com/ohowland/pdn_core/internal/pkg/service"
)

func main() {
	cfgFlag := flag.String("config", "", "path to a JSON configuration file")
	flag.Parse()

	cfg := config.Default()
	if *cfgFlag != "" {
		var err error
		if cfg, err = config.Load(*cfgFlag); err != nil {
			log.Fatalf("pdn-mcp: %v", err)
		}
	}

	svc, err := service.New(cfg.Engine)
	if err != nil {
		log.Fatalf("pdn-mcp: %v", err)
	}
	defer svc.Close()

	mcpServer := server.NewMCPServer(
		"pdn-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	mcptools.Register(mcpServer, svc)

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("pdn-mcp: %v", err)
	}
}
