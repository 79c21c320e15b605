// Package main is the entry point for the chordlab API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/chordlab/pkg/api"
	"github.com/james-see/chordlab/pkg/config"
	"github.com/sirupsen/logrus"
)

func main() {
	port := flag.Int("port", 0, "Server port (default from config, 8080)")
	cfgPath := flag.String("config", "", "Config file (default ~/.config/chordlab/config.json)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if lvl, err := cfg.LogLevel(); err == nil {
		logrus.SetLevel(lvl)
	}

	fmt.Printf("Starting chordlab API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	if err := api.StartServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
