// Command server runs the vault activity feed API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/simp-lee/vaultfeed/internal/app"
	"github.com/simp-lee/vaultfeed/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	checkOnly := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config %s: %v", *configPath, err)
	}
	if *checkOnly {
		fmt.Fprintf(os.Stdout, "%s: ok (%d static vaults, refresh %s)\n",
			*configPath, len(cfg.Feed.Vaults), cfg.Feed.RefreshSchedule)
		return
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}
