package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/octacordshop/PrimeStream/internal/catalog"
	"github.com/octacordshop/PrimeStream/pkg/database"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

func main() {
	var (
		configFile = flag.String("config", "", "config file")
		out        = flag.String("out", "data/catalog.csv", "output CSV path")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(database.Config{Path: cfg.Database.Path})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	n, err := catalog.NewRepo(db).ExportCSV(ctx, f)
	if err != nil {
		log.Fatalf("export catalog failed: %v", err)
	}
	log.Printf("exported %d catalog rows to %s", n, *out)
}
