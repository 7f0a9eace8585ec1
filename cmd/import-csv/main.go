package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/octacordshop/PrimeStream/internal/catalog"
	"github.com/octacordshop/PrimeStream/pkg/database"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

func main() {
	var (
		configFile = flag.String("config", "", "config file")
		in         = flag.String("in", "data/catalog.csv", "input CSV path")
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

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	st, err := catalog.NewRepo(db).ImportCSV(ctx, f)
	if err != nil {
		log.Fatalf("import catalog failed: %v", err)
	}
	log.Printf("imported %s: created=%d updated=%d skipped=%d", *in, st.Created, st.Updated, st.Skipped)
}
