package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/octacordshop/PrimeStream/internal/app"
	"github.com/octacordshop/PrimeStream/internal/importer"
	"github.com/octacordshop/PrimeStream/pkg/models"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

func main() {
	global := flag.NewFlagSet("catalog-sync", flag.ExitOnError)
	configFile := global.String("config", "", "config file")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := utils.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logCloser, err := utils.SetupLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer logCloser.Close()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a, args[0], args[1:]); err != nil {
		log.Printf("%s failed: %v", args[0], err)
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "popular":
		fs := flag.NewFlagSet("popular", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		page := fs.Int("page", 1, "listing page")
		_ = fs.Parse(args)

		k, err := models.ParseKind(*kind)
		if err != nil {
			return err
		}
		res, err := a.Engine.SyncPopular(ctx, k, *page)
		if err != nil {
			return err
		}
		fmt.Printf("popular %s page %d: %s\n", k, *page, res)
	case "year":
		fs := flag.NewFlagSet("year", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		year := fs.Int("year", 0, "release / first air year")
		page := fs.Int("page", 1, "listing page")
		_ = fs.Parse(args)

		k, err := models.ParseKind(*kind)
		if err != nil {
			return err
		}
		if *year < importer.MinYear {
			return fmt.Errorf("year is required")
		}
		res, err := a.Engine.SyncByYear(ctx, k, *year, *page)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d page %d: %s\n", k, *year, *page, res)
	case "refresh":
		fs := flag.NewFlagSet("refresh", flag.ExitOnError)
		pages := fs.Int("pages", 1, "popular pages per kind")
		_ = fs.Parse(args)

		res, err := a.Engine.Refresh(ctx, *pages)
		fmt.Printf("movies: %s\n", res.Movies)
		fmt.Printf("tv:     %s\n", res.TVShows)
		return err
	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		start := fs.Int("start", 0, "first year")
		end := fs.Int("end", 0, "last year (inclusive)")
		confirm := fs.Bool("confirm", false, "allow ranges longer than 5 years")
		_ = fs.Parse(args)

		k, err := models.ParseKind(*kind)
		if err != nil {
			return err
		}
		final, err := a.Importer.BulkImport(ctx, importer.Request{
			Kind:      k,
			StartYear: *start,
			EndYear:   *end,
			Confirmed: *confirm,
		}, func(p importer.Progress) {
			if p.IsRunning && p.CurrentYear > 0 {
				fmt.Printf("[%d/%d] %d: %s\n", p.YearsDone, p.TotalYears, p.CurrentYear, p)
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("import %s done: %s\n", final.RunID, final)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printUsage() {
	fmt.Println("catalog-sync [-config file] <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  popular -kind movie|tv -page N")
	fmt.Println("  year    -kind movie|tv -year YYYY -page N")
	fmt.Println("  refresh -pages N")
	fmt.Println("  import  -kind movie|tv -start YYYY -end YYYY [-confirm]")
}
