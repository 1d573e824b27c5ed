// cmd/bot/main.go
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/unclebandit/linkreach-backend/internal/browser"
	"github.com/unclebandit/linkreach-backend/internal/config"
	"github.com/unclebandit/linkreach-backend/internal/db"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/importer"
	"github.com/unclebandit/linkreach-backend/internal/model"
	"github.com/unclebandit/linkreach-backend/internal/repository"
	"github.com/unclebandit/linkreach-backend/internal/service"
)

// The bot is the standalone console shape: import, run, and inspect from
// one binary against the local progress database, no broker or server.
// The primary workflow is one invocation: --file urls.csv --mode connect
// imports the spreadsheet and runs the pass.

type command int

const (
	cmdUsage command = iota
	cmdStatus
	cmdResetErrors
	cmdExport
	cmdRun
)

// pickCommand decides what one invocation does. The inspection flags are
// standalone; a file implies a run, importing first.
func pickCommand(status, resetErrors bool, export, file string, run bool) command {
	switch {
	case status:
		return cmdStatus
	case resetErrors:
		return cmdResetErrors
	case export != "":
		return cmdExport
	case file != "" || run:
		return cmdRun
	default:
		return cmdUsage
	}
}

func main() {
	var (
		file        = flag.String("file", "", "CSV file of profile URLs to import before the run")
		mode        = flag.String("mode", model.ModeConnect, "run mode: connect, message, or both")
		dryRun      = flag.Bool("dry-run", false, "classify and log without clicking or persisting")
		status      = flag.Bool("status", false, "print the status summary and exit")
		resetErrors = flag.Bool("reset-errors", false, "reset errored profiles to pending and exit")
		export      = flag.String("export", "", "export all profiles as CSV to the given path and exit")
		run         = flag.Bool("run", false, "run a campaign pass without importing anything")
		capFlag     = flag.Int("cap", 0, "override the daily connection cap for this run")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer conn.Close()

	repo := &repository.ProfileRepository{DB: conn}

	switch pickCommand(*status, *resetErrors, *export, *file, *run) {
	case cmdStatus:
		printStatus(repo)
	case cmdResetErrors:
		n, err := repo.ResetErrors()
		if err != nil {
			log.Fatal("Failed to reset errors:", err)
		}
		fmt.Printf("Reset %d errored profiles to pending.\n", n)
	case cmdExport:
		exportCSV(repo, *export)
	case cmdRun:
		if *file != "" {
			importFile(repo, *file)
		}
		if *capFlag > 0 {
			cfg.DailyConnectionCap = *capFlag
		}
		runCampaign(cfg, repo, *mode, *dryRun)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func importFile(repo *repository.ProfileRepository, path string) {
	rows, skipped, err := importer.ReadFile(path)
	if err != nil {
		log.Fatal("Import failed:", err)
	}
	if skipped > 0 {
		log.Printf("⚠️ Skipped %d rows without a valid profile URL", skipped)
	}

	result, err := repo.ImportURLs(rows)
	if err != nil {
		log.Fatal("Import failed:", err)
	}
	fmt.Printf("Imported %d new profiles (%d duplicates, %d total in file).\n",
		result.Imported, result.Duplicates, result.Total)
}

func printStatus(repo *repository.ProfileRepository) {
	summary, err := repo.GetSummary()
	if err != nil {
		log.Fatal("Failed to read summary:", err)
	}

	fmt.Println("Profile statuses:")
	for _, s := range model.AllStatuses {
		if n := summary[s]; n > 0 {
			fmt.Printf("  %-14s %d\n", s, n)
		}
	}

	connections, _ := repo.GetDailyCount(model.CounterConnections)
	messages, _ := repo.GetDailyCount(model.CounterMessages)
	fmt.Printf("Today: %d connection requests, %d messages.\n", connections, messages)
}

func exportCSV(repo *repository.ProfileRepository, path string) {
	profiles, err := repo.GetAllProfiles()
	if err != nil {
		log.Fatal("Export failed:", err)
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatal("Export failed:", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"url", "name", "status", "error", "updated_at"})
	for _, p := range profiles {
		name, errMsg := "", ""
		if p.Name != nil {
			name = *p.Name
		}
		if p.ErrorMsg != nil {
			errMsg = *p.ErrorMsg
		}
		_ = w.Write([]string{p.URL, name, p.Status, errMsg, p.UpdatedAt.Format("2006-01-02 15:04:05")})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatal("Export failed:", err)
	}
	fmt.Printf("Exported %d profiles to %s.\n", len(profiles), path)
}

func runCampaign(cfg *config.Config, repo *repository.ProfileRepository, mode string, dryRun bool) {
	noteTemplate, err := config.LoadTemplate(cfg.ConnectionNoteFile)
	if err != nil {
		log.Fatal("Failed to load connection note template:", err)
	}
	followUpTemplate, err := config.LoadTemplate(cfg.FollowupMessageFile)
	if err != nil {
		log.Fatal("Failed to load follow-up message template:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.NewSession(cfg)
	if err != nil {
		log.Fatal("Failed to launch browser:", err)
	}
	defer session.Close()

	if err := session.EnsureLoggedIn(ctx, browser.NewConsoleLoginProvider()); err != nil {
		log.Fatal("Login failed:", err)
	}

	pacer := service.NewPacer(repo, cfg, dryRun)
	executor := service.NewActionExecutor(session.Page(), pacer, cfg, dryRun)
	driver := &service.CampaignService{
		Repo:             repo,
		Executor:         executor,
		Pacer:            pacer,
		Reporter:         service.ReporterFunc(printEvent),
		NoteTemplate:     noteTemplate,
		FollowUpTemplate: followUpTemplate,
		ConnectionCap:    cfg.DailyConnectionCap,
		MessageCap:       cfg.DailyMessageCap,
		BatchLimit:       cfg.BatchLimit,
		DryRun:           dryRun,
	}

	summary, err := driver.Run(ctx, mode)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionInvalid) {
			log.Println("⚠️ Session became invalid mid-run. Delete the state file and log in again.")
		} else {
			log.Println("⚠️ Run failed:", err)
		}
	}
	fmt.Printf("Run finished: processed=%d sent=%d skipped=%d errors=%d\n",
		summary.Processed, summary.Sent, summary.Skipped, summary.Errors)
}

func printEvent(ev model.ProgressEvent) {
	log.Printf("  → %s: %s (status=%s)", ev.URL, ev.Outcome, ev.Status)
}
