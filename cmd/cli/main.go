package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/goaltracker/internal/app"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/config"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/gcs"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	cfg, err := config.Load(os.Getenv("GOALS_CONFIG"))
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log, err := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if err := run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n", err)
			printUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("Command failed")
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Goal Tracker CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  cli <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  paycheck      Record a paycheck and fund goals")
	fmt.Fprintln(w, "  import        Import a CSV statement (local path or gs:// URI)")
	fmt.Fprintln(w, "  goal          Create a savings goal")
	fmt.Fprintln(w, "  goals         List goals")
	fmt.Fprintln(w, "  transactions  List transactions with running balance")
	fmt.Fprintln(w, "  seed          Load the sample transactions")
	fmt.Fprintln(w, "  token         Issue an API token")
	fmt.Fprintln(w, "  upload        Archive a statement file in Cloud Storage")
	fmt.Fprintln(w, "  help          Show this help message")
	fmt.Fprintln(w, "\nConfiguration comes from config.yaml, .env and GOALS_* variables;")
	fmt.Fprintln(w, "GOALS_CONFIG names an alternative config file.")
	fmt.Fprintln(w, "\nRun 'cli <command> -h' for more information on a command.")
}

// run dispatches one command. Commands that touch records open the store
// themselves so token and upload work without one.
func run(ctx context.Context, cfg *config.Config, command string, args []string, out io.Writer) error {
	switch command {
	case "token":
		return runToken(cfg, args, out)
	case "upload":
		return runUpload(ctx, cfg, args, out)
	case "paycheck", "import", "goal", "goals", "transactions", "seed":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "paycheck":
		return runPaycheck(ctx, a.Service, cfg, args, out)
	case "import":
		return runImport(ctx, a.Service, args, out)
	case "goal":
		return runGoal(ctx, a.Service, args, out)
	case "goals":
		return runGoals(ctx, a.Service, args, out)
	case "transactions":
		return runTransactions(ctx, a.Service, args, out)
	default:
		return runSeed(ctx, a.Service, args, out)
	}
}

// userFlag registers -user on fs.
func userFlag(fs *flag.FlagSet) *string {
	return fs.String("user", os.Getenv("GOALS_USER"), "User ID to act as (or set GOALS_USER)")
}

func signedIn(uid string) (auth.User, error) {
	if uid == "" {
		return auth.User{}, fmt.Errorf("%w: -user is required", errUsage)
	}
	return auth.User{UID: uid}, nil
}

func runPaycheck(ctx context.Context, svc *pipeline.Service, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("paycheck", flag.ContinueOnError)
	uid := userFlag(fs)
	amountStr := fs.String("amount", "", "Paycheck amount (required)")
	dateStr := fs.String("date", "", "Date in YYYY-MM-DD format (defaults to today)")
	contribute := fs.Bool("contribute", true, "Contribute this paycheck to goals")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(*amountStr)
	if err != nil {
		return fmt.Errorf("%w: -amount must be a number", errUsage)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	date := time.Now().In(loc)
	if *dateStr != "" {
		if date, err = time.ParseInLocation(dateFormat, *dateStr, loc); err != nil {
			return fmt.Errorf("%w: -date must be YYYY-MM-DD", errUsage)
		}
	}

	result, err := svc.InputPaycheck(ctx, user, amount, date, *contribute)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Recorded paycheck %s on %s (%s)\n",
		result.Transaction.Amount.StringFixed(2), result.Transaction.Date.Format(dateFormat), result.Plan.Outcome)
	for _, d := range result.Plan.Deltas {
		fmt.Fprintf(out, "  +%s  %s\n", d.Amount.StringFixed(2), d.Goal.Name)
	}
	return nil
}

func runImport(ctx context.Context, svc *pipeline.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	uid := userFlag(fs)
	source := fs.String("file", "", "Local path or gs:// URI of the CSV statement (required)")
	contribute := fs.Bool("contribute", false, "Contribute positive rows to goals")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	if *source == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}

	var opener gcs.StatementSource = gcs.NewLocalService()
	if _, _, err := gcs.ParseURI(*source); err == nil {
		storageSvc, err := gcs.NewService(ctx)
		if err != nil {
			return err
		}
		defer storageSvc.Close()
		opener = storageSvc
	}

	rc, err := opener.OpenStatement(ctx, *source)
	if err != nil {
		return err
	}
	defer rc.Close()

	report, err := svc.ImportCSV(ctx, user, rc, *contribute)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d rows (%d funded goals, %d skipped, %d failed)\n",
		report.Imported, report.Allocated, report.Skipped, len(report.Errors))
	for _, rowErr := range report.Errors {
		fmt.Fprintf(out, "  %v\n", rowErr)
	}
	return nil
}

func runGoal(ctx context.Context, svc *pipeline.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("goal", flag.ContinueOnError)
	uid := userFlag(fs)
	name := fs.String("name", "", "Goal name (required)")
	perPaycheck := fs.String("per-paycheck", "", "Amount per paycheck (required)")
	total := fs.String("total", "", "Target total (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("%w: -name is required", errUsage)
	}

	goal, err := svc.CreateGoal(ctx, user, *name, *perPaycheck, *total)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created goal %s (%s)\n", goal.Name, goal.ID)
	return nil
}

func runGoals(ctx context.Context, svc *pipeline.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("goals", flag.ContinueOnError)
	uid := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	goals, err := svc.ListGoals(ctx, user)
	if err != nil {
		return err
	}
	return printGoals(out, goals)
}

func runTransactions(ctx context.Context, svc *pipeline.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("transactions", flag.ContinueOnError)
	uid := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	entries, err := svc.ListTransactions(ctx, user)
	if err != nil {
		return err
	}
	return printLedger(out, entries)
}

func runSeed(ctx context.Context, svc *pipeline.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	uid := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	results, err := svc.SeedSampleTransactions(ctx, user)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d sample transactions\n", len(results))
	return nil
}

func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	uid := userFlag(fs)
	name := fs.String("name", "", "Display name")
	ttl := fs.Duration("ttl", cfg.TokenTTL(), "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := signedIn(*uid)
	if err != nil {
		return err
	}
	user.DisplayName = *name

	tokens, err := auth.NewTokens(cfg.Auth.Secret)
	if err != nil {
		return err
	}
	token, err := tokens.Generate(user, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runUpload(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	bucketName := fs.String("bucket", cfg.GCS.Bucket, "GCS bucket name (defaults to gcs.bucket)")
	objectName := fs.String("object", "", "GCS object name (defaults to statements/<filename>)")
	filePath := fs.String("file", "", "Path to local CSV file (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if *bucketName == "" || *filePath == "" {
		return fmt.Errorf("%w: upload needs -bucket and -file", errUsage)
	}
	if *objectName == "" {
		*objectName = "statements/" + filepath.Base(*filePath)
	}

	svc, err := gcs.NewService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		return err
	}

	fmt.Fprintf(out, "Uploaded %s to %s\n", *filePath, gcs.URI(*bucketName, *objectName))
	return nil
}

func printGoals(out io.Writer, goals []domain.Goal) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPER PAYCHECK\tBALANCE\tTOTAL\tPROGRESS\tCREATED\tID")
	for _, g := range goals {
		perPaycheck := "?"
		if g.AmountPerPaycheck.Valid {
			perPaycheck = g.AmountPerPaycheck.Decimal.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%s\t%s\n",
			g.Name,
			perPaycheck,
			g.Balance.StringFixed(2),
			g.Total.StringFixed(2),
			g.Progress().Shift(2).StringFixed(0),
			g.DateCreated.Format(dateFormat),
			g.ID,
		)
	}
	return tw.Flush()
}

func printLedger(out io.Writer, entries []pipeline.LedgerEntry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tBALANCE\tGOALS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Transaction.Date.Format(dateFormat),
			e.Transaction.Description,
			e.Transaction.Amount.StringFixed(2),
			e.RunningBalance.StringFixed(2),
			e.Transaction.ContributeToGoals,
		)
	}
	return tw.Flush()
}
