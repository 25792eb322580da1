// Command fastadmin bundles operator tasks: creating accounts from the shell
// and archiving old fasting records.
package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fastkeeper/internal/server/services"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fastadmin <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  create-user    create an account, prompting for the password")
	fmt.Fprintln(os.Stderr, "  archive        archive completed fasts older than a cutoff")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "create-user":
		err = runCreateUser(ctx, os.Args[2:])
	case "archive":
		err = runArchive(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openServices connects to the database from the regular configuration chain
// and builds the services the commands need. The caller closes the handle.
func openServices(ctx context.Context) (*sql.DB, *services.UserService, *services.FastService, error) {
	cfg := config.LoadConfig()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("db init error: %w", err)
	}

	return db, services.NewUserService(db, rm, cfg), services.NewFastService(db, rm, cfg), nil
}

func runCreateUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", "", "email address (required)")
	name := fs.String("name", "", "full name")
	timezone := fs.String("timezone", "", "IANA timezone, e.g. Europe/Riga")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errors.New("email is required")
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	db, users, _, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := users.Register(ctx, *email, *name, *timezone, string(password))
	if err != nil {
		return err
	}

	fmt.Printf("User created: %s (id %s)\n", user.Email, user.ID)
	return nil
}

// promptPassword reads the password twice without echo and wipes the
// confirmation copy before returning.
func promptPassword() ([]byte, error) {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		common.WipeByteArray(password)
		return nil, errors.New("passwords do not match")
	}
	return password, nil
}

// archiveSampleSize caps how many eligible records the preview lists.
const archiveSampleSize = 10

func runArchive(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	days := fs.Int("days", 730, "archive completed fasts older than this many days")
	batchSize := fs.Int("batch-size", 1000, "rows per update batch")
	dryRun := fs.Bool("dry-run", false, "report what would be archived without changing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, _, fastsSvc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	cutoff := time.Now().Add(-time.Duration(*days) * 24 * time.Hour)
	fmt.Printf("Starting archival process for fasts older than %s\n", cutoff.Format("2006-01-02"))

	total, err := fastsSvc.CountArchivable(ctx, cutoff)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println("No fasts found for archival.")
		return nil
	}
	fmt.Printf("Found %d fasts eligible for archival\n", total)

	if *dryRun {
		fmt.Println("DRY RUN MODE: No changes will be made")
	}

	sample, err := fastsSvc.SampleArchivable(ctx, cutoff, archiveSampleSize)
	if err != nil {
		return err
	}
	for _, f := range sample {
		fmt.Printf("  - Fast ID %s: %s to %s (User: %s)\n",
			f.ID, f.StartTime.Format("2006-01-02"), f.EndTime.Format("2006-01-02"), f.UserEmail)
	}
	if int64(len(sample)) < total {
		fmt.Printf("  ... and %d more\n", total-int64(len(sample)))
	}

	if *dryRun {
		return nil
	}

	fmt.Printf("Are you sure you want to archive %d fast records? (yes/no): ", total)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if strings.TrimSpace(answer) != "yes" {
		fmt.Println("Archival cancelled by user.")
		return nil
	}

	archived, err := fastsSvc.Archive(ctx, cutoff, *batchSize, func(batch int, processed, total int64) {
		fmt.Printf("Archived batch %d: %d/%d records\n", batch, processed, total)
	})
	if err != nil {
		if cause := errors.Unwrap(err); cause != nil {
			err = cause
		}
		fmt.Printf("Archival failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully archived %d fast records\n", archived)
	return nil
}
