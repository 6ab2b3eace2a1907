package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/lengolf/pos-print/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		fixtureFile string
		samplesOnly bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixtureFile, "fixtures-file", "", "path to a JSONL transactions file, .gz accepted")
	flag.BoolVar(&samplesOnly, "samples-only", false, "seed only the built-in sample transactions")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixtureFile, samplesOnly); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, fixtureFile string, samplesOnly bool) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewTransactionRepository(pool)

	if err := seedSamples(ctx, repo); err != nil {
		return errors.Wrap(err, "seed samples")
	}
	if samplesOnly || fixtureFile == "" {
		return nil
	}

	if err := seedFixtures(ctx, repo, fixtureFile); err != nil {
		return errors.Wrap(err, "seed fixtures")
	}
	return nil
}

// seedSamples writes a small set of representative transactions so a fresh
// install can print immediately: a plain bay rental, a mixed order with
// discounts and split payment, and a customer with a tax identity on record.
func seedSamples(ctx context.Context, repo *postgres.TransactionRepository) error {
	now := time.Now().UTC().Format(time.RFC3339)

	samples := []postgres.SeedTransaction{
		{
			ID:         "RCPT-20260830-0001",
			IssuedAt:   now,
			StaffName:  "May",
			GuestCount: 2,
			Items: []postgres.SeedItem{
				{Description: "Golf Bay Rental (1 Hour)", Quantity: 1, UnitPrice: dec("500.00")},
			},
		},
		{
			ID:              "RCPT-20260830-0002",
			IssuedAt:        now,
			StaffName:       "Net",
			GuestCount:      4,
			ReceiptDiscount: dec("50.00"),
			Items: []postgres.SeedItem{
				{Description: "Golf Bay Rental (2 Hours)", Quantity: 1, UnitPrice: dec("900.00"), Discount: dec("100.00")},
				{Description: "Singha Beer", Quantity: 4, UnitPrice: dec("120.00")},
				{Description: "French Fries with Truffle Mayo Dip", Quantity: 2, UnitPrice: dec("180.00")},
			},
			Payments: []postgres.SeedPayment{
				{Method: "Visa", Amount: dec("1000.00")},
				{Method: "Cash", Amount: dec("701.30")},
			},
		},
		{
			ID:         "RCPT-20260830-0003",
			IssuedAt:   now,
			StaffName:  "May",
			GuestCount: 1,
			CustomerID: "cust-0039",
			Items: []postgres.SeedItem{
				{Description: "Monthly Membership", Quantity: 1, UnitPrice: dec("3500.00")},
			},
			Payments: []postgres.SeedPayment{
				{Method: "PromptPay", Amount: dec("3745.00")},
			},
			TaxProfile: &postgres.SeedTaxProfile{
				Name:  "Acme Trading Co., Ltd.",
				TaxID: "0105559988776",
			},
		},
	}

	for _, s := range samples {
		if err := repo.UpsertTransaction(ctx, s); err != nil {
			return errors.Wrapf(err, "upsert %s", s.ID)
		}
		slog.Info("upserted sample", slog.String("id", s.ID))
	}
	return nil
}

// seedFixtures streams a JSONL file, one SeedTransaction per line, and
// upserts each. Files ending in .gz are decompressed on the fly.
func seedFixtures(ctx context.Context, repo *postgres.TransactionRepository, path string) error {
	slog.Info("reading fixtures", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var count int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var st postgres.SeedTransaction
		if err := json.Unmarshal([]byte(line), &st); err != nil {
			return errors.Wrapf(err, "parse fixture line %d", count+1)
		}
		if err := repo.UpsertTransaction(ctx, st); err != nil {
			return errors.Wrapf(err, "upsert %s", st.ID)
		}

		count++
		if count%1000 == 0 {
			slog.Info("seed progress", slog.Int("transactions", count))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("fixtures seeded", slog.Int("transactions", count))
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
