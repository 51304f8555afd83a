package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopledger/shopledger/internal/app"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/vendors"
)

func main() {
	hash := flag.String("hash", "", "print the bcrypt hash of a passkey and exit")
	flag.Parse()
	if *hash != "" {
		out, err := bcrypt.GenerateFromPassword([]byte(*hash), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash passkey: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	container, err := app.NewContainer(ctx, cfg, app.NewLogger(cfg))
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer container.Close()

	fmt.Println("→ Applying schema...")
	if err := container.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	fmt.Println("→ Seeding catalog...")
	if err := seedCatalog(ctx, container.Services); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	fmt.Println("→ Seeding opening stock...")
	if err := seedOpening(ctx, container.Services); err != nil {
		log.Fatalf("seed opening stock: %v", err)
	}

	fmt.Println("→ Seeding customers and vendors...")
	if err := seedParties(ctx, container.Services); err != nil {
		log.Fatalf("seed parties: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
	if cfg.StoreDriver == app.DriverMemory {
		fmt.Fprintln(os.Stderr, "memory store selected, seeded data is discarded on exit")
	}
}

// skipDuplicate makes reruns idempotent.
func skipDuplicate(err error) error {
	if errors.Is(err, shared.ErrDuplicate) {
		return nil
	}
	return err
}

func seedCatalog(ctx context.Context, svc *app.Services) error {
	items := []catalog.CreateItemRequest{
		{Name: "Sugar 1kg", Code: "SG1"},
		{Name: "Rice 5kg", Code: "RC5"},
		{Name: "Flour", Code: "FL"},
		{Name: "Sunflower Oil 1L", Code: "OL1"},
		{Name: "Plain Cake"},
	}
	for _, item := range items {
		if _, err := svc.Catalog.Create(ctx, item); skipDuplicate(err) != nil {
			return fmt.Errorf("%s: %w", item.Name, err)
		}
	}
	return nil
}

func seedOpening(ctx context.Context, svc *app.Services) error {
	rows := []stock.OpeningRow{
		{Name: "Sugar 1kg", Qty: decimal.NewFromInt(50), Rate: decimal.NewFromInt(42)},
		{Name: "Rice 5kg", Qty: decimal.NewFromInt(20), Rate: decimal.NewFromInt(310)},
		{Name: "Flour", Qty: decimal.NewFromInt(40), Rate: decimal.NewFromInt(30)},
		{Name: "Sunflower Oil 1L", Qty: decimal.NewFromInt(24), Rate: decimal.NewFromInt(135)},
	}
	_, err := svc.Stock.ImportOpening(ctx, stock.OpeningRequest{Rows: rows})
	return err
}

func seedParties(ctx context.Context, svc *app.Services) error {
	people := []customers.CreateCustomerRequest{
		{Mobile: "9876543210", Name: "Asha Traders", Type: customers.TypeWholesale, City: "Pune"},
		{Mobile: "9123456780", Name: "Ravi", City: "Pune"},
	}
	for _, c := range people {
		if _, err := svc.Customers.Create(ctx, c); skipDuplicate(err) != nil {
			return fmt.Errorf("customer %s: %w", c.Mobile, err)
		}
	}
	_, err := svc.Vendors.CreateVendor(ctx, vendors.CreateVendorRequest{Name: "Deccan Wholesale", Mobile: "9988776655", City: "Mumbai"})
	return skipDuplicate(err)
}
