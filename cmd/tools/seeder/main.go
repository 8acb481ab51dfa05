package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/pharma-billing/internal/app"
	"github.com/noah-isme/pharma-billing/internal/config"
	"github.com/noah-isme/pharma-billing/internal/invoice"
	"github.com/noah-isme/pharma-billing/internal/store"
)

type seedProduct struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ListPrice      float64 `json:"listPrice"`
	TaxRatePercent float64 `json:"taxRatePercent"`
	Stock          float64 `json:"stock"`
}

var defaultProducts = []seedProduct{
	{ID: "PCM500", Name: "Paracetamol 500mg Strip/10", ListPrice: 23.60, TaxRatePercent: 18, Stock: 500},
	{ID: "CTZ10", Name: "Cetirizine 10mg Strip/10", ListPrice: 28.00, TaxRatePercent: 12, Stock: 300},
	{ID: "AMX250", Name: "Amoxicillin 250mg Strip/10", ListPrice: 78.40, TaxRatePercent: 12, Stock: 120},
	{ID: "ORS21", Name: "ORS Sachet 21g", ListPrice: 21.00, TaxRatePercent: 5, Stock: 1000},
	{ID: "INS-GLR", Name: "Insulin Glargine 100IU/ml", ListPrice: 680.00, TaxRatePercent: 5, Stock: 24},
	{ID: "BNDG-5", Name: "Crepe Bandage 5cm", ListPrice: 59.00, TaxRatePercent: 18, Stock: 60},
}

func main() {
	var (
		file   = flag.String("file", "", "JSON file with products to seed; defaults to a built-in sample set")
		dryRun = flag.Bool("dry-run", false, "print the products without writing them")
	)
	flag.Parse()

	products := defaultProducts
	if strings.TrimSpace(*file) != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("open seed file: %v", err)
		}
		products, err = readProducts(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("read seed file: %v", err)
		}
	}

	if *dryRun {
		for _, p := range products {
			fmt.Printf("%-10s %-32s %10.2f %5.1f%% stock=%g\n", p.ID, p.Name, p.ListPrice, p.TaxRatePercent, p.Stock)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := app.NewPool(ctx, cfg.DatabaseURL, "pharma-billing-seeder")
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	catalog := store.NewCatalogStore(pool)
	inventory := store.NewInventoryStore(pool)
	for _, p := range products {
		if err := catalog.UpsertProduct(ctx, invoice.Product{ID: p.ID, Name: p.Name, ListPrice: p.ListPrice, TaxRatePercent: p.TaxRatePercent}); err != nil {
			log.Fatalf("seed product %s: %v", p.ID, err)
		}
		if err := inventory.SetStock(ctx, p.ID, p.Stock); err != nil {
			log.Fatalf("seed stock %s: %v", p.ID, err)
		}
	}
	log.Printf("seeded %d products", len(products))
}

func readProducts(r io.Reader) ([]seedProduct, error) {
	var products []seedProduct
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, err
	}
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("product %d: id is required", i)
		}
		if p.ListPrice < 0 || p.TaxRatePercent < 0 || p.Stock < 0 {
			return nil, fmt.Errorf("product %s: negative price, tax or stock", p.ID)
		}
	}
	return products, nil
}
