package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"ledger/internal/config"
	"ledger/internal/db"
	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/store"
)

type chartAccount struct {
	Code          string         `yaml:"code"`
	Name          string         `yaml:"name"`
	Type          string         `yaml:"type"`
	NormalBalance string         `yaml:"normal_balance"`
	Description   string         `yaml:"description"`
	Children      []chartAccount `yaml:"children"`
}

type chart struct {
	Accounts []chartAccount `yaml:"accounts"`
}

func main() {
	flag.Parse()

	cfg := config.Load()
	file := cfg.ChartFile
	if flag.NArg() > 0 {
		file = flag.Arg(0)
	}

	content, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("failed to read chart file: %v", err)
	}
	var c chart
	if err := yaml.Unmarshal(content, &c); err != nil {
		log.Fatalf("failed to parse chart file: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	accounts := store.NewAccountStore(database)
	entries := store.NewLedgerStore(database)
	audit := store.NewAuditStore(database)
	registry := services.NewRegistry(db.NewTxRunner(database), accounts, entries, audit)

	created, skipped := 0, 0
	ctx := context.Background()
	for _, account := range c.Accounts {
		seedTree(ctx, registry, account, "", &created, &skipped)
	}
	log.Printf("chart seeded from %s: %d created, %d already present", file, created, skipped)
}

func seedTree(ctx context.Context, registry *services.Registry, account chartAccount, parentCode string, created, skipped *int) {
	_, err := registry.Create(ctx, services.AccountSpec{
		Code:          account.Code,
		Name:          account.Name,
		Type:          models.AccountType(account.Type),
		NormalBalance: models.BalanceSide(account.NormalBalance),
		ParentCode:    parentCode,
		Description:   account.Description,
		Actor:         "seed",
	})
	switch {
	case err == nil:
		*created++
	case errors.Is(err, services.ErrDuplicateCode):
		*skipped++
	default:
		log.Fatalf("failed to create account %s: %v", account.Code, err)
	}
	for _, child := range account.Children {
		seedTree(ctx, registry, child, account.Code, created, skipped)
	}
}
