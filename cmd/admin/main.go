package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/caisseapp/backoffice/internal/cache"
	"github.com/caisseapp/backoffice/internal/config"
	"github.com/caisseapp/backoffice/internal/repository"
	"github.com/caisseapp/backoffice/internal/service"
	"github.com/caisseapp/backoffice/internal/storage"
	"github.com/caisseapp/backoffice/internal/store/postgres"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

type env struct {
	db       *postgres.Store
	sales    repository.SaleRepository
	products repository.ProductRepository
	archive  repository.ArchiveRepository
	alerts   repository.AlertRepository
}

func openEnv(c *cli.Context) (*env, error) {
	db, err := postgres.NewFromURL(c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(c.Context); err != nil {
		db.Close()
		return nil, err
	}
	return &env{
		db:       db,
		sales:    repository.NewSaleRepository(db),
		products: repository.NewProductRepository(db),
		archive:  repository.NewArchiveRepository(db),
		alerts:   repository.NewAlertRepository(db),
	}, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "admin",
		Usage: "Back-office maintenance: product sync, stock reconciliation, sale archival, exports",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Extract products from sales and sync the catalog",
				Flags: []cli.Flag{newDBURLFlag()},
				Action: func(c *cli.Context) error {
					e, err := openEnv(c)
					if err != nil {
						return err
					}
					defer e.db.Close()

					svc := service.NewProductService(e.products, e.sales, e.alerts, cache.NewNoopStatsCache())
					result, err := svc.SyncFromSales(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("sync complete: %d updated, %d created\n", result.Updated, result.Created)
					return nil
				},
			},
			{
				Name:  "refresh-stocks",
				Usage: "Re-run stock reconciliation for every configured product",
				Flags: []cli.Flag{newDBURLFlag()},
				Action: func(c *cli.Context) error {
					e, err := openEnv(c)
					if err != nil {
						return err
					}
					defer e.db.Close()

					svc := service.NewProductService(e.products, e.sales, e.alerts, cache.NewNoopStatsCache())
					count, err := svc.RefreshAllStocks(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("reconciled %d configured products\n", count)
					return nil
				},
			},
			{
				Name:      "archive",
				Usage:     "Archive the given sale ids (comma separated)",
				ArgsUsage: "<id>[,<id>...]",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "archived-by",
						Usage: "Recorded as the archiving actor",
						Value: "admin-cli",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("no sale ids given")
					}
					e, err := openEnv(c)
					if err != nil {
						return err
					}
					defer e.db.Close()

					svc := service.NewSalesService(e.sales, e.archive, cache.NewNoopStatsCache(), config.ArchiveConfig{
						ArchivedBy: c.String("archived-by"),
						Note:       "Archived through admin CLI",
					})
					if err := svc.InitArchive(c.Context); err != nil {
						return err
					}

					ids := strings.Split(strings.Join(c.Args().Slice(), ","), ",")
					result := svc.ArchiveSales(c.Context, ids, c.String("archived-by"))
					fmt.Printf("archived=%d not_found=%d errors=%d success=%v\n",
						result.SuccessCount, result.NotFoundCount, result.ErrorCount, result.Success)
					for _, msg := range result.Errors {
						fmt.Println("  " + msg)
					}
					if !result.Success {
						return fmt.Errorf("archive batch failed")
					}
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Export sales as CSV to object storage",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.BoolFlag{
						Name:  "archived",
						Usage: "Export the archived set instead of the active one",
					},
				},
				Action: func(c *cli.Context) error {
					cfg := config.Load()
					if !cfg.Storage.Enabled {
						return fmt.Errorf("object storage is not configured (set STORAGE_ENABLED)")
					}

					e, err := openEnv(c)
					if err != nil {
						return err
					}
					defer e.db.Close()

					objects, err := storage.NewMinioClient(cfg.Storage)
					if err != nil {
						return err
					}

					svc := service.NewExportService(e.sales, e.archive, objects)
					key, err := svc.ExportSales(c.Context, c.Bool("archived"))
					if err != nil {
						return err
					}
					fmt.Printf("uploaded %s\n", key)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
