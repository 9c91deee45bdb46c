package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boutiqueapp/boutique/config"
	"github.com/boutiqueapp/boutique/internal/adminapi"
	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/storeapi"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

var configFile string

const (
	formatFlag = "format"
	outFlag    = "out"
)

var backupFlags = map[string]cobraflags.Flag{
	outFlag: &cobraflags.StringFlag{
		Name:  outFlag,
		Value: "",
		Usage: "Backup file, defaults to the backup directory",
	},
}

var exportFlags = map[string]cobraflags.Flag{
	formatFlag: &cobraflags.StringFlag{
		Name:  formatFlag,
		Value: "csv",
		Usage: "Export format (csv, xlsx)",
	},
	outFlag: &cobraflags.StringFlag{
		Name:  outFlag,
		Value: "",
		Usage: "Output file, stdout when empty",
	},
}

func main() {
	root := &cobra.Command{
		Use:           "boutique",
		Short:         "Boutique storefront and back-office server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default boutique.yml)")
	serveCmd := newServeCommand()
	root.RunE = serveCmd.RunE
	root.AddCommand(serveCmd, newInitDBCommand(), newMigrateCommand(), newExportCommand(), newBackupCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApplication() *app.Application {
	cfg := config.LoadConfig(configFile)
	cfg.InitDirs()
	a := app.NewApplication(cfg)
	a.Init(cfg)
	return a
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			a := newApplication()
			defer a.Release()

			s := webserver.Init(a)
			storeapi.Init()
			adminapi.Init()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.StartBackgroundJobs(ctx)

			errCh := make(chan error, 1)
			go func() { errCh <- s.Start() }()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			zap.L().Info("shutting down", zap.String("namespace", "main"))
			return s.Shutdown(10 * time.Second)
		},
	}
}

func newInitDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Drop and recreate every table, then seed defaults",
		RunE: func(_ *cobra.Command, _ []string) error {
			a := newApplication()
			defer a.Release()
			a.InitDb()
			a.SeedDefaults()
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			a := newApplication()
			defer a.Release()
			return a.MigrateDB(a.Config().Database.Debug)
		},
	}
}

func newExportCommand() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export store data",
	}
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Export the product catalog",
		RunE:  exportProducts,
	}
	cobraflags.RegisterMap(productsCmd, exportFlags)
	exportCmd.AddCommand(productsCmd)
	return exportCmd
}

func exportProducts(_ *cobra.Command, _ []string) error {
	format := exportFlags[formatFlag].GetString()
	out := exportFlags[outFlag].GetString()

	a := newApplication()
	defer a.Release()

	var rows []domain.Product
	if err := a.DB().Order("created_at DESC").Find(&rows).Error; err != nil {
		return fmt.Errorf("query products: %w", err)
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch format {
	case "csv":
		return adminapi.WriteProductsCSV(w, rows)
	case "xlsx":
		return adminapi.WriteProductsXLSX(w, rows)
	default:
		return fmt.Errorf("unknown format %q, expected csv or xlsx", format)
	}
}

func newBackupCommand() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump every store table to a JSON file",
		RunE: func(_ *cobra.Command, _ []string) error {
			a := newApplication()
			defer a.Release()

			out := backupFlags[outFlag].GetString()
			if out == "" {
				out = filepath.Join(a.Config().GetBackupDir(),
					fmt.Sprintf("boutique_backup_%s.json", time.Now().Format("20060102_150405")))
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := adminapi.WriteBackup(a.DB(), f); err != nil {
				return err
			}
			zap.L().Info("backup written", zap.String("namespace", "main"), zap.String("file", out))
			return nil
		},
	}
	cobraflags.RegisterMap(backupCmd, backupFlags)
	return backupCmd
}
