package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/esani/pantportal/internal/account"
	"github.com/esani/pantportal/internal/bag"
	"github.com/esani/pantportal/internal/clock"
	"github.com/esani/pantportal/internal/config"
	"github.com/esani/pantportal/internal/deposit"
	"github.com/esani/pantportal/internal/export"
	"github.com/esani/pantportal/internal/identity"
	"github.com/esani/pantportal/internal/importer"
	"github.com/esani/pantportal/internal/logger"
	"github.com/esani/pantportal/internal/machine"
	"github.com/esani/pantportal/internal/migration"
	"github.com/esani/pantportal/internal/product"
	"github.com/esani/pantportal/internal/qrcode"
	"github.com/esani/pantportal/internal/tomra"
	"github.com/esani/pantportal/pkg/db"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pantctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pantctl",
		Short:         "Management jobs for the deposit-return backoffice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newImportFilesCommand(),
		newImportSessionsCommand(),
		newGenerateQRCommand(),
		newExportCreditNotesCommand(),
		newExportDebtorsCommand(),
		newCreatePayoutCommand(),
		newAddProductCommand(),
		newListProductsCommand(),
	)
	return cmd
}

// runJob stands up the full dependency graph, runs one invocation and
// tears everything down again. Job errors fail the start and surface as a
// non-zero exit.
func runJob(ctx context.Context, invocation any) error {
	app := fx.New(
		fx.NopLogger,

		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		account.Module,
		product.Module,
		machine.Module,
		qrcode.Module,
		bag.Module,
		deposit.Module,
		tomra.Module,
		identity.Module,
		importer.Module,
		export.Module,

		fx.Invoke(invocation),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(ctx)
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
