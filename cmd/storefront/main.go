package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/utafrali/EcommerceGo/storefront/internal/app"
	"github.com/utafrali/EcommerceGo/storefront/internal/config"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// cli holds the application shared by all commands of one invocation.
type cli struct {
	app         *app.App
	unsubscribe func()
}

func (c *cli) open(cmd *cobra.Command) error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithWriter("storefront", cfg.LogLevel, cmd.ErrOrStderr())

	a, err := app.NewApp(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("initialize storefront: %w", err)
	}
	c.app = a

	// One correlation id per invocation; it doubles as the request id of
	// every API call the command makes.
	ctx := logger.WithCorrelationID(cmd.Context(), uuid.NewString())
	if s, ok := a.Session.Current(); ok {
		ctx = logger.WithUserID(ctx, s.UserID.String())
	}
	cmd.SetContext(ctx)

	// Keep the logged user id in step with login and logout.
	c.unsubscribe = a.Session.OnChange(func(s domain.Session, ok bool) {
		var id string
		if ok {
			id = s.UserID.String()
		}
		cmd.SetContext(logger.WithUserID(cmd.Context(), id))
	})
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	err := c.app.Shutdown()
	c.app = nil
	return err
}

func rootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront client",
		Long:          "Storefront client for the commerce API: session, cart, addresses, checkout and order history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}

	cmd.AddCommand(
		c.loginCmd(),
		c.signupCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.cartCmd(),
		c.addressCmd(),
		c.checkoutCmd(),
		c.buyCmd(),
		c.ordersCmd(),
		c.statusCmd(),
	)
	return cmd
}

func execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &cli{}
	err := rootCmd(c).ExecuteContext(ctx)
	if closeErr := c.close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
