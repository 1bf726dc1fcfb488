package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/utafrali/EcommerceGo/storefront/internal/checkout"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func (c *cli) loginCmd() *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := c.app.Session.Login(cmd.Context(), creds)
			if !res.Success {
				return userError(res.Failure)
			}
			s, _ := c.app.Session.Current()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s. Welcome, %s\n", res.Message, s.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	return cmd
}

func (c *cli) signupCmd() *cobra.Command {
	var in domain.SignupInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}
			res := c.app.Session.Signup(cmd.Context(), in)
			if !res.Success {
				return userError(res.Failure)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s. Welcome, %s\n", res.Message, in.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation (defaults to --password)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logged out, but the stored session could not be removed: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			s, ok := c.app.Session.Current()
			if !ok {
				_, _ = fmt.Fprintln(w, "Not logged in")
				return nil
			}
			_, _ = fmt.Fprintf(w, "%s (id %s)", s.DisplayName, s.UserID)
			if s.Email != "" {
				_, _ = fmt.Fprintf(w, " <%s>", logger.MaskEmail(s.Email))
			}
			_, _ = fmt.Fprintln(w)
			if exp, ok := c.app.Session.TokenExpiry(); ok {
				state := "valid"
				if time.Now().After(exp) {
					state = "expired"
				}
				_, _ = fmt.Fprintf(w, "Token %s until %s\n", state, exp.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := c.app.Checkout.CartView()
			defer view.Close()

			report, err := view.Load(cmd.Context())
			if err != nil {
				return userError(err)
			}
			if report.CartErr != nil {
				return userError(report.CartErr)
			}
			printCart(cmd.OutOrStdout(), view.Cart())
			if !view.Cart().IsEmpty() {
				printPrice(cmd.OutOrStdout(), view.Price())
			}
			return nil
		},
	}
	cmd.AddCommand(c.cartAddCmd(), c.cartRemoveCmd(), c.cartClearCmd())
	return cmd
}

func (c *cli) cartAddCmd() *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := c.app.Checkout.CartView()
			defer view.Close()

			if err := view.Add(cmd.Context(), domain.ID(args[0]), quantity); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added to cart (%d items)\n", view.Cart().ItemCount())
			return nil
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	return cmd
}

func (c *cli) cartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ITEM_ID",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := c.app.Checkout.CartView()
			defer view.Close()

			if report, err := view.Load(cmd.Context()); err != nil {
				return userError(err)
			} else if report.CartErr != nil {
				return userError(report.CartErr)
			}
			if err := view.DeleteItem(cmd.Context(), domain.ID(args[0])); err != nil {
				if errors.Is(err, checkout.ErrUnknownCartItem) {
					return fmt.Errorf("no cart item %s", args[0])
				}
				return userError(err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Item removed from cart")
			return nil
		},
	}
}

func (c *cli) cartClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every item from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("clearing the cart needs confirmation: pass --yes")
			}
			view := c.app.Checkout.CartView()
			defer view.Close()

			if err := view.Clear(cmd.Context()); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

// ---------------------------------------------------------------------------
// Addresses
// ---------------------------------------------------------------------------

func (c *cli) addressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "List saved addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.enter(cmd, c.app.Checkout.Begin())
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.State()
			printAddresses(cmd.OutOrStdout(), st.Addresses, st.SelectedAddress)
			return nil
		},
	}
	cmd.AddCommand(c.addressAddCmd(), c.addressRemoveCmd())
	return cmd
}

func (c *cli) addressAddCmd() *cobra.Command {
	var (
		in   domain.AddressInput
		from string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a delivery address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, next, err := c.app.Checkout.CreateAddress(cmd.Context(), in, from)
			if err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved address %s: %s\nNext: %s\n", addr.ID, addr.String(), next.To)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Street, "street", "", "street")
	cmd.Flags().StringVar(&in.City, "city", "", "city")
	cmd.Flags().StringVar(&in.State, "state", "", "state")
	cmd.Flags().StringVar(&in.ZipCode, "zip", "", "zip code")
	cmd.Flags().StringVar(&from, "from", "", "where the form was opened from (checkout or profile)")
	return cmd
}

func (c *cli) addressRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ADDRESS_ID",
		Short: "Delete a saved address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app.Checkout.Begin()
			defer a.Close()

			if err := a.DeleteAddress(cmd.Context(), domain.ID(args[0])); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Address deleted")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Checkout
// ---------------------------------------------------------------------------

type checkoutFlags struct {
	address string
	yes     bool
}

func (f *checkoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.address, "address", "", "delivery address id (defaults to the default address)")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "place the order instead of only reviewing it")
}

func (c *cli) checkoutCmd() *cobra.Command {
	var flags checkoutFlags
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Review and place an order for the whole cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runCheckout(cmd, c.app.Checkout.Begin(), flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) buyCmd() *cobra.Command {
	var (
		flags    checkoutFlags
		product  domain.Product
		quantity int
	)
	cmd := &cobra.Command{
		Use:   "buy PRODUCT_ID",
		Short: "Order a single product without touching the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product.ID = domain.ID(args[0])
			if product.Name == "" {
				product.Name = "Product " + args[0]
			}
			a, err := c.app.Checkout.BuyNow(product, quantity)
			if err != nil {
				if errors.Is(err, checkout.ErrInvalidQuantity) {
					return fmt.Errorf("quantity must be between 1 and %s", stockLimit(product))
				}
				return err
			}
			return c.runCheckout(cmd, a, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&product.Name, "name", "", "product name")
	cmd.Flags().Float64Var(&product.Price, "price", 0, "unit price")
	cmd.Flags().IntVar(&product.Stock, "stock", 0, "units in stock (0 when unknown)")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity")
	return cmd
}

func stockLimit(p domain.Product) string {
	if p.Stock > 0 {
		return strconv.Itoa(p.Stock)
	}
	return "any"
}

func (c *cli) enter(cmd *cobra.Command, a *checkout.Attempt) (*checkout.Attempt, error) {
	report, err := a.Enter(cmd.Context())
	if err != nil {
		a.Close()
		return nil, userError(err)
	}
	if reportLoad(cmd.ErrOrStderr(), report) {
		a.Close()
		return nil, errors.New("checkout data could not be loaded")
	}
	return a, nil
}

func (c *cli) runCheckout(cmd *cobra.Command, a *checkout.Attempt, flags checkoutFlags) error {
	a, err := c.enter(cmd, a)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	if flags.address != "" {
		if err := a.SelectAddress(domain.ID(flags.address)); err != nil {
			return fmt.Errorf("address %s: %w", flags.address, err)
		}
	}
	if err := a.Advance(); err != nil {
		if errors.Is(err, checkout.ErrNoAddressSelected) {
			printAddresses(w, a.State().Addresses, nil)
			return errors.New("choose a delivery address with --address, or add one with `storefront address add --from checkout`")
		}
		return err
	}

	st := a.State()
	_, _ = fmt.Fprintf(w, "Deliver to: %s\n", st.SelectedAddress.String())
	printCart(w, st.Cart)
	printPrice(w, a.Price())

	if !flags.yes {
		_, _ = fmt.Fprintln(w, "Re-run with --yes to place the order")
		return nil
	}

	done, err := a.PlaceOrder(cmd.Context())
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			return errors.New("your cart is empty")
		}
		return userError(err)
	}
	_, _ = fmt.Fprintf(w, "Order %s placed\n", done.Order.ID)
	return nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func (c *cli) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show order history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := c.app.Orders.List(cmd.Context())
			if err != nil {
				return userError(err)
			}
			w := cmd.OutOrStdout()
			if len(page.Orders) == 0 {
				_, _ = fmt.Fprintln(w, "No orders yet")
				return nil
			}
			for _, o := range page.Orders {
				printOrder(w, o)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the session store and the commerce API client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := c.app.Health().Run(cmd.Context())
			w := cmd.OutOrStdout()
			for _, name := range report.Names() {
				res := report.Checks[name]
				line := fmt.Sprintf("%-14s %s", name, res.Status)
				if res.Error != "" {
					line += ": " + res.Error
				}
				_, _ = fmt.Fprintln(w, line)
			}
			_, _ = fmt.Fprintf(w, "overall        %s\n", report.Status)
			if report.Status == health.StatusDown {
				return errors.New("storefront is not operational")
			}
			return nil
		},
	}
}
