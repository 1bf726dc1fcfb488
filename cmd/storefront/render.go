package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/utafrali/EcommerceGo/storefront/internal/checkout"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// userError turns an operation error into what the user reads.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if r, ok := checkout.LoginRedirect(err); ok {
		if r.From != "" {
			return fmt.Errorf("not logged in: run `storefront login`, then retry (%s)", r.From)
		}
		return errors.New("not logged in: run `storefront login`")
	}
	var f apperrors.Failure
	if errors.As(err, &f) {
		return errors.New(renderFailure(f))
	}
	return err
}

func renderFailure(f apperrors.Failure) string {
	msgs := f.Messages()
	if general, ok := msgs[apperrors.GeneralKey]; ok && len(msgs) == 1 {
		return strings.Join(general, "; ")
	}

	fields := make([]string, 0, len(msgs))
	for field := range msgs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		lines = append(lines, field+": "+strings.Join(msgs[field], ", "))
	}
	return strings.Join(lines, "\n")
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func printCart(w io.Writer, cart domain.Cart) {
	if cart.IsEmpty() {
		_, _ = fmt.Fprintln(w, "Your cart is empty")
		return
	}
	for _, it := range cart.Items {
		_, _ = fmt.Fprintf(w, "%-6s %-30s %3d x %10s\n",
			it.ID, it.Product.Name, it.Quantity, money(it.Product.Price))
	}
}

func printPrice(w io.Writer, p domain.PriceBreakdown) {
	_, _ = fmt.Fprintf(w, "Subtotal: %s\n", money(p.Subtotal))
	_, _ = fmt.Fprintf(w, "Tax:      %s\n", money(p.TaxAmount))
	if p.ShippingAmount == 0 {
		_, _ = fmt.Fprintln(w, "Shipping: free")
	} else {
		_, _ = fmt.Fprintf(w, "Shipping: %s\n", money(p.ShippingAmount))
	}
	_, _ = fmt.Fprintf(w, "Total:    %s\n", money(p.Total))
}

func printAddresses(w io.Writer, addrs []domain.Address, selected *domain.Address) {
	if len(addrs) == 0 {
		_, _ = fmt.Fprintln(w, "No saved addresses")
		return
	}
	for _, a := range addrs {
		mark := " "
		if selected != nil && selected.ID == a.ID {
			mark = "*"
		}
		def := ""
		if a.IsDefault {
			def = " (default)"
		}
		_, _ = fmt.Fprintf(w, "%s %-6s %s%s\n", mark, a.ID, a.String(), def)
	}
}

func printOrder(w io.Writer, o domain.Order) {
	_, _ = fmt.Fprintf(w, "Order %s", o.ID)
	if !o.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, " placed %s", o.CreatedAt.Format("2006-01-02 15:04"))
	}
	if o.Status != "" {
		_, _ = fmt.Fprintf(w, " [%s]", o.Status)
	}
	_, _ = fmt.Fprintln(w)
	for _, it := range o.Items {
		_, _ = fmt.Fprintf(w, "  %-30s %3d x %10s\n", it.Product.Name, it.Quantity, money(it.Price))
	}
	_, _ = fmt.Fprintf(w, "  Total: %s\n", money(o.Total()))
}

// reportLoad prints the loads that failed and returns whether any did.
func reportLoad(w io.Writer, r checkout.LoadReport) bool {
	if r.AddressErr != nil {
		_, _ = fmt.Fprintln(w, "Addresses unavailable:", userError(r.AddressErr))
	}
	if r.CartErr != nil {
		_, _ = fmt.Fprintln(w, "Cart unavailable:", userError(r.CartErr))
	}
	return !r.OK()
}
