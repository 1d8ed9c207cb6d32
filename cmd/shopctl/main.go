// Command shopctl browses the storefront and manages a cart from the
// terminal. The cart keeps working offline and syncs through the same
// client adapter a frontend would use.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
	"MarketID/internal/client"
	"MarketID/pkg/kit"
	"MarketID/pkg/money"
)

type command struct {
	summary string
	usage   string
	run     func(ctx context.Context, e *env, args []string) error
}

type env struct {
	out     io.Writer
	adapter *client.Adapter
	api     *client.APIClient
}

var commands = map[string]command{
	"products":   {"list products", "products [--category C] [--q TEXT] [--featured]", runProducts},
	"product":    {"show one product", "product ID", runProduct},
	"categories": {"list categories with counts", "categories", runCategories},
	"flash-sale": {"list flash sale products", "flash-sale", runFlashSale},
	"cart":       {"show the cart", "cart", runCart},
	"add":        {"add a product to the cart", "add ID", runAdd},
	"set":        {"set the quantity of a cart line", "set ID QUANTITY", runSet},
	"remove":     {"remove a cart line", "remove ID", runRemove},
	"checkout":   {"check out the cart", "checkout", runCheckout},
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "shopctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("shopctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(stderr)

	server := fs.String("server", envOr("STOREFRONT_URL", "http://localhost:5000"), "storefront base URL")
	stateDir := fs.String("state-dir", defaultStateDir(), "where the local cart, session and catalog copies live")
	timeout := fs.Duration("timeout", 3*time.Second, "per-request timeout")
	logLevel := fs.String("log-level", "error", "log level")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return errors.New("missing command")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(stderr, fs)
		return errors.Errorf("unknown command %q", name)
	}

	log, err := kit.NewLogger("shopctl", *logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := client.NewFileStorage(*stateDir)
	if err != nil {
		return err
	}

	api := client.NewAPIClient(*server)
	api.Client.Timeout = *timeout

	e := &env{out: stdout, api: api, adapter: client.NewAdapter(api, store, log)}
	if err := cmd.run(context.Background(), e, fs.Args()[1:]); err != nil {
		return errors.Wrap(err, name)
	}
	return nil
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: shopctl [flags] COMMAND [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")

	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", commands[n].usage, commands[n].summary)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

func runProducts(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("products", pflag.ContinueOnError)
	var f catalog.Filter
	fs.StringVar(&f.Category, "category", "", "category name")
	fs.StringVar(&f.Query, "q", "", "search text")
	fs.BoolVar(&f.Featured, "featured", false, "only featured products")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ps, err := e.adapter.Products(ctx, f)
	if err != nil {
		return err
	}
	printProducts(e.out, ps)
	return nil
}

func runProduct(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: product ID")
	}
	p, err := e.adapter.Product(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "%s  %s\n", p.ID, p.Name)
	fmt.Fprintf(e.out, "  %s\n", p.Description)
	fmt.Fprintf(e.out, "  price:    %s%s\n", money.IDR(p.Price), was(p))
	fmt.Fprintf(e.out, "  rating:   %.1f (%s sold)\n", p.Rating, money.Compact(p.SoldCount))
	fmt.Fprintf(e.out, "  category: %s\n", p.Category)
	return nil
}

func runCategories(ctx context.Context, e *env, _ []string) error {
	cs, err := e.api.Categories(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Count)
	}
	return tw.Flush()
}

func runFlashSale(ctx context.Context, e *env, _ []string) error {
	ps, err := e.api.FlashSale(ctx)
	if err != nil {
		return err
	}
	printProducts(e.out, ps)
	return nil
}

func runCart(ctx context.Context, e *env, _ []string) error {
	e.adapter.Load(ctx)
	printCart(e)
	return nil
}

func runAdd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: add ID")
	}
	p, err := e.adapter.Product(ctx, args[0])
	if err != nil {
		return err
	}
	e.adapter.Load(ctx)
	if _, err := e.adapter.Add(ctx, p); err != nil {
		return err
	}
	printCart(e)
	return nil
}

func runSet(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set ID QUANTITY")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrap(err, "quantity")
	}
	e.adapter.Load(ctx)
	if _, err := e.adapter.SetQuantity(ctx, args[0], qty); err != nil {
		return err
	}
	printCart(e)
	return nil
}

func runRemove(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: remove ID")
	}
	e.adapter.Load(ctx)
	if _, err := e.adapter.Remove(ctx, args[0]); err != nil {
		return err
	}
	printCart(e)
	return nil
}

func runCheckout(ctx context.Context, e *env, _ []string) error {
	e.adapter.Load(ctx)
	total := e.adapter.TotalPrice()

	r, err := e.adapter.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, r.Message)
	if r.Offline {
		fmt.Fprintln(e.out, "(offline: the order was not sent to the store)")
		return nil
	}
	fmt.Fprintf(e.out, "order %s, total %s\n", r.OrderID, money.IDR(total))
	return nil
}

func printProducts(w io.Writer, ps []catalog.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSOLD")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%s\t%s\n",
			p.ID, p.Name, p.Category, money.IDR(p.Price), discount(p), money.Compact(p.SoldCount))
	}
	_ = tw.Flush()
}

func printCart(e *env) {
	c := e.adapter.Cart()
	if len(c) == 0 {
		fmt.Fprintln(e.out, "cart is empty")
	} else {
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
		for _, it := range c {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				it.ID, it.Name, it.Quantity, money.IDR(it.Price), money.IDR(subtotal(it)))
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(e.out, "%d items, total %s\n", e.adapter.TotalItems(), money.IDR(e.adapter.TotalPrice()))
	if e.adapter.Offline() {
		fmt.Fprintln(e.out, "(offline: showing the local cart)")
	}
}

func subtotal(it cart.LineItem) decimal.Decimal {
	return cart.Cart{it}.TotalPrice()
}

func discount(p catalog.Product) string {
	if p.Discount == nil || *p.Discount <= 0 {
		return ""
	}
	return fmt.Sprintf(" (-%d%%)", *p.Discount)
}

func was(p catalog.Product) string {
	if p.OriginalPrice == nil {
		return ""
	}
	return "  was " + money.IDR(*p.OriginalPrice) + discount(p)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "shopctl")
	}
	return ".shopctl"
}
