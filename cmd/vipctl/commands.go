package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	"github.com/smallbiznis/autobazaar/internal/pricing"
	"github.com/smallbiznis/autobazaar/internal/purchase"
	"github.com/smallbiznis/autobazaar/internal/storefront"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/smallbiznis/autobazaar/internal/vipstate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

type globalFlags struct {
	apiURL  string
	userID  string
	role    string
	asJSON  bool
	verbose bool
}

// session is everything one command needs to run the purchase flow locally.
type session struct {
	cfg     config.Config
	client  *storefront.Client
	catalog *catalog.Catalog
	clock   clock.Clock
	log     *zap.Logger
	out     io.Writer
	asJSON  bool
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()
	flags := &globalFlags{
		apiURL: cfg.StorefrontAPIURL,
		userID: os.Getenv("VIPCTL_USER_ID"),
		role:   os.Getenv("VIPCTL_USER_ROLE"),
	}

	root := &cobra.Command{
		Use:   "vipctl",
		Short: "Price, buy and inspect VIP promotion of car listings",
		Long: `vipctl runs the storefront purchase flow against the autobazaar API.

Examples:
  vipctl pricing
  vipctl quote --tier vip --days 5 --color 3
  vipctl purchase car-42 --tier super_vip --days 2
  vipctl status car-42
  vipctl disable car-42 color_highlighting`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.apiURL, "api", flags.apiURL, "autobazaar API base URL")
	root.PersistentFlags().StringVar(&flags.userID, "user", flags.userID, "caller user id")
	root.PersistentFlags().StringVar(&flags.role, "role", flags.role, "caller pricing role")
	root.PersistentFlags().BoolVar(&flags.asJSON, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log requests to stderr")

	open := func(cmd *cobra.Command) (*session, error) {
		return openSession(cfg, flags, cmd.OutOrStdout())
	}

	root.AddCommand(
		newPricingCommand(open),
		newQuoteCommand(open),
		newPurchaseCommand(open),
		newStatusCommand(open),
		newDisableCommand(open),
	)
	return root
}

func openSession(cfg config.Config, flags *globalFlags, out io.Writer) (*session, error) {
	log := zap.NewNop()
	if flags.verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = dev
	}

	user := vipdomain.UserContext{UserID: strings.TrimSpace(flags.userID), Role: strings.TrimSpace(flags.role)}
	client, err := storefront.New(flags.apiURL, user, storefront.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("storefront client: %w", err)
	}

	holder, err := config.NewCatalogConfigHolder()
	if err != nil {
		log.Warn("catalog config unreadable, using built-in defaults", zap.Error(err))
		holder = config.NewStaticCatalogConfigHolder(config.DefaultCatalogConfig())
	}
	clk := clock.NewSystemClock(cfg.Location())

	return &session{
		cfg:     cfg,
		client:  client,
		catalog: catalog.New(client, user, holder, clk, log),
		clock:   clk,
		log:     log,
		out:     out,
		asJSON:  flags.asJSON,
	}, nil
}

// snapshot loads the catalog. A failed load still yields fallback prices the
// caller may show but not charge.
func (s *session) snapshot(ctx context.Context) *catalog.Snapshot {
	snap, err := s.catalog.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, yellow("warning: "+err.Error()))
	}
	return snap
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPricingCommand(open func(*cobra.Command) (*session, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "pricing",
		Short: "Show the catalog for the caller's role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			snap := s.snapshot(cmd.Context())
			if s.asJSON {
				return s.printJSON(map[string]any{"origin": snap.Origin, "loaded": snap.Loaded, "entries": snap.Entries()})
			}

			fmt.Fprintf(s.out, "%s %s\n", bold("catalog"), gray(string(snap.Origin)))
			for _, e := range snap.Entries() {
				fmt.Fprintln(s.out, formatEntry(e, s.cfg.Currency))
			}
			return nil
		},
	}
}

func newQuoteCommand(open func(*cobra.Command) (*session, error)) *cobra.Command {
	sel := &selectionFlags{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a selection and check it against the balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selection, err := sel.selection()
			if err != nil {
				return err
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			quote, err := pricing.QuoteSelection(selection, s.snapshot(ctx))
			if err != nil {
				return err
			}
			balance, err := s.client.Current(ctx)
			if err != nil {
				return err
			}
			affordable := pricing.CanAfford(quote.Total, balance)

			if s.asJSON {
				out := map[string]any{"quote": quote, "balance": balance, "can_afford": affordable}
				if !affordable {
					out["shortfall"] = pricing.DescribeShortfall(quote.Total, balance)
				}
				return s.printJSON(out)
			}

			if quote.Tier != nil {
				fmt.Fprintln(s.out, formatLine(*quote.Tier))
			}
			for _, line := range quote.AddOns {
				fmt.Fprintln(s.out, formatLine(line))
			}
			fmt.Fprintf(s.out, "%s %s %s\n", bold("total"), quote.Total.StringFixed(2), s.cfg.Currency)
			fmt.Fprintf(s.out, "%s %s %s\n", bold("balance"), balance.StringFixed(2), s.cfg.Currency)
			if !affordable {
				short := pricing.DescribeShortfall(quote.Total, balance)
				fmt.Fprintln(s.out, red(fmt.Sprintf("insufficient balance: missing %s", short.Missing.StringFixed(2))))
			}
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}

func newPurchaseCommand(open func(*cobra.Command) (*session, error)) *cobra.Command {
	sel := &selectionFlags{}
	var idempotencyKey string
	cmd := &cobra.Command{
		Use:   "purchase <car-id>",
		Short: "Buy a selection for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selection, err := sel.selection()
			if err != nil {
				return err
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(idempotencyKey) == "" {
				idempotencyKey = uuid.NewString()
			}

			ctx := cmd.Context()
			result, err := purchase.New(purchase.Params{Log: s.log}).Purchase(ctx, purchase.Request{
				CarID:          args[0],
				Selection:      selection,
				IdempotencyKey: idempotencyKey,
			}, s.snapshot(ctx), s.client, s.client)

			if s.asJSON {
				if jsonErr := s.printJSON(result); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			if err != nil {
				if result.RequiredAmount != nil && result.CurrentBalance != nil {
					fmt.Fprintln(s.out, red(fmt.Sprintf("need %s, have %s",
						result.RequiredAmount.StringFixed(2), result.CurrentBalance.StringFixed(2))))
				}
				return fmt.Errorf("purchase failed (%s): %w", result.Reason, err)
			}
			fmt.Fprintf(s.out, "%s charged %s, balance %s %s\n", green("purchased"),
				result.Total.StringFixed(2), result.NewBalance.StringFixed(2), s.cfg.Currency)
			fmt.Fprintln(s.out, gray("idempotency key "+idempotencyKey))
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "reuse a key to retry a purchase safely (default: new key)")
	return cmd
}

func newStatusCommand(open func(*cobra.Command) (*session, error)) *cobra.Command {
	var at string
	var withPrices bool
	cmd := &cobra.Command{
		Use:   "status <car-id>",
		Short: "Show the effective VIP state of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = parsed
			}

			ctx := cmd.Context()
			state, err := s.client.ReadVipState(ctx, args[0])
			if err != nil {
				return err
			}
			var lookup vipdomain.PriceLookup
			if withPrices {
				lookup = s.snapshot(ctx)
			}
			model := vipstate.Describe(state, now, lookup)
			if s.asJSON {
				return s.printJSON(model)
			}
			printDisplayModel(s.out, model)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "describe the state at this RFC3339 instant")
	cmd.Flags().BoolVar(&withPrices, "prices", false, "show renewal prices")
	return cmd
}

func newDisableCommand(open func(*cobra.Command) (*session, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <car-id> [feature...]",
		Short: "Switch off VIP features of a listing (all when none are named)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			features := make([]vipdomain.Feature, 0, len(args)-1)
			for _, raw := range args[1:] {
				f, err := vipdomain.ParseFeature(raw)
				if err != nil {
					return fmt.Errorf("%q: %w", raw, err)
				}
				features = append(features, f)
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}

			state, err := s.client.Disable(cmd.Context(), args[0], features...)
			if err != nil {
				return err
			}
			model := vipstate.Describe(state, s.clock.Now(), nil)
			if s.asJSON {
				return s.printJSON(model)
			}
			printDisplayModel(s.out, model)
			return nil
		},
	}
}

func formatEntry(e vipdomain.PricingEntry, currency string) string {
	unit := "per day"
	if !e.IsDailyPrice {
		unit = fmt.Sprintf("per %d days", e.DurationDays)
	}
	line := fmt.Sprintf("  %-20s %8s %s %s", e.ServiceType, e.Price.StringFixed(2), currency, unit)
	if e.Fallback {
		line += " " + yellow("(fallback)")
	}
	return line
}

func formatLine(l pricing.Line) string {
	detail := fmt.Sprintf("%d days", l.BilledDays)
	if l.Packages > 0 {
		detail = fmt.Sprintf("%d x %d-day package", l.Packages, l.DurationDays)
	}
	line := fmt.Sprintf("  %-20s %-18s %8s", l.ServiceType, detail, l.Amount.StringFixed(2))
	if l.Fallback {
		line += " " + yellow("(fallback)")
	}
	return line
}

func printDisplayModel(out io.Writer, m vipstate.DisplayModel) {
	status := func(f vipstate.Feature) string {
		if !f.Active {
			return gray("inactive")
		}
		return green("active") + " " + f.Countdown
	}
	fmt.Fprintf(out, "%s %s\n", bold(m.CarID), string(m.Tier.Label))
	fmt.Fprintf(out, "  %-20s %s\n", "tier", status(m.Tier.Feature))
	fmt.Fprintf(out, "  %-20s %s\n", "color_highlighting", status(m.ColorHighlighting))
	renewal := status(m.AutoRenewal.Feature)
	if m.AutoRenewal.Active && m.AutoRenewal.Days > 0 {
		renewal += fmt.Sprintf(" (every %d days)", m.AutoRenewal.Days)
	}
	fmt.Fprintf(out, "  %-20s %s\n", "auto_renewal", renewal)
	if m.Tier.Price != nil {
		fmt.Fprintf(out, "  %-20s %s\n", "renew tier at", formatPrice(m.Tier.Price.Price))
	}
}

func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
