package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type priceFlags struct {
	catalogFile string
	modelID     string
	options     []string
	deposit     int
	term        int
	vatRate     string
	apr         string
}

func newPriceCmd() *cobra.Command {
	f := &priceFlags{}
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a configuration against a catalog file",
		Example: `  jthctl price --model professional-35 --option awning --option saddle-rack=2
  jthctl price --model aeos-45 --option living-pod --deposit 20 --term 48`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrice(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&f.catalogFile, "catalog", "configs/catalog.yaml", "catalog file")
	cmd.Flags().StringVar(&f.modelID, "model", "", "model id")
	cmd.Flags().StringArrayVar(&f.options, "option", nil, "option id, optionally id=quantity (repeatable)")
	cmd.Flags().IntVar(&f.deposit, "deposit", 0, "deposit percent for a finance quote")
	cmd.Flags().IntVar(&f.term, "term", 0, "finance term in months")
	cmd.Flags().StringVar(&f.vatRate, "vat-rate", "", "override the default VAT rate, e.g. 0.20")
	cmd.Flags().StringVar(&f.apr, "apr", "", "override the representative APR, e.g. 7.9")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func runPrice(out io.Writer, f *priceFlags) error {
	c, err := catalog.Load(f.catalogFile)
	if err != nil {
		return err
	}
	picks, err := parsePicks(f.options)
	if err != nil {
		return err
	}

	var settings pricing.Settings
	if f.vatRate != "" {
		if settings.VATRate, err = decimal.NewFromString(f.vatRate); err != nil {
			return fmt.Errorf("invalid --vat-rate: %w", err)
		}
	}
	if f.apr != "" {
		if settings.APR, err = decimal.NewFromString(f.apr); err != nil {
			return fmt.Errorf("invalid --apr: %w", err)
		}
	}
	engine := pricing.NewEngine(c, settings)

	m, selections, err := c.Resolve(f.modelID, picks)
	if err != nil {
		return err
	}
	b, err := engine.ComputePrice(m, selections)
	if err != nil {
		return err
	}
	printBreakdown(out, b)

	if f.deposit == 0 && f.term == 0 {
		return nil
	}
	if b.ContactForPricing {
		return fmt.Errorf("%s has no list price; finance cannot be quoted", b.ModelName)
	}
	terms, err := engine.ComputeFinance(b.Total, f.deposit, f.term)
	if err != nil {
		return err
	}
	printFinance(out, terms.Rounded())
	return nil
}

// parsePicks reads "id" or "id=quantity" arguments.
func parsePicks(args []string) ([]catalog.Pick, error) {
	picks := make([]catalog.Pick, 0, len(args))
	for _, arg := range args {
		id, qty, found := strings.Cut(arg, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid option %q", arg)
		}
		pick := catalog.Pick{OptionID: id, Quantity: 1}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil {
				return nil, fmt.Errorf("invalid quantity in %q", arg)
			}
			pick.Quantity = n
		}
		picks = append(picks, pick)
	}
	return picks, nil
}

func printBreakdown(out io.Writer, b pricing.Breakdown) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\t\t\n", b.ModelName)
	if b.ContactForPricing {
		fmt.Fprintln(w, "Base price\tcontact for pricing\t")
	} else {
		fmt.Fprintf(w, "Base price\t%s\t\n", b.BasePrice.StringFixed(2))
	}
	for _, l := range b.Lines {
		label := l.Name
		if l.Quantity > 1 {
			label = fmt.Sprintf("%s x%d", l.Name, l.Quantity)
		}
		if l.Included {
			fmt.Fprintf(w, "%s\tincluded\t\n", label)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t\n", label, l.Total.StringFixed(2))
	}
	if !b.ContactForPricing {
		fmt.Fprintf(w, "Subtotal\t%s\t\n", b.Subtotal.StringFixed(2))
		fmt.Fprintf(w, "VAT @ %s%%\t%s\t\n", b.VATRate.Mul(decimal.NewFromInt(100)).String(), b.VAT.StringFixed(2))
		fmt.Fprintf(w, "Total\t%s\t\n", b.Total.StringFixed(2))
	}
	fmt.Fprintf(w, "Added weight (kg)\t%s\t\n", b.AddedWeight.String())
	_ = w.Flush()
}

func printFinance(out io.Writer, t pricing.FinanceTerms) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\nFinance\t%d%% deposit, %d months @ %s%% APR\t\n", t.DepositPercent, t.TermMonths, t.APR.StringFixed(1))
	fmt.Fprintf(w, "Deposit\t%s\t\n", t.Deposit.StringFixed(2))
	fmt.Fprintf(w, "Amount financed\t%s\t\n", t.Principal.StringFixed(2))
	fmt.Fprintf(w, "Monthly payment\t%s\t\n", t.MonthlyPayment.StringFixed(2))
	fmt.Fprintf(w, "Total payable\t%s\t\n", t.TotalPayable.StringFixed(2))
	_ = w.Flush()
}
