package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/fees"
)

func feeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Quote platform fees",
	}
	cmd.PersistentFlags().StringP("type", "t", string(domain.FeeTypeTransaction), "Fee type")
	cmd.PersistentFlags().String("currency", fees.DefaultCurrency, "Currency of the quote")
	cmd.PersistentFlags().BoolP("json", "j", false, "Output as JSON")

	cmd.AddCommand(feeCalcCmd())
	cmd.AddCommand(feeBulkCmd())
	cmd.AddCommand(feeTieredCmd())
	cmd.AddCommand(feeInternationalCmd())

	return cmd
}

func feeCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc [amount]",
		Short: "Quote the fee for a single amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, calc, err := setup(cmd)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			feeType, cur := feeFlags(cmd)

			res, err := calc.CalculateFee(amount, feeType, cur, nil)
			if err != nil {
				return err
			}
			return printFee(cmd, res)
		},
	}
}

func feeBulkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk [amount...]",
		Short: "Quote a batch of same-type amounts with the volume discount",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, calc, err := setup(cmd)
			if err != nil {
				return err
			}
			feeType, cur := feeFlags(cmd)

			var items []fees.BulkItem
			for _, a := range args {
				for _, part := range strings.Split(a, ",") {
					amount, err := decimal.NewFromString(strings.TrimSpace(part))
					if err != nil {
						return fmt.Errorf("invalid amount %q", part)
					}
					items = append(items, fees.BulkItem{Amount: amount, FeeType: feeType})
				}
			}

			res, err := calc.CalculateBulkFee(items, cur)
			if err != nil {
				return err
			}
			return printFee(cmd, res)
		},
	}
}

func feeTieredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiered [amount]",
		Short: "Quote a fee with the user tier discount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, calc, err := setup(cmd)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			feeType, cur := feeFlags(cmd)
			tier, _ := cmd.Flags().GetString("tier")

			res, err := calc.CalculateTieredFee(amount, feeType, fees.UserTier(tier), cur)
			if err != nil {
				return err
			}
			return printFee(cmd, res)
		},
	}
	cmd.Flags().String("tier", string(fees.TierStandard), "User tier (standard, premium, enterprise)")
	return cmd
}

func feeInternationalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "international [amount]",
		Short: "Quote a fee including currency conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, calc, err := setup(cmd)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			feeType, cur := feeFlags(cmd)
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			res, err := calc.CalculateInternationalFee(amount, feeType, from, to, cur)
			if err != nil {
				return err
			}
			return printFee(cmd, res)
		},
	}
	cmd.Flags().String("from", "USD", "Source currency")
	cmd.Flags().String("to", fees.DefaultCurrency, "Target currency")
	return cmd
}

func feeFlags(cmd *cobra.Command) (domain.FeeType, string) {
	feeType, _ := cmd.Flags().GetString("type")
	cur, _ := cmd.Flags().GetString("currency")
	return domain.FeeType(feeType), cur
}

func printFee(cmd *cobra.Command, res domain.FeeResult) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	writeFeeSummary(cmd.OutOrStdout(), res)
	return nil
}

func writeFeeSummary(w io.Writer, res domain.FeeResult) {
	fmt.Fprintln(w, res.Description)
	fmt.Fprintf(w, "  base:       %s %s\n", fees.FormatAmount(res.BaseAmount), res.Currency)
	fmt.Fprintf(w, "  percentage: %s\n", fees.FormatAmount(res.FeeBreakdown.PercentageFee))
	fmt.Fprintf(w, "  fixed:      %s\n", fees.FormatAmount(res.FeeBreakdown.FixedFee))
	if res.Discount != nil && !res.Discount.Amount.IsZero() {
		fmt.Fprintf(w, "  discount:   -%s (%s%%)\n", fees.FormatAmount(res.Discount.Amount),
			res.Discount.Percentage.Mul(decimal.NewFromInt(100)).String())
	}
	if res.Conversion != nil {
		fmt.Fprintf(w, "  conversion: %s (%s to %s)\n", fees.FormatAmount(res.Conversion.Fee),
			res.Conversion.SourceCurrency, res.Conversion.TargetCurrency)
		if res.Conversion.ConvertedAmount != nil {
			fmt.Fprintf(w, "  converted:  %s %s\n", fees.FormatAmount(*res.Conversion.ConvertedAmount),
				res.Conversion.TargetCurrency)
		}
	}
	fmt.Fprintf(w, "  fee:        %s %s\n", fees.FormatAmount(res.FeeAmount), res.Currency)
	fmt.Fprintf(w, "  total:      %s %s\n", fees.FormatAmount(res.TotalAmount), res.Currency)
}
