package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"addebiti/internal/core"
)

func paymentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "payments [YYYY-MM-DD]",
		Short: "Show the effective payments of a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payments, err := a.engine.Payments.ResolvePayments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), payments, func(w io.Writer) error {
				if len(payments) == 0 {
					_, err := fmt.Fprintf(w, "No payments on %s\n", args[0])
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDAY\tAMOUNT\tOVERRIDE")
				for _, p := range payments {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%t\n", p.ID, p.ServiceName, p.WithdrawalDate, p.Amount, p.IsOverride)
				}
				return tw.Flush()
			})
		},
	}
}

func editCmd(a *app) *cobra.Command {
	var (
		name   string
		amount float64
		day    int
		scope  string
		months []string
	)

	cmd := &cobra.Command{
		Use:   "edit [service-id] [YYYY-MM-DD]",
		Short: "Edit a payment for one day, every month, or chosen months",
		Long: `Edit a payment.

Scopes:
  day_only       override the payment on the given date (default)
  all_service    update the service itself
  manual_months  override the payment in each --months entry

Examples:
  addebiti-cli edit netflix 2024-04-05 --amount 19.99
  addebiti-cli edit gym 2024-04-20 --scope manual_months --months 2024-05,2024-06 --day 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.EditRequest{
				ServiceID: args[0],
				Date:      args[1],
				Scope:     core.Scope(scope),
				Months:    months,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.ServiceName = &name
			}
			if flags.Changed("amount") {
				req.Amount = &amount
			}
			if flags.Changed("day") {
				req.WithdrawalDate = &day
			}

			if err := a.engine.Payments.ApplyEdit(cmd.Context(), req); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]bool{"success": true}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Applied %s edit to %s\n", req.ScopeOrDefault(), req.ServiceID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New service name")
	cmd.Flags().Float64Var(&amount, "amount", 0, "New amount")
	cmd.Flags().IntVar(&day, "day", 0, "New withdrawal day")
	cmd.Flags().StringVarP(&scope, "scope", "s", string(core.ScopeDayOnly), "Edit scope (day_only, all_service, manual_months)")
	cmd.Flags().StringSliceVarP(&months, "months", "m", nil, "Target months as YYYY-MM, for manual_months")

	return cmd
}

func calendarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar [year] [month]",
		Short: "List the days of a month with at least one payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year: %w", err)
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid month: %w", err)
			}

			days, err := a.engine.Payments.CalendarDays(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string][]int{"payment_dates": days}, func(w io.Writer) error {
				parts := make([]string, len(days))
				for i, d := range days {
					parts[i] = strconv.Itoa(d)
				}
				_, err := fmt.Fprintf(w, "%s: %s\n", core.MonthPrefix(year, month), strings.Join(parts, " "))
				return err
			})
		},
	}
}
