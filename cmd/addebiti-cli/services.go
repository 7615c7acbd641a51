package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"addebiti/internal/core"
)

func servicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Manage subscription services",
	}
	cmd.AddCommand(servicesListCmd(a), servicesAddCmd(a), servicesRemoveCmd(a))
	return cmd
}

func servicesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List services in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.engine.Subscriptions.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), list, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDAY\tAMOUNT")
				for _, svc := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", svc.ID, svc.ServiceName, svc.WithdrawalDate, svc.Amount)
				}
				return tw.Flush()
			})
		},
	}
}

func servicesAddCmd(a *app) *cobra.Command {
	var day int
	var amount float64

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.engine.Subscriptions.Create(cmd.Context(), core.SubscriptionService{
				ServiceName:    args[0],
				WithdrawalDate: day,
				Amount:         amount,
			})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), created, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Created %s (%s)\n", created.ServiceName, created.ID)
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&day, "day", "d", 0, "Withdrawal day of month (1-31)")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount withdrawn")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}

func servicesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a service; its overrides stay stored",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Subscriptions.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]bool{"success": true}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted %s\n", args[0])
				return err
			})
		},
	}
}
