package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// NewSubscriptionsCommand creates the subscriptions command group.
func NewSubscriptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subscription", "subs"},
		Short:   "Manage subscriptions",
		Long:    "List, inspect, cancel, revoke and export subscriptions",
	}

	cmd.AddCommand(newSubscriptionsListCommand())
	cmd.AddCommand(newSubscriptionsGetCommand())
	cmd.AddCommand(newSubscriptionsCancelCommand())
	cmd.AddCommand(newSubscriptionsRevokeCommand())
	cmd.AddCommand(newSubscriptionsExportCommand())

	return cmd
}

func newSubscriptionsListCommand() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Long:  "List subscriptions, e.g. --in status=active,trialing --sort created_at:desc",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return listResources[polar.Subscription](cmd, &flags, c.Subscriptions().Query().Builder(), c.Subscriptions(), "subscriptions", renderSubscriptionsTable)
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func renderSubscriptionsTable(w io.Writer, result *polar.ListResult[polar.Subscription]) error {
	return renderList(w, result.Items, result.Pagination, "No subscriptions found",
		[]any{"ID", "Status", "Amount", "Interval", "Customer", "Product", "Period End"},
		func(s polar.Subscription) []any {
			return []any{
				s.ID, subscriptionStatus(s), formatMoney(s.Amount, s.Currency), string(s.RecurringInterval),
				s.CustomerID, s.ProductID, formatTimePtr(s.CurrentPeriodEnd),
			}
		})
}

func subscriptionStatus(s polar.Subscription) string {
	if s.CancelAtPeriodEnd && s.Status == polar.SubscriptionStatusActive {
		return "active (canceling)"
	}

	return string(s.Status)
}

func newSubscriptionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get SUBSCRIPTION_ID",
		Short: "Get subscription details",
		Long:  "Display a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				subscription, err := c.Subscriptions().Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get subscription: %w", err)
				}

				return outputSubscription(cmd.OutOrStdout(), subscription)
			})
		},
	}
}

func outputSubscription(w io.Writer, s *polar.Subscription) error {
	return renderOutput(w, s, func(w io.Writer) error {
		rows := [][2]string{
			{"ID", s.ID},
			{"Status", subscriptionStatus(*s)},
			{"Amount", formatMoney(s.Amount, s.Currency)},
			{"Interval", string(s.RecurringInterval)},
			{"Customer", s.CustomerID},
			{"Product", s.ProductID},
			{"Period start", formatTime(s.CurrentPeriodStart)},
			{"Period end", formatTimePtr(s.CurrentPeriodEnd)},
			{"Cancel at period end", yesNo(s.CancelAtPeriodEnd)},
			{"Canceled", formatTimePtr(s.CanceledAt)},
			{"Ended", formatTimePtr(s.EndedAt)},
			{"Created", formatTime(s.CreatedAt)},
		}

		rows = append(rows, metadataRows(s.Metadata)...)

		return renderDetails(w, rows)
	})
}

func newSubscriptionsCancelCommand() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "cancel SUBSCRIPTION_ID",
		Short: "Cancel a subscription at the end of its period",
		Long:  "Schedule a subscription to end with its current billing period, or withdraw the cancellation with --undo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				cancel := !undo

				subscription, err := c.Subscriptions().Update(cmd.Context(), args[0], &polar.SubscriptionUpdateRequest{CancelAtPeriodEnd: &cancel})
				if err != nil {
					return fmt.Errorf("failed to update subscription: %w", err)
				}

				return outputSubscription(cmd.OutOrStdout(), subscription)
			})
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "withdraw a scheduled cancellation")

	return cmd
}

func newSubscriptionsRevokeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "revoke SUBSCRIPTION_ID",
		Short: "Revoke a subscription immediately",
		Long:  "End a subscription now, without waiting for the end of its billing period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("%w: revoking ends the subscription immediately, pass --force to confirm", ErrConfirmationRequired)
			}

			return withClient(func(c *client.Client) error {
				subscription, err := c.Subscriptions().Revoke(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to revoke subscription: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Revoked subscription %s (%s)\n", subscription.ID, subscription.Status)

				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm the revocation")

	return cmd
}

func newSubscriptionsExportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export subscriptions",
		Long:  "Export every subscription matching the filters and wait for the file to be ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return runExport(cmd, &flags, c.Subscriptions().Query().Builder(), "subscriptions", c.Subscriptions().Export)
			})
		},
	}

	flags.register(cmd)

	return cmd
}
