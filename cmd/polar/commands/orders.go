package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Browse orders",
		Long:    "List, inspect and export orders",
	}

	cmd.AddCommand(newOrdersListCommand())
	cmd.AddCommand(newOrdersGetCommand())
	cmd.AddCommand(newOrdersExportCommand())

	return cmd
}

func newOrdersListCommand() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Long:  "List orders, e.g. --range amount=1000..5000 --range created_at=2024-01-01..",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return listResources[polar.Order](cmd, &flags, c.Orders().Query(), c.Orders(), "orders", renderOrdersTable)
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func renderOrdersTable(w io.Writer, result *polar.ListResult[polar.Order]) error {
	return renderList(w, result.Items, result.Pagination, "No orders found",
		[]any{"ID", "Status", "Total", "Reason", "Customer", "Product", "Created"},
		func(o polar.Order) []any {
			return []any{
				o.ID, string(o.Status), formatMoney(o.TotalAmount, o.Currency), valueOrNA(o.BillingReason),
				o.CustomerID, o.ProductID, formatTime(o.CreatedAt),
			}
		})
}

func newOrdersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ORDER_ID",
		Short: "Get order details",
		Long:  "Display an order with its amounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				order, err := c.Orders().Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get order: %w", err)
				}

				return renderOutput(cmd.OutOrStdout(), order, func(w io.Writer) error {
					rows := [][2]string{
						{"ID", order.ID},
						{"Status", string(order.Status)},
						{"Subtotal", formatMoney(order.SubtotalAmount, order.Currency)},
						{"Tax", formatMoney(order.TaxAmount, order.Currency)},
						{"Total", formatMoney(order.TotalAmount, order.Currency)},
						{"Billing reason", valueOrNA(order.BillingReason)},
						{"Customer", order.CustomerID},
						{"Product", order.ProductID},
						{"Subscription", stringOrNA(order.SubscriptionID)},
						{"Created", formatTime(order.CreatedAt)},
					}

					rows = append(rows, metadataRows(order.Metadata)...)

					return renderDetails(w, rows)
				})
			})
		},
	}
}

func newOrdersExportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export orders",
		Long:  "Export every order matching the filters and wait for the file to be ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return runExport(cmd, &flags, c.Orders().Query(), "orders", c.Orders().Export)
			})
		},
	}

	flags.register(cmd)

	return cmd
}
