package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage products",
		Long:    "List, inspect, create, archive and export products and their prices",
	}

	cmd.AddCommand(newProductsListCommand())
	cmd.AddCommand(newProductsGetCommand())
	cmd.AddCommand(newProductsCreateCommand())
	cmd.AddCommand(newProductsArchiveCommand())
	cmd.AddCommand(newProductsExportCommand())
	cmd.AddCommand(newProductsPricesCommand())
	cmd.AddCommand(newProductsExportPricesCommand())

	return cmd
}

func newProductsListCommand() *cobra.Command {
	var (
		flags    listFlags
		archived bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Long:  "List products, by default only those that are not archived",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return listResources[polar.Product](cmd, &flags, c.Products().Query().WithIsArchived(archived).Builder(), c.Products(), "products", renderProductsTable)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived products instead")

	return cmd
}

func renderProductsTable(w io.Writer, result *polar.ListResult[polar.Product]) error {
	return renderList(w, result.Items, result.Pagination, "No products found",
		[]any{"ID", "Name", "Type", "Prices", "Archived", "Created"},
		func(p polar.Product) []any {
			return []any{p.ID, p.Name, productType(p), priceSummary(p.Prices), yesNo(p.IsArchived), formatTime(p.CreatedAt)}
		})
}

func productType(p polar.Product) string {
	if p.RecurringInterval != nil {
		return "recurring (" + string(*p.RecurringInterval) + ")"
	}

	if p.IsRecurring {
		return "recurring"
	}

	return "one-time"
}

func priceSummary(prices []polar.ProductPrice) string {
	parts := make([]string, 0, len(prices))
	for _, price := range prices {
		parts = append(parts, formatPrice(price))
	}

	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, ", ")
}

func formatPrice(price polar.ProductPrice) string {
	switch price.AmountType {
	case polar.PriceAmountFree:
		return "free"
	case polar.PriceAmountCustom:
		return "pay what you want"
	case polar.PriceAmountMeteredUnit:
		if price.UnitAmount != nil {
			return price.UnitAmount.String() + " per unit"
		}

		return "metered"
	default:
		return formatMoney(price.Amount, price.Currency)
	}
}

func newProductsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PRODUCT_ID",
		Short: "Get product details",
		Long:  "Display a product and its prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				product, err := c.Products().Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get product: %w", err)
				}

				return outputProduct(cmd.OutOrStdout(), product)
			})
		},
	}
}

func outputProduct(w io.Writer, product *polar.Product) error {
	return renderOutput(w, product, func(w io.Writer) error {
		rows := [][2]string{
			{"ID", product.ID},
			{"Name", product.Name},
			{"Description", stringOrNA(product.Description)},
			{"Type", productType(*product)},
			{"Archived", yesNo(product.IsArchived)},
			{"Organization", product.OrganizationID},
			{"Created", formatTime(product.CreatedAt)},
			{"Modified", formatTimePtr(product.ModifiedAt)},
		}

		for _, price := range product.Prices {
			rows = append(rows, [2]string{"Price " + price.ID, formatPrice(price)})
		}

		rows = append(rows, metadataRows(product.Metadata)...)

		return renderDetails(w, rows)
	})
}

func newProductsCreateCommand() *cobra.Command {
	var (
		name        string
		description string
		interval    string
		price       string
		currency    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Long:  "Create a product with a single fixed price, or a free product when --price is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildProductCreateRequest(name, description, interval, price, currency)
			if err != nil {
				return err
			}

			return withClient(func(c *client.Client) error {
				product, err := c.Products().Create(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("failed to create product: %w", err)
				}

				return outputProduct(cmd.OutOrStdout(), product)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "product name (required)")
	cmd.Flags().StringVar(&description, "description", "", "product description")
	cmd.Flags().StringVar(&interval, "interval", "", "billing interval for subscriptions (day, week, month, year)")
	cmd.Flags().StringVar(&price, "price", "", "price in major units, e.g. 15.00")
	cmd.Flags().StringVar(&currency, "currency", "usd", "price currency")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// buildProductCreateRequest converts a major-unit price such as "15.00" to
// the minor units the API expects.
func buildProductCreateRequest(name, description, interval, price, currency string) (*polar.ProductCreateRequest, error) {
	req := &polar.ProductCreateRequest{Name: name}

	if description != "" {
		req.Description = &description
	}

	priceType := polar.PriceTypeOneTime

	if interval != "" {
		ri := polar.RecurringInterval(strings.ToLower(interval))
		switch ri {
		case polar.RecurringIntervalDay, polar.RecurringIntervalWeek, polar.RecurringIntervalMonth, polar.RecurringIntervalYear:
		default:
			return nil, &polar.InvalidArgumentError{Field: "interval", Value: interval, Reason: "expected day, week, month or year"}
		}

		req.RecurringInterval = &ri
		priceType = polar.PriceTypeRecurring
	}

	if price == "" {
		req.Prices = []polar.ProductPriceCreateRequest{{Type: priceType, AmountType: polar.PriceAmountFree}}

		return req, nil
	}

	amount, err := decimal.NewFromString(price)
	if err != nil || amount.IsNegative() {
		return nil, &polar.InvalidArgumentError{Field: "price", Value: price, Reason: "expected a non-negative amount such as 15.00"}
	}

	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return nil, &polar.InvalidArgumentError{Field: "price", Value: price, Reason: "at most two decimal places are allowed"}
	}

	req.Prices = []polar.ProductPriceCreateRequest{{
		Type:       priceType,
		AmountType: polar.PriceAmountFixed,
		Amount:     minor.IntPart(),
		Currency:   strings.ToLower(currency),
	}}

	return req, nil
}

func newProductsArchiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive PRODUCT_ID",
		Short: "Archive a product",
		Long:  "Archive a product so it can no longer be purchased",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				product, err := c.Products().Archive(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to archive product: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archived product %s (%s)\n", product.Name, product.ID)

				return nil
			})
		},
	}
}

func newProductsExportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export products",
		Long:  "Export every product matching the filters and wait for the file to be ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return runExport(cmd, &flags, c.Products().Query().Builder(), "products", c.Products().Export)
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func newProductsPricesCommand() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "prices PRODUCT_ID",
		Short: "List a product's prices",
		Long:  "List the prices attached to a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				query, err := flags.query(polar.NewQuery())
				if err != nil {
					return err
				}

				result, err := c.Products().ListPrices(cmd.Context(), args[0], query, flags.limit)
				if err != nil {
					return fmt.Errorf("failed to list prices: %w", err)
				}

				return renderOutput(cmd.OutOrStdout(), result, func(w io.Writer) error {
					return renderList(w, result.Items, result.Pagination, "No prices found",
						[]any{"ID", "Type", "Amount", "Interval", "Archived"},
						func(p polar.ProductPrice) []any {
							interval := "-"
							if p.RecurringInterval != nil {
								interval = string(*p.RecurringInterval)
							}

							return []any{p.ID, string(p.Type), formatPrice(p), interval, yesNo(p.IsArchived)}
						})
				})
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func newProductsExportPricesCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export-prices PRODUCT_ID",
		Short: "Export a product's prices",
		Long:  "Export the prices of a product and wait for the file to be ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return runExport(cmd, &flags, polar.NewQuery(), "prices", func(ctx context.Context, opts *polar.ExportOptions) (*polar.ExportJob, error) {
					return c.Products().ExportPrices(ctx, args[0], opts)
				})
			})
		},
	}

	flags.register(cmd)

	return cmd
}
