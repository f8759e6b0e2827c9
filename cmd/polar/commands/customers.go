package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// NewCustomersCommand creates the customers command group.
func NewCustomersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customers",
		Aliases: []string{"customer"},
		Short:   "Manage customers",
		Long:    "List, inspect, create, delete and export customers",
	}

	cmd.AddCommand(newCustomersListCommand())
	cmd.AddCommand(newCustomersGetCommand())
	cmd.AddCommand(newCustomersCreateCommand())
	cmd.AddCommand(newCustomersDeleteCommand())
	cmd.AddCommand(newCustomersExportCommand())

	return cmd
}

func newCustomersListCommand() *cobra.Command {
	var (
		flags listFlags
		email string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Long:  "List customers, optionally searching by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				base := c.Customers().Query()
				if email != "" {
					base = base.WithEmail(email)
				}

				return listResources[polar.Customer](cmd, &flags, base.Builder(), c.Customers(), "customers", renderCustomersTable)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "only the customer with this email")

	return cmd
}

func renderCustomersTable(w io.Writer, result *polar.ListResult[polar.Customer]) error {
	return renderList(w, result.Items, result.Pagination, "No customers found",
		[]any{"ID", "Email", "Name", "External ID", "Created"},
		func(c polar.Customer) []any {
			return []any{c.ID, c.Email, stringOrNA(c.Name), stringOrNA(c.ExternalID), formatTime(c.CreatedAt)}
		})
}

func newCustomersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CUSTOMER_ID",
		Short: "Get customer details",
		Long:  "Display a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				customer, err := c.Customers().Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get customer: %w", err)
				}

				return outputCustomer(cmd.OutOrStdout(), customer)
			})
		},
	}
}

func outputCustomer(w io.Writer, customer *polar.Customer) error {
	return renderOutput(w, customer, func(w io.Writer) error {
		rows := [][2]string{
			{"ID", customer.ID},
			{"Email", customer.Email},
			{"Name", stringOrNA(customer.Name)},
			{"External ID", stringOrNA(customer.ExternalID)},
			{"Organization", customer.OrganizationID},
			{"Created", formatTime(customer.CreatedAt)},
		}

		rows = append(rows, metadataRows(customer.Metadata)...)

		return renderDetails(w, rows)
	})
}

func newCustomersCreateCommand() *cobra.Command {
	var (
		email      string
		name       string
		externalID string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		Long:  "Create a customer identified by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &polar.CustomerCreateRequest{Email: email}
			if name != "" {
				req.Name = &name
			}

			if externalID != "" {
				req.ExternalID = &externalID
			}

			return withClient(func(c *client.Client) error {
				customer, err := c.Customers().Create(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("failed to create customer: %w", err)
				}

				return outputCustomer(cmd.OutOrStdout(), customer)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "customer email (required)")
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&externalID, "external-id", "", "identifier of the customer in your own system")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newCustomersDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete CUSTOMER_ID",
		Short: "Delete a customer",
		Long:  "Delete a customer and revoke their active subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("%w: deleting a customer cannot be undone, pass --force to confirm", ErrConfirmationRequired)
			}

			return withClient(func(c *client.Client) error {
				err := c.Customers().Delete(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to delete customer: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted customer %s\n", args[0])

				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm the deletion")

	return cmd
}

func newCustomersExportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export customers",
		Long:  "Export every customer matching the filters and wait for the file to be ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return runExport(cmd, &flags, c.Customers().Query().Builder(), "customers", c.Customers().Export)
			})
		},
	}

	flags.register(cmd)

	return cmd
}
