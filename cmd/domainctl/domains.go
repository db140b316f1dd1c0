package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/client"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosted domains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		domains, err := c.List(cmd.Context())
		if err != nil {
			return explain(err)
		}
		if jsonFlag {
			return printJSON(domains)
		}
		printDomains(domains)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the number of hosted domains and their routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		summary, err := c.Summary(cmd.Context())
		if err != nil {
			return explain(err)
		}
		if jsonFlag {
			return printJSON(summary)
		}

		fmt.Printf("Total domains: %d\n", summary.TotalDomains)
		names := make([]string, 0, len(summary.Domains))
		for name := range summary.Domains {
			names = append(names, name)
		}
		sort.Strings(names)
		domains := make([]domain.Response, 0, len(names))
		for _, name := range names {
			domains = append(domains, summary.Domains[name])
		}
		printDomains(domains)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Show one hosted domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		d, err := c.Get(cmd.Context(), args[0])
		if err != nil {
			return explain(err)
		}
		if jsonFlag {
			return printJSON(d)
		}
		printDomains([]domain.Response{*d})
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Provision DNS, a certificate and proxy routes for a subdomain",
	Long: `Provision a subdomain. NAME is a label under the server's root domain or a
full name inside it. Each --route is [websocket:]PATH=TARGET.

Example:
  domainctl add blog --route /=http://localhost:9000 --route websocket:/ws=http://localhost:9001`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, _ := cmd.Flags().GetStringArray("route")
		hosts, err := parseRoutes(routes)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		var op *domain.OperationResponse
		err = withSpinner(fmt.Sprintf("Provisioning %s...", args[0]), func() error {
			var err error
			op, err = c.Add(cmd.Context(), domain.CreateRequest{Domain: args[0], Hosts: hosts})
			return err
		})
		return reportOperation(op, err)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update NAME",
	Short: "Replace the routes of a hosted domain",
	Long: `Replace every route of a hosted domain. The domain is torn down and provisioned
again with the new routes.

Example:
  domainctl update blog --route /=http://localhost:9100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, _ := cmd.Flags().GetStringArray("route")
		hosts, err := parseRoutes(routes)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		var op *domain.OperationResponse
		err = withSpinner(fmt.Sprintf("Updating %s...", args[0]), func() error {
			var err error
			op, err = c.Update(cmd.Context(), args[0], domain.UpdateRequest{Hosts: hosts})
			return err
		})
		return reportOperation(op, err)
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Remove the DNS records, certificate and routes of a domain",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes && !confirm(fmt.Sprintf("Remove %s?", args[0])) {
			return errors.New("aborted")
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		var op *domain.OperationResponse
		err = withSpinner(fmt.Sprintf("Removing %s...", args[0]), func() error {
			var err error
			op, err = c.Remove(cmd.Context(), args[0])
			return err
		})
		return reportOperation(op, err)
	},
}

// reportOperation prints the operation outcome, including the report the
// server attaches to provisioning failures.
func reportOperation(op *domain.OperationResponse, err error) error {
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Operation != nil {
			if jsonFlag {
				_ = printJSON(apiErr.Operation)
			} else {
				printOperation(apiErr.Operation)
			}
		}
		return explain(err)
	}

	if jsonFlag {
		return printJSON(op)
	}
	printOperation(op)
	if op.Result != nil {
		printDomains([]domain.Response{*op.Result})
	}
	return nil
}

func printOperation(op *domain.OperationResponse) {
	fmt.Printf("%s %s: %s (%s, operation %s)\n", op.Kind, op.Domain, op.State, op.Duration, op.ID)
	for _, step := range op.Steps {
		status := "ok"
		if step.Error != "" {
			status = "failed: " + step.Error
		}
		fmt.Printf("  %-20s %-8s %s\n", step.Name, step.Duration, status)
	}
	if op.Error != "" {
		fmt.Printf("  error: %s\n", op.Error)
	}
}

func printDomains(domains []domain.Response) {
	if len(domains) == 0 {
		fmt.Println("No domains hosted")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tTYPE\tPATH\tTARGET")
	for _, d := range domains {
		for i, h := range d.Hosts {
			name := d.Domain
			if i > 0 {
				name = ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, h.Type, h.Path, h.Host)
		}
	}
	w.Flush()
}

func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(os.Stdin, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func initDomainCommands() {
	addCmd.Flags().StringArrayP("route", "r", nil, "route as [websocket:]PATH=TARGET (repeatable)")
	updateCmd.Flags().StringArrayP("route", "r", nil, "route as [websocket:]PATH=TARGET (repeatable)")
	removeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(listCmd, summaryCmd, getCmd, addCmd, updateCmd, removeCmd)
}
