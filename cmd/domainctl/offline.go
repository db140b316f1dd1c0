package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gondar-software/domain-manager/internal/api/mapper"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/nginx"
	"github.com/gondar-software/domain-manager/internal/utils"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [FILE]",
	Short: "List the domains hosted in an nginx configuration file",
	Long: `Parse an nginx configuration file locally, without a server, and list the
domains it hosts. Blocks that cannot be parsed are reported.

Example:
  domainctl inspect /etc/nginx/nginx.conf`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/etc/nginx/nginx.conf"
		if len(args) == 1 {
			path = args[0]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		domains, issues := nginx.NewCodec("").ParseWithIssues(string(data))
		for _, issue := range issues {
			logger.Warn("%v", issue)
		}
		if jsonFlag {
			return printJSON(mapper.DomainsToResponses(domains))
		}
		printDomains(mapper.DomainsToResponses(domains))
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render NAME",
	Short: "Print the nginx server block a domain would get",
	Long: `Render the nginx block for a domain locally, without a server. With --into the
block is inserted into that configuration file's text and the whole result is
printed; the file itself is not modified.

Example:
  domainctl render blog --root example.com --route /=http://localhost:9000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		letsEncryptDir, _ := cmd.Flags().GetString("letsencrypt-dir")
		into, _ := cmd.Flags().GetString("into")
		routes, _ := cmd.Flags().GetStringArray("route")

		d, err := buildDomain(args[0], root, routes)
		if err != nil {
			return err
		}
		codec := nginx.NewCodec(letsEncryptDir)

		if into == "" {
			fmt.Print(codec.Render(d))
			return nil
		}

		data, err := os.ReadFile(into)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", into, err)
		}
		text, err := codec.Insert(string(data), d)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

// buildDomain qualifies name under root and validates the routes the same
// way the server does.
func buildDomain(name, root string, routes []string) (models.Domain, error) {
	requests, err := parseRoutes(routes)
	if err != nil {
		return models.Domain{}, err
	}
	fqdn, err := utils.QualifyDomain(name, root)
	if err != nil {
		return models.Domain{}, err
	}
	if utils.IsReservedAlias(fqdn, root) {
		return models.Domain{}, fmt.Errorf("%s collides with the www alias of another name", fqdn)
	}
	d := models.Domain{Name: fqdn, Hosts: mapper.HostsFromRequest(requests)}
	if err := d.Validate(); err != nil {
		return models.Domain{}, err
	}
	return d, nil
}

func initOfflineCommands() {
	renderCmd.Flags().String("root", os.Getenv("DOMAIN"), "root domain NAME is qualified under")
	renderCmd.Flags().String("letsencrypt-dir", nginx.DefaultLetsEncryptDir, "Let's Encrypt directory for certificate paths")
	renderCmd.Flags().String("into", "", "configuration file to insert the block into")
	renderCmd.Flags().StringArrayP("route", "r", nil, "route as [websocket:]PATH=TARGET (repeatable)")

	rootCmd.AddCommand(inspectCmd, renderCmd)
}
