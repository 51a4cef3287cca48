// Package cmd contains the CLI commands for njarctl.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightjar-io/nightjar/internal/api/middleware"
)

var (
	// Used for flags
	serverURL string
	tenant    string
	token     string
	output    string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "njarctl",
	Short: "njarctl - Nightjar alert store CLI",
	Long: `njarctl manages alerts in a Nightjar server over its REST API.

Examples:
  # Query all open alerts for a tenant
  njarctl query --tenant acme --status open

  # Query by tag expression
  njarctl query --tenant acme --tag-query "env = 'prod' and not silenced"

  # Acknowledge alerts
  njarctl ack --tenant acme --ids alert-1,alert-2 --user oncall

  # Tag alerts
  njarctl tags add --tenant acme --ids alert-1 --tags "team|core"`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "nightjar server URL")
	rootCmd.PersistentFlags().StringVarP(&tenant, "tenant", "t", "", "tenant id (comma-separated for queries)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token for authentication")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func requireTenant() error {
	if tenant == "" {
		return fmt.Errorf("--tenant is required")
	}
	return nil
}

// apiRequest performs an HTTP request against the server and decodes the
// standard {"data": ...} envelope into out, which may be nil.
func apiRequest(method, path string, params url.Values, out any) error {
	u := strings.TrimRight(serverURL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	if verbose {
		fmt.Printf("%s %s\n", method, u)
	}

	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set(middleware.TenantHeader, tenant)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("server error (%s): %s", errResp.Error.Code, errResp.Error.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}

type countResult struct {
	Count int `json:"count"`
}
