package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightjar-io/nightjar/internal/models"
)

var (
	queryStartTime  int64
	queryEndTime    int64
	queryIDs        string
	queryTriggerIDs string
	querySeverities string
	queryStatus     string
	queryTagQuery   string
	queryThin       bool
	queryOffset     int
	queryLimit      int
)

// queryCmd fetches alerts matching criteria.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query alerts by criteria",
	Long: `Query alerts matching the given criteria.

All criteria are optional and combine conjunctively. The tag query
language supports boolean expressions over tags:

  env = 'prod' and not silenced
  service in ['api', 'worker'] or tier = 'crit.*'

Examples:
  # All alerts for a tenant
  njarctl query --tenant acme

  # Open critical alerts in a time window
  njarctl query --tenant acme --status open --severities critical \
      --start-time 1756680000000 --end-time 1756683600000

  # Tag expression across two tenants
  njarctl query --tenant acme,globex --tag-query "env = 'prod'"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}

		params := url.Values{}
		if queryStartTime > 0 {
			params.Set("startTime", fmt.Sprint(queryStartTime))
		}
		if queryEndTime > 0 {
			params.Set("endTime", fmt.Sprint(queryEndTime))
		}
		if queryIDs != "" {
			params.Set("alertIds", queryIDs)
		}
		if queryTriggerIDs != "" {
			params.Set("triggerIds", queryTriggerIDs)
		}
		if querySeverities != "" {
			params.Set("severities", querySeverities)
		}
		if queryStatus != "" {
			params.Set("status", queryStatus)
		}
		if queryTagQuery != "" {
			params.Set("tagQuery", queryTagQuery)
		}
		if queryThin {
			params.Set("thin", "true")
		}
		if queryOffset > 0 {
			params.Set("offset", fmt.Sprint(queryOffset))
		}
		if queryLimit > 0 {
			params.Set("limit", fmt.Sprint(queryLimit))
		}

		var alerts []*models.Alert
		if err := apiRequest("GET", "/api/v1/alerts", params, &alerts); err != nil {
			return err
		}

		return printAlerts(alerts)
	},
}

func printAlerts(alerts []*models.Alert) error {
	if output == "json" {
		data, err := json.MarshalIndent(alerts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(alerts) == 0 {
		fmt.Println("No alerts found.")
		return nil
	}

	fmt.Printf("\n%-40s  %-20s  %-10s  %-12s  %-24s  %s\n",
		"ALERT ID", "TRIGGER", "SEVERITY", "STATUS", "CREATED", "TAGS")
	fmt.Println(strings.Repeat("-", 130))

	for _, a := range alerts {
		tags := make([]string, 0, len(a.Tags))
		for k, v := range a.Tags {
			tags = append(tags, k+"="+v)
		}
		fmt.Printf("%-40s  %-20s  %-10s  %-12s  %-24s  %s\n",
			a.AlertID,
			a.TriggerID,
			a.Severity,
			a.Status,
			time.UnixMilli(a.Ctime).UTC().Format("2006-01-02 15:04:05.000"),
			strings.Join(tags, ","),
		)
	}
	fmt.Printf("\nTotal: %d alert(s)\n", len(alerts))
	return nil
}

func init() {
	queryCmd.Flags().Int64Var(&queryStartTime, "start-time", 0, "minimum creation time (unix millis)")
	queryCmd.Flags().Int64Var(&queryEndTime, "end-time", 0, "maximum creation time (unix millis)")
	queryCmd.Flags().StringVar(&queryIDs, "ids", "", "comma-separated alert ids")
	queryCmd.Flags().StringVar(&queryTriggerIDs, "trigger-ids", "", "comma-separated trigger ids")
	queryCmd.Flags().StringVar(&querySeverities, "severities", "", "comma-separated severities (low, medium, high, critical)")
	queryCmd.Flags().StringVar(&queryStatus, "status", "", "alert status (open, acknowledged, resolved)")
	queryCmd.Flags().StringVar(&queryTagQuery, "tag-query", "", "boolean tag query expression")
	queryCmd.Flags().BoolVar(&queryThin, "thin", false, "omit condition evaluation data")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "result offset")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum results")

	rootCmd.AddCommand(queryCmd)
}
