package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deleteIDs        string
	deleteTriggerIDs string
	deleteStartTime  int64
	deleteEndTime    int64
	deleteTagQuery   string
	deleteStatus     string
	deleteYes        bool
)

// deleteCmd removes alerts matching criteria.
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete alerts by criteria",
	Long: `Delete alerts matching the given criteria. With no criteria all
alerts for the tenant are deleted, so a confirmation prompt is shown
unless --yes is given.

Examples:
  # Delete resolved alerts older than a cutoff
  njarctl delete --tenant acme --status resolved --end-time 1756680000000

  # Delete by tag query without prompting
  njarctl delete --tenant acme --tag-query "env = 'staging'" --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}

		params := url.Values{}
		if deleteIDs != "" {
			params.Set("alertIds", deleteIDs)
		}
		if deleteTriggerIDs != "" {
			params.Set("triggerIds", deleteTriggerIDs)
		}
		if deleteStartTime > 0 {
			params.Set("startTime", fmt.Sprint(deleteStartTime))
		}
		if deleteEndTime > 0 {
			params.Set("endTime", fmt.Sprint(deleteEndTime))
		}
		if deleteTagQuery != "" {
			params.Set("tagQuery", deleteTagQuery)
		}
		if deleteStatus != "" {
			params.Set("status", deleteStatus)
		}

		if len(params) == 0 && !deleteYes {
			fmt.Printf("This deletes ALL alerts for tenant %q. Continue? [y/N] ", tenant)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		var result countResult
		if err := apiRequest("PUT", "/api/v1/alerts/delete", params, &result); err != nil {
			return err
		}
		fmt.Printf("Deleted %d alert(s)\n", result.Count)
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteIDs, "ids", "", "comma-separated alert ids")
	deleteCmd.Flags().StringVar(&deleteTriggerIDs, "trigger-ids", "", "comma-separated trigger ids")
	deleteCmd.Flags().Int64Var(&deleteStartTime, "start-time", 0, "minimum creation time (unix millis)")
	deleteCmd.Flags().Int64Var(&deleteEndTime, "end-time", 0, "maximum creation time (unix millis)")
	deleteCmd.Flags().StringVar(&deleteTagQuery, "tag-query", "", "boolean tag query expression")
	deleteCmd.Flags().StringVar(&deleteStatus, "status", "", "alert status (open, acknowledged, resolved)")
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "skip confirmation prompt")

	rootCmd.AddCommand(deleteCmd)
}
