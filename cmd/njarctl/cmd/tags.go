package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	tagAlertIDs string
	tagPairs    string
	tagNames    string
)

// tagsCmd groups tag management commands.
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage alert tags",
	Long: `Add or remove tags on stored alerts.

Tags are name|value pairs. Tag changes are immediately visible to
tag queries.

Examples:
  # Tag two alerts
  njarctl tags add --tenant acme --ids alert-1,alert-2 --tags "team|core,svc|api"

  # Remove a tag
  njarctl tags remove --tenant acme --ids alert-1 --names team`,
}

var tagsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add tags to alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		if tagAlertIDs == "" || tagPairs == "" {
			return fmt.Errorf("--ids and --tags are required")
		}

		params := url.Values{}
		params.Set("alertIds", tagAlertIDs)
		params.Set("tags", tagPairs)

		var result countResult
		if err := apiRequest("PUT", "/api/v1/alerts/tags", params, &result); err != nil {
			return err
		}
		fmt.Printf("Tagged %d alert(s)\n", result.Count)
		return nil
	},
}

var tagsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove tags from alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		if tagAlertIDs == "" || tagNames == "" {
			return fmt.Errorf("--ids and --names are required")
		}

		params := url.Values{}
		params.Set("alertIds", tagAlertIDs)
		params.Set("tagNames", tagNames)

		var result countResult
		if err := apiRequest("DELETE", "/api/v1/alerts/tags", params, &result); err != nil {
			return err
		}
		fmt.Printf("Untagged %d alert(s)\n", result.Count)
		return nil
	},
}

func init() {
	tagsCmd.PersistentFlags().StringVar(&tagAlertIDs, "ids", "", "comma-separated alert ids")
	tagsAddCmd.Flags().StringVar(&tagPairs, "tags", "", "comma-separated name|value pairs")
	tagsRemoveCmd.Flags().StringVar(&tagNames, "names", "", "comma-separated tag names")

	tagsCmd.AddCommand(tagsAddCmd)
	tagsCmd.AddCommand(tagsRemoveCmd)
	rootCmd.AddCommand(tagsCmd)
}
