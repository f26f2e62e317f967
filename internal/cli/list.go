package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	listJSON    bool
	listVerbose bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the allow-list as JSON")
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Show permitted arguments")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List allowed commands",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, _, err := loadPolicy(cfg)
	if err != nil {
		return err
	}

	listing := table.List()
	w := cmd.OutOrStdout()
	if listJSON {
		out, _ := json.MarshalIndent(listing, "", "  ")
		fmt.Fprintln(w, string(out))
		return nil
	}

	fmt.Fprintf(w, "%-10s %-16s %-6s %s\n", "COMMAND", "CATEGORY", "FILES", "DESCRIPTION")
	for _, l := range listing {
		files := "no"
		if l.RequiresFile {
			files = "yes"
		}
		fmt.Fprintf(w, "%-10s %-16s %-6s %s\n", l.Command, l.Category, files, l.Description)
		if listVerbose && len(l.AllowedArgs) > 0 {
			fmt.Fprintf(w, "%-10s %s\n", "", strings.Join(l.AllowedArgs, " "))
		}
	}
	fmt.Fprintf(w, "\n%d commands\n", len(listing))
	return nil
}
