package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/focusshot/internal/capture"
)

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List connected displays",
	Long: `List the displays the capture backend can see, with their position on
the virtual desktop and their index for --display.`,
	Example: `  # List displays in table format (default)
  focusshot displays

  # List displays in JSON format
  focusshot displays --format json`,
	Args: cobra.NoArgs,
	RunE: runDisplays,
}

var displaysFormat string

func init() {
	rootCmd.AddCommand(displaysCmd)

	displaysCmd.Flags().StringVarP(&displaysFormat, "format", "f", "table", "output format (table or json)")
}

func runDisplays(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(configMgr, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	displays, err := a.sessions.EnumerateDisplays(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	out := cmd.OutOrStdout()
	switch displaysFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(displays)
	case "table":
		return printDisplaysTable(out, displays)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", displaysFormat)
	}
}

func printDisplaysTable(out io.Writer, displays []capture.DisplayDescriptor) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "INDEX\tNAME\tSIZE\tPOSITION\tSCALE\tPRIMARY")
	fmt.Fprintln(w, "-----\t----\t----\t--------\t-----\t-------")
	for _, d := range displays {
		primary := "No"
		if d.IsPrimary {
			primary = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%dx%d\t%+d%+d\t%.2g\t%s\n",
			d.Index, d.Name, d.Width, d.Height, d.X, d.Y, d.ScaleFactor, primary)
	}
	return w.Flush()
}
