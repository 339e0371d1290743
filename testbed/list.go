package testbed

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
)

var listType string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the asset registry",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "only list assets of this type (e.g. Texture2D)")
}

func runList(cmd *cobra.Command, args []string) error {
	var filter metadata.AssetType
	if listType != "" {
		t, err := metadata.ParseAssetType(listType)
		if err != nil {
			return err
		}
		filter = t
	}

	app, err := loadApplicationConfig()
	if err != nil {
		return err
	}
	e, err := engine.New(&engine.Game{ApplicationConfig: app})
	if err != nil {
		return err
	}
	defer func() { _ = e.Shutdown() }()

	var entries []metadata.AssetMetadata
	for _, md := range e.AssetManager().Registry().All() {
		if filter == metadata.AssetTypeInvalid || md.Type == filter {
			entries = append(entries, md)
		}
	}
	printAssetTable(cmd.OutOrStdout(), entries)
	return nil
}

func printAssetTable(w io.Writer, entries []metadata.AssetMetadata) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Handle", "Type", "Name", "Path", "Custom"})

	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, md := range entries {
		table.Append([]string{md.Handle.String(), md.Type.String(), md.Name, md.Path, md.Custom.Type()})
	}
	table.Render()
}
