package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/bmadchat/internal/catalog"
	"github.com/theirongolddev/bmadchat/internal/cli"
	"github.com/theirongolddev/bmadchat/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available agents by pack",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	cat, err := catalog.Build(appCfg.General.BmadPath, appCfg.General.EnabledPacks, appLog)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("AGENTS  %d across %d packs", cat.Len(), len(cat.Packs()))))
	fmt.Println()

	byPack := make(map[string][]model.AgentDefinition)
	for _, a := range cat.Agents() {
		byPack[a.PackName] = append(byPack[a.PackName], a)
	}

	for _, p := range cat.Packs() {
		title := p.Name
		if p.Title != "" {
			title = p.Title
		}
		if p.Version != "" {
			title += " v" + p.Version
		}

		agents := byPack[p.Name]
		if len(agents) == 0 {
			fmt.Println(cli.RenderSection(title))
			fmt.Println(cli.Muted("  No agents found."))
			fmt.Println()
			continue
		}

		rows := make([][]string, len(agents))
		for i, a := range agents {
			name := a.DisplayName
			if a.Provenance.Defaulted() {
				name += " *"
			}
			rows[i] = []string{a.ID, name, a.Role}
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   title,
			Headers: []string{"ID", "Name", "Role"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	fmt.Println(cli.Muted("  * metadata incomplete, fields derived from title or filename"))
	fmt.Println(cli.Muted("  Start a chat with: bmadchat <agent>"))
	fmt.Println()
	return nil
}
