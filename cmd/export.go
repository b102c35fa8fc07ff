package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/bmadchat/internal/cli"
	"github.com/theirongolddev/bmadchat/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "List exported conversations or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, args []string) error {
	dir := appCfg.General.ExportDir
	if len(args) == 1 {
		return showExport(dir, args[0])
	}

	files, err := export.List(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("\n  No exported conversations in %s\n\n", dir)
		return nil
	}

	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{f.Name, cli.FormatSize(f.Size), f.ModTime.Local().Format("2006-01-02 15:04")}
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Exported conversations (%d)", len(files)),
		Headers: []string{"File", "Size", "Date"},
		Rows:    rows,
	}))
	fmt.Println(cli.Muted("  Directory: " + dir))
	fmt.Println()
	return nil
}

func showExport(dir, name string) error {
	path := name
	if filepath.Base(name) == name {
		path = filepath.Join(dir, name)
	}
	doc, err := export.Load(path)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(filepath.Base(path)))
	fmt.Println()
	if doc.AgentName != "" {
		fmt.Printf("  %-8s %s\n", "Chat", doc.AgentName)
	}
	for _, key := range []string{"Date", "Agent", "Pack", "Model"} {
		if v, ok := doc.Header[key]; ok {
			fmt.Printf("  %-8s %s\n", key, v)
		}
	}
	fmt.Printf("  %-8s %d\n", "Turns", len(doc.Turns))
	fmt.Println()
	return nil
}
