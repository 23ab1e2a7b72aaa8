package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/closereader/internal/paginator"
	"github.com/dgallion1/closereader/internal/parser"
)

var paginateCmd = &cobra.Command{
	Use:   "paginate FILE",
	Short: "Split a source text into pages",
	Long: `Parse FILE (txt, md, html, pdf or docx) into reading text and print its
pages. With --page only that page is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaginate,
}

func init() {
	paginateCmd.Flags().Int("size", paginator.DefaultPageSize, "maximum runes per page")
	paginateCmd.Flags().Int("page", -1, "print only this zero-based page")
}

func runPaginate(cmd *cobra.Command, args []string) error {
	size, _ := cmd.Flags().GetInt("size")
	only, _ := cmd.Flags().GetInt("page")

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	_, text, err := parser.Load(f, args[0])
	if err != nil {
		return err
	}
	pages := paginator.Paginate(text, size)

	out := cmd.OutOrStdout()
	if only >= 0 {
		if _, err := paginator.PageStartOffset(pages, only); err != nil {
			return err
		}
		fmt.Fprint(out, pages[only])
		return nil
	}
	start := 0
	for i, p := range pages {
		fmt.Fprintf(out, "--- page %d/%d (starts at %d) ---\n%s\n", i+1, len(pages), start, p)
		start += paginator.RuneLen(p)
	}
	return nil
}
