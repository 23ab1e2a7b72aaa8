package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/closereader/internal/argument"
)

var outlineCmd = &cobra.Command{
	Use:   "outline FILE",
	Short: "Render a saved argument tree as a plain-text outline",
	Long: `Read an argument tree ({"nodes": {...}, "rootId": "..."}) from FILE as
JSON, or as YAML when the extension is .yaml or .yml, and print its outline.`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

func runOutline(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tree, err := decodeTree(data, filepath.Ext(args[0]))
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	if err := tree.Validate(); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprint(cmd.OutOrStdout(), argument.GenerateOutline(tree, tree.RootID))
	return nil
}

// decodeTree accepts JSON or YAML. YAML is normalized through JSON so both
// formats share the same field names.
func decodeTree(data []byte, ext string) (argument.Tree, error) {
	var tree argument.Tree
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return tree, err
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return tree, err
		}
		data = b
	}
	if err := json.Unmarshal(data, &tree); err != nil {
		return tree, err
	}
	if tree.RootID == "" {
		tree.RootID = argument.RootID
	}
	return tree, nil
}
