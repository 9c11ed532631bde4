package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

func init() {
	tagCmd.AddCommand(tagListCmd, tagAddCmd, tagRemoveCmd, tagSetCmd)
	rootCmd.AddCommand(tagCmd)
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage server tags",
	Long: `Tags group servers in listings. They are stored by mcpm only and never
written to client config files.

Known tags: UI, Backend, Creativity, Dev Ops, Advanced. Matching ignores
case, spaces and dashes, so "devops" works.`,
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known tags",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, t := range mcp.AllTags() {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var tagAddCmd = &cobra.Command{
	Use:   "add <server> <tag>...",
	Short: "Add tags to a server",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTagEdit(cmd, args[0], args[1:], tagAdd)
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:     "remove <server> <tag>...",
	Aliases: []string{"rm"},
	Short:   "Remove tags from a server",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTagEdit(cmd, args[0], args[1:], tagRemove)
	},
}

var tagSetCmd = &cobra.Command{
	Use:   "set <server> [tag...]",
	Short: "Replace a server's tags (none clears them)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTagEdit(cmd, args[0], args[1:], tagSet)
	},
}

type tagOp int

const (
	tagAdd tagOp = iota
	tagRemove
	tagSet
)

func parseTags(args []string) ([]mcp.Tag, error) {
	tags := make([]mcp.Tag, 0, len(args))
	for _, a := range args {
		t, err := mcp.ParseTag(a)
		if err != nil {
			return nil, errors.NewUserError(err, "Run: mcpm tag list")
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func runTagEdit(cmd *cobra.Command, name string, args []string, op tagOp) error {
	tags, err := parseTags(args)
	if err != nil {
		return err
	}
	m, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}

	switch op {
	case tagSet:
		err = m.SetTags(name, tags)
	case tagAdd:
		for _, t := range tags {
			if err = m.AddTag(name, t); err != nil {
				break
			}
		}
	case tagRemove:
		for _, t := range tags {
			if err = m.RemoveTag(name, t); err != nil {
				break
			}
		}
	}
	if err != nil {
		return mutationError(err)
	}

	s, err := m.Get(name)
	if err != nil {
		return mutationError(err)
	}
	current := tagNames(s.Tags)
	if current == "" {
		current = "(none)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s tags: %s\n", name, current)
	return nil
}
