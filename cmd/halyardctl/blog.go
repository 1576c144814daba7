package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/content"
)

// blogCmd represents the blog command
var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Work with blog content",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'blog' requires a subcommand (check)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var blogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse every post and report problems",
	Long: `Parse every markdown post in the content directory and report problems
such as missing front matter, bad dates or duplicate slugs.

The directory defaults to the configured content_dir.

Example:
  halyardctl blog check
  halyardctl blog check --dir ./content/blog`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			dir = cfg.ContentDir
		}
		if dir == "" {
			return fmt.Errorf("no content directory configured")
		}
		return checkBlog(dir)
	},
}

func init() {
	rootCmd.AddCommand(blogCmd)
	blogCmd.AddCommand(blogCheckCmd)
	blogCheckCmd.Flags().String("dir", "", "Content directory to check")
}

func checkBlog(dir string) error {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	posts, err := content.NewLibrary(dir, log).Parse()
	for _, p := range posts {
		state := "published"
		if p.Draft {
			state = "draft"
		}
		fmt.Printf("ok    %-40s %s  %s\n", p.Slug, p.Date.Format(content.DateLayout), state)
	}
	if err == nil {
		fmt.Printf("%d post(s) parsed\n", len(posts))
		return nil
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			fmt.Printf("error %v\n", e)
		}
	} else {
		fmt.Printf("error %v\n", err)
	}
	return fmt.Errorf("blog content has problems")
}
