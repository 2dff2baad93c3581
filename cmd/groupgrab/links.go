package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/iconidentify/groupgrab/internal/domain"
	"github.com/iconidentify/groupgrab/internal/repository"
)

func newLinksCmd() *cobra.Command {
	var (
		group    string
		platform string
		limit    int
		offset   int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List archived links",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			filter := repository.ListFilter{
				GroupName: group,
				Limit:     limit,
				Offset:    offset,
			}
			if platform != "" {
				p := domain.Platform(platform)
				if !p.Known() {
					return fmt.Errorf("unknown platform %q", platform)
				}
				filter.Platform = p
			}

			repo, err := repository.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer repo.Close()

			links, err := repo.List(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if links == nil {
					links = []*domain.ArchivedLink{}
				}
				return enc.Encode(links)
			}
			return printLinks(cmd.OutOrStdout(), links)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Only links from this group")
	cmd.Flags().StringVar(&platform, "platform", "", "Only links for this platform (twitter, instagram)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	cmd.AddCommand(newLinksCheckCmd())
	return cmd
}

func newLinksCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Report whether a URL has been archived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := repository.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer repo.Close()

			archived, err := repo.IsArchived(ctx, args[0])
			if err != nil {
				return err
			}
			state := "not archived"
			if archived {
				state = "archived"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", args[0], state, domain.Classify(args[0]))
			return nil
		},
	}
}

func printLinks(w io.Writer, links []*domain.ArchivedLink) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGROUP\tPLATFORM\tSIZE\tREMOTE\tDOWNLOADED\tURL")
	for _, l := range links {
		size := "-"
		if l.FileSize != nil {
			size = humanize.Bytes(uint64(*l.FileSize))
		}
		remote := "-"
		if l.HasRemote() {
			remote = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.GroupName, l.Platform, size, remote,
			humanize.RelTime(l.DownloadedAt, time.Now(), "ago", "from now"), l.URL)
	}
	return tw.Flush()
}
