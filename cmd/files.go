package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ngl-strategy/rim-assistant/internal/rank"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage documents in the report index",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("files"); err != nil {
			return err
		}

		client := newLlamaCloud()
		files, err := client.ListFiles(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, "No documents indexed.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDATE\tPAGES\tSTATUS")
		for _, f := range files {
			date := ""
			if d, ok := rank.DateFromFilename(f.Name); ok {
				date = d.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Name, date, f.IndexedPages, f.Status)
		}
		return w.Flush()
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents to the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("files"); err != nil {
			return err
		}

		client := newLlamaCloud()
		out := cmd.OutOrStdout()

		var mu sync.Mutex
		var failed int

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(4)
		for _, path := range args {
			g.Go(func() error {
				f, err := os.Open(path)
				if err != nil {
					mu.Lock()
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					mu.Unlock()
					return nil
				}
				defer f.Close()

				uploaded, err := client.UploadFile(ctx, filepath.Base(path), f)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					return nil
				}
				fmt.Fprintf(out, "OK   %s (%s)\n", uploaded.Name, uploaded.ID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		engineCache.Invalidate()
		zap.L().Info("upload finished",
			zap.Int("uploaded", len(args)-failed),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>...",
	Short: "Remove documents from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("files"); err != nil {
			return err
		}

		client := newLlamaCloud()
		out := cmd.OutOrStdout()

		var failed int
		for _, id := range args {
			if err := client.DeleteFile(cmd.Context(), id); err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s: %v\n", id, err)
				continue
			}
			fmt.Fprintf(out, "OK   %s\n", id)
		}

		engineCache.Invalidate()
		if failed > 0 {
			return fmt.Errorf("%d of %d deletions failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	rootCmd.AddCommand(filesCmd)
}
