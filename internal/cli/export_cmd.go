// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flaskchat-tui/internal/export"
)

func newExportCmd(g *globalFlags) *cobra.Command {
	var (
		format     string
		outputDir  string
		theme      string
		noMetadata bool
		open       bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a conversation to a Markdown, JSON or HTML file",
		Example: `  flaskchat export 3
  flaskchat export 3 --format html --open
  flaskchat export 3 -f json -o ~/exports`,
		Args: cobra.ExactArgs(1),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			if opts.OutputDir == "" {
				opts.OutputDir = s.cfg.UI.ExportDir
			}
			opts.Theme = theme
			opts.IncludeMetadata = !noMetadata

			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}
			if err := s.open(cmd.Context(), args[0]); err != nil {
				return err
			}

			snap := s.ctl.Snapshot()
			transcript := export.NewTranscript(snap.Active.WithControls(snap.Controls), snap.Messages)
			path, err := export.ExportToFile(transcript, exporter, opts)
			if err != nil {
				return err
			}
			s.log.Info("conversation exported", "conversation", args[0], "path", path, "mime", exporter.MimeType())

			if open {
				if err := export.Open(path); err != nil {
					fmt.Fprintln(s.errOut, WarningStyle.Render(fmt.Sprintf("Could not open %s: %v", path, err)))
				}
			}

			return s.emit("export", map[string]string{"path": path, "mime_type": exporter.MimeType()}, func() {
				s.success("Exported conversation %s to %s", args[0], path)
			})
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "md", "output format: "+strings.Join(export.Formats, ", "))
	f.StringVarP(&outputDir, "output", "o", "", "directory for the exported file (default ui.export_dir)")
	f.StringVar(&theme, "theme", "dark", "HTML theme: dark or light")
	f.BoolVar(&noMetadata, "no-metadata", false, "omit the header block")
	f.BoolVar(&open, "open", false, "open the file in the default application")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return export.Formats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
