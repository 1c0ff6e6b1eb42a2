package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/neville-freeman/log-classifier/internal/config"
	"github.com/neville-freeman/log-classifier/internal/model"
)

func newClassifyCmd(a *app) *cobra.Command {
	var (
		maxFiles int
		maxLines int
		maxBytes int64
		pretty   bool
	)
	cmd := &cobra.Command{
		Use:   "classify <archive>...",
		Short: "Diagnose local log archives and print one report per archive",
		Long: `Diagnose zip, tar, tar.gz or gzip-compressed log files from disk. Use "-" to read an
archive from stdin. Reports are printed as JSON on stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("max-files") {
				cfg.Archive.MaxFiles = maxFiles
			}
			if cmd.Flags().Changed("max-lines") {
				cfg.Archive.MaxLines = maxLines
			}
			if cmd.Flags().Changed("max-file-bytes") {
				cfg.Archive.MaxFileBytes = maxBytes
			}
			cfg.Output = config.OutputConfig{Format: "stdout", Pretty: pretty, Verbosity: cfg.Output.Verbosity}
			if err := cfg.Validate(); err != nil {
				return err
			}

			eng, err := buildEngine(cfg, nil)
			if err != nil {
				return err
			}
			out, err := buildOutput(cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer out.Close()

			for _, path := range args {
				data, err := readArchive(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				r := model.Report{
					Source:      path,
					Attachments: []string{filepath.Base(path)},
					Diagnosis:   eng.Analyze(data),
					ProcessedAt: time.Now().UTC(),
				}
				if err := out.Write(cmd.Context(), r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "newest files to read from each archive (default from config, 5)")
	cmd.Flags().IntVar(&maxLines, "max-lines", 0, "total lines to scan per archive, 0 for all")
	cmd.Flags().Int64Var(&maxBytes, "max-file-bytes", 0, "decompressed bytes read per file (default from config, 64 MiB)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

func readArchive(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return data, nil
}
