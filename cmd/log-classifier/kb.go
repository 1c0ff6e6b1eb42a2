package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/neville-freeman/log-classifier/internal/knowledge"
	"github.com/neville-freeman/log-classifier/internal/model"
)

func newKBCmd(a *app) *cobra.Command {
	kb := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge base utilities",
	}
	kb.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate a knowledge base and print signature counts per code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.KnowledgeBase
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no knowledge base given (argument, knowledge_base or LOGCLS_KNOWLEDGE_BASE)")
			}
			base, err := knowledge.LoadFile(path)
			if err != nil {
				return err
			}

			counts := make(map[model.ErrorCode]int)
			for _, e := range base.Entries() {
				counts[e.Code]++
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tTAG\tPATTERNS")
			for _, code := range base.Codes() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", code, code.Tag(), counts[code])
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "%d signatures, %d codes: ok\n", base.Len(), len(base.Codes()))
			return nil
		},
	})
	return kb
}

func newCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List every error code with its tag and default comment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tTAG\tCOMMENT")
			for _, code := range model.ErrorCodes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", code, code.Tag(), code.Comment())
			}
			return w.Flush()
		},
	}
}
