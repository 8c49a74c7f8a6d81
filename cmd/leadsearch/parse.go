package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
)

var errParseDegraded = errors.New("filter parse degraded")

func newParseFiltersCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   `parse-filters "<query>"`,
		Short: "Parse a free-text query into structured filters with the configured LLM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			llm := buildLLM(cmd.Context(), cfg, nil, logger)
			if llm.parser == nil {
				return errors.New("llm.api_key is not configured")
			}
			return runParse(cmd.Context(), llm.parser, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

// queryParser is the part of nlfilter.Service the command uses.
type queryParser interface {
	Parse(ctx context.Context, query string) (nlfilter.Outcome, error)
}

func runParse(ctx context.Context, p queryParser, query string, w io.Writer) error {
	out, err := p.Parse(ctx, query)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := printOutcome(w, out); err != nil {
		return err
	}
	if out.Degraded() {
		return fmt.Errorf("%w: %w", errParseDegraded, out.Err)
	}
	return nil
}

// printOutcome writes the status line and the filter as JSON with coloured keys.
func printOutcome(w io.Writer, out nlfilter.Outcome) error {
	statusColor := color.New(color.FgGreen, color.Bold)
	switch out.Status {
	case nlfilter.StatusEmpty:
		statusColor = color.New(color.FgYellow, color.Bold)
	case nlfilter.StatusDegraded, nlfilter.StatusRateLimited:
		statusColor = color.New(color.FgRed, color.Bold)
	}
	keyColor := color.New(color.FgCyan)

	if _, err := statusColor.Fprintf(w, "status: %s\n", out.Status); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if len(out.Dropped) > 0 {
		_, _ = color.New(color.FgYellow).Fprintf(w, "dropped: %s\n", strings.Join(out.Dropped, ", "))
	}
	if out.Err != nil {
		_, _ = color.New(color.FgRed).Fprintf(w, "error: %v\n", out.Err)
	}

	raw, err := json.Marshal(out.Filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("unmarshal filter: %w", err)
	}

	keys := out.Filter.PresentKeys()
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "{}")
		return err //nolint:wrapcheck // plain write
	}
	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		b.WriteString("  ")
		b.WriteString(keyColor.Sprintf("%q", k))
		b.WriteString(": ")
		b.Write(fields[k])
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	_, err = io.WriteString(w, b.String())
	return err //nolint:wrapcheck // plain write
}
