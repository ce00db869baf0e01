package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/sla"
	"github.com/spec-kit/case-service/internal/workflow"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "casectl",
		Short:        "Operator tooling for the case SLA service",
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.AddCommand(newHashKeyCmd(), newValidateRulesCmd(), newValidateSLACmd())
	return root
}

// newHashKeyCmd prints an AUTH_CLIENTS entry for a client. The key is read from stdin so it
// never lands in shell history.
func newHashKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <client-id> <role>",
		Short: "Hash an API key read from stdin into an AUTH_CLIENTS entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := auth.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[1])
			}
			key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("read key: %w", err)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("empty key on stdin")
			}
			if cost <= 0 {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				cost = cfg.Auth.BcryptCost
			}
			hash, err := auth.HashKey(key, cost)
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s:%s\n", args[0], role, hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (defaults to AUTH_BCRYPT_COST)")
	return cmd
}

func newValidateRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-rules <file>",
		Short: "Parse and compile a workflow rules file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := workflow.LoadRulesFile(args[0])
			if err != nil {
				return err
			}
			if err := workflow.NewEngine(workflow.Dependencies{}).ReplaceRules(rules); err != nil {
				return err
			}
			enabled := 0
			for _, r := range rules {
				if r.Enabled {
					enabled++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rules ok (%d enabled)\n", len(rules), enabled)
			return nil
		},
	}
}

func newValidateSLACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-sla <file>",
		Short: "Parse and validate an SLA configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := sla.LoadConfigurationsFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sla configurations ok\n", len(configs))
			return nil
		},
	}
}
