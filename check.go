package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"agentterm/pkg/config"
	"agentterm/pkg/models"
	"agentterm/pkg/rpc"

	"github.com/spf13/cobra"
)

type checkOptions struct {
	json   bool
	dryRun bool
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Test configuration and exit",
		Long: "Validates the configuration, asks every RPC endpoint for its chain id " +
			"and stores the observed id when the file carries none.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd, *flags)
			if err != nil {
				return err
			}
			report := runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, path, opts)
			if opts.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(report)
			}
			if !report.ValidStructure {
				return fmt.Errorf("invalid configuration")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output test results as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Perform a trial run with no changes made")
	return cmd
}

// runCheck probes the configured chain. Human readable progress goes to out
// unless JSON output was requested.
func runCheck(ctx context.Context, out io.Writer, cfg config.Config, path string, opts checkOptions) models.CheckReport {
	say := func(format string, a ...any) {
		if !opts.json {
			fmt.Fprintf(out, format, a...)
		}
	}

	report := models.CheckReport{
		ConfigPath:     path,
		ValidStructure: true,
		DryRun:         opts.dryRun,
		ChainName:      cfg.Chain.Name,
		ConfigChainID:  cfg.Chain.ChainID,
	}
	say("Testing configuration at: %s\n", path)

	if problems := cfg.Validate(); len(problems) > 0 {
		report.ValidStructure = false
		report.StructureErrors = problems
		for _, p := range problems {
			say("Error: %s\n", p)
		}
		return report
	}

	say("Testing Chain: %s (%s)\n", cfg.Chain.Name, cfg.Chain.Symbol)
	var observed *big.Int
	for _, url := range cfg.Chain.RPCURLs {
		result := models.RPCResult{URL: url}
		say("  RPC: %s ... ", url)

		id, err := rpc.FetchChainID(ctx, url)
		if err != nil {
			result.Status = "error"
			result.Error = err.Error()
			say("Failed: %v\n", err)
			report.RPCs = append(report.RPCs, result)
			continue
		}

		result.Status = "ok"
		result.ChainID = id.Int64()
		say("OK (ChainID: %s)", id.String())
		if observed == nil {
			observed = id
			report.ObservedChainID = id.Int64()
		} else if observed.Cmp(id) != 0 {
			say(" - WARNING: ChainID mismatch with previous RPC (%s)", observed.String())
			report.Inconsistent = true
		}

		switch {
		case cfg.Chain.ChainID == 0:
			cfg.Chain.ChainID = id.Int64()
			report.ChainIDUpdated = true
			say(" - UPDATED CONFIG")
			if opts.dryRun {
				say(" (DRY RUN)")
			}
		case id.Cmp(big.NewInt(cfg.Chain.ChainID)) != 0:
			result.Error = fmt.Sprintf("Mismatch! Expected %d", cfg.Chain.ChainID)
			say(" - MISMATCH! Expected %d", cfg.Chain.ChainID)
		default:
			say(" - Verified")
		}
		say("\n")
		report.RPCs = append(report.RPCs, result)
	}

	if report.Inconsistent {
		say("\nWARNING: Inconsistent RPCs detected!\n")
		say("The RPCs of %s return conflicting Chain IDs.\n", cfg.Chain.Name)
	}

	if report.ChainIDUpdated {
		report.ConfigUpdated = true
		say("\nUpdating configuration with fetched Chain ID...\n")
		if opts.dryRun {
			say("Dry run enabled: Configuration NOT saved.\n")
			return report
		}
		if err := config.SaveConfig(cfg, path); err != nil {
			report.SaveError = err.Error()
			say("Failed to save config: %v\n", err)
		} else {
			say("Configuration saved successfully.\n")
		}
	}
	return report
}
