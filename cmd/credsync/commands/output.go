package commands

import (
	"fmt"

	"github.com/credsync/credsync/internal/config"
	"github.com/credsync/credsync/internal/lifecycle"
	"github.com/credsync/credsync/internal/syncer"
)

// printSyncResult reports a lifecycle operation: per-store outcomes plus the
// vault mirror outcome when one was attempted.
func printSyncResult(cfg *config.Config, result *lifecycle.Result) {
	printFanOut(cfg, result.Sync)

	for _, mirror := range result.Vault {
		if !mirror.Attempted {
			continue
		}
		if mirror.Success {
			cfg.Logger.Info("✓ vault mirror: %s", mirror.Key)
		} else {
			cfg.Logger.Warn("vault mirror failed for %s: %s", mirror.Key, mirror.Error)
		}
	}
}

// printFanOut reports each store outcome and the overall tally.
func printFanOut(cfg *config.Config, result *syncer.SyncResult) {
	for _, outcome := range result.Outcomes {
		if outcome.Success {
			cfg.Logger.Info("✓ %s updated (attempt %d)", outcome.StoreName, outcome.Attempts)
		} else {
			cfg.Logger.Error("✗ %s failed after %d attempts: %s", outcome.StoreName, outcome.Attempts, outcome.Error)
		}
	}

	fmt.Printf("\n%d/%d stores updated (%dms)\n", result.SuccessCount, result.TotalCount, result.DurationMs)
}
