package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/allisson/authcore/internal/app"
	"github.com/allisson/authcore/internal/config"
)

// RunCleanRevocations removes revocation index entries whose natural expiry
// has passed. Expired tokens already fail verification on their own, so this
// is garbage collection only; run it periodically to keep the index small.
//
// Requirements: the configured revocation store must be accessible.
func RunCleanRevocations(ctx context.Context, format string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	tokenUC, err := container.TokenUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize token use case: %w", err)
	}

	count, err := tokenUC.Prune(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune revocation entries: %w", err)
	}

	logger.Info("revocation index pruned", slog.Int64("count", count))

	if format == "json" {
		outputCleanRevocationsJSON(count)
	} else {
		outputCleanRevocationsText(count)
	}

	return nil
}

func outputCleanRevocationsText(count int64) {
	fmt.Printf("Removed %d expired revocation entr%s\n", count, pluralEntry(count))
}

func outputCleanRevocationsJSON(count int64) {
	result := map[string]any{
		"count": count,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Println(string(jsonBytes))
}

func pluralEntry(count int64) string {
	if count == 1 {
		return "y"
	}
	return "ies"
}
