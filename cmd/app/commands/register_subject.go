package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/allisson/authcore/internal/app"
	"github.com/allisson/authcore/internal/config"
	credentialUsecase "github.com/allisson/authcore/internal/credential/usecase"
)

// RunRegisterSubject creates a credential for a new subject from the command
// line. The secret is hashed before storage and never echoed back. Roles are
// given as a comma-separated list.
//
// Requirements: database must be migrated and accessible.
func RunRegisterSubject(ctx context.Context, subjectRef, secret, roles, format string) error {
	if subjectRef == "" {
		return fmt.Errorf("subject-ref is required")
	}
	if secret == "" {
		return fmt.Errorf("secret is required")
	}

	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	credentialUC, err := container.CredentialUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize credential use case: %w", err)
	}

	credential, err := credentialUC.Register(ctx, credentialUsecase.RegisterInput{
		SubjectRef: subjectRef,
		Secret:     secret,
		Roles:      parseRoles(roles),
	})
	if err != nil {
		return fmt.Errorf("failed to register subject: %w", err)
	}

	logger.Info("subject registered",
		slog.String("subject_id", credential.SubjectID.String()),
		slog.String("subject_ref", credential.SubjectRef),
	)

	if format == "json" {
		result := map[string]any{
			"subject_id":  credential.SubjectID.String(),
			"subject_ref": credential.SubjectRef,
			"roles":       credential.Roles,
			"created_at":  credential.CreatedAt,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
			return nil
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("Subject registered successfully\n")
	fmt.Printf("  ID:   %s\n", credential.SubjectID)
	fmt.Printf("  Ref:  %s\n", credential.SubjectRef)
	if len(credential.Roles) > 0 {
		fmt.Printf("  Roles: %s\n", strings.Join(credential.Roles, ", "))
	}

	return nil
}

// parseRoles splits a comma-separated role list, trimming whitespace and
// dropping empty entries.
func parseRoles(roles string) []string {
	if roles == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(roles, ",") {
		if role := strings.TrimSpace(part); role != "" {
			out = append(out, role)
		}
	}
	return out
}
