package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/model"
	"github.com/quartzbi/quartz/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, rotate, and revoke the scoped API keys that authenticate workspace requests.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRotateCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyDeleteCmd())

	return cmd
}

// resolveOwner maps an admin email to its ID. Keys always belong to an admin.
func resolveOwner(ctx context.Context, store *config.Store, email string) (int64, error) {
	admin, err := store.GetAdminByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("admin %q not found", email)
	}
	return admin.ID, nil
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		owner       string
		name        string
		description string
		scopes      []string
		perMinute   int
		perHour     int
		perDay      int
		expiresIn   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new scoped API key. The plaintext secret is shown once and cannot be retrieved again.",
		Example: `  quartz key create --owner admin@example.com --name "CI pipeline" --scopes reports:read,reports:export
  quartz key create --owner admin@example.com --name etl --scopes sources:read --expires-in 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(owner, name, description, scopes, perMinute, perHour, perDay, expiresIn)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Email of the admin who owns the key (required)")
	cmd.Flags().StringVar(&name, "name", "", "Key name (required)")
	cmd.Flags().StringVar(&description, "description", "", "What the key is for")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "Comma-separated scopes (required)")
	cmd.Flags().IntVar(&perMinute, "rate-per-minute", 60, "Requests allowed per minute")
	cmd.Flags().IntVar(&perHour, "rate-per-hour", 1000, "Requests allowed per hour")
	cmd.Flags().IntVar(&perDay, "rate-per-day", 10000, "Requests allowed per day")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Expiry as a duration from now (0 = never)")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("scopes")

	return cmd
}

func runKeyCreate(owner, name, description string, scopes []string, perMinute, perHour, perDay int, expiresIn time.Duration) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	ownerID, err := resolveOwner(ctx, store, owner)
	if err != nil {
		return err
	}

	draft := model.APIKeyDraft{
		Name:               name,
		Description:        description,
		Scopes:             scopes,
		RateLimitPerMinute: perMinute,
		RateLimitPerHour:   perHour,
		RateLimitPerDay:    perDay,
	}
	if expiresIn > 0 {
		exp := time.Now().UTC().Add(expiresIn)
		draft.ExpiresAt = &exp
	}

	created, err := service.NewKeyService(store).Create(ctx, ownerID, draft)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API key created:")
	fmt.Println()
	fmt.Printf("  Key:    %s\n", created.PlaintextKey)
	fmt.Printf("  ID:     %s\n", created.ID)
	fmt.Printf("  Name:   %s\n", created.Name)
	fmt.Printf("  Scopes: %s\n", strings.Join(created.Scopes, ", "))
	if created.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", created.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		owner           string
		includeInactive bool
		jsonOutput      bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List an admin's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(owner, includeInactive, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Email of the admin whose keys to list (required)")
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "Include deactivated keys")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runKeyList(owner string, includeInactive, jsonOutput bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	ownerID, err := resolveOwner(ctx, store, owner)
	if err != nil {
		return err
	}

	keys, err := service.NewKeyService(store).List(ctx, ownerID, includeInactive)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys found. Use 'quartz key create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-16s %-24s %-8s\n", "ID", "PREFIX", "NAME", "ACTIVE")
	fmt.Printf("%-38s %-16s %-24s %-8s\n", "--", "------", "----", "------")
	for _, k := range keys {
		active := "yes"
		if !k.IsActive {
			active = "no"
		}
		fmt.Printf("%-38s %-16s %-24s %-8s\n", k.ID, k.KeyPrefix, k.Name, active)
	}

	return nil
}

// ---------- key rotate ----------

func newKeyRotateCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "rotate <key-id>",
		Short: "Rotate an API key's secret",
		Long:  "Replace the key's secret in place. The old secret stops working immediately; the new one is shown once.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRotate(owner, args[0])
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Email of the admin who owns the key (required)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runKeyRotate(owner, keyID string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	ownerID, err := resolveOwner(ctx, store, owner)
	if err != nil {
		return err
	}

	rotated, err := service.NewKeyService(store).Rotate(ctx, ownerID, keyID)
	if err != nil {
		return fmt.Errorf("rotate api key: %w", err)
	}

	fmt.Println("API key rotated:")
	fmt.Println()
	fmt.Printf("  New key: %s\n", rotated.PlaintextKey)
	fmt.Println()
	fmt.Println("  The old secret is no longer valid. Save the new key now.")
	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Deactivate an API key",
		Long:  "Deactivate a key so it stops authenticating. The key's configuration is preserved and it can be reactivated later.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeySetActive(owner, args[0], false)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Email of the admin who owns the key (required)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runKeySetActive(owner, keyID string, active bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	ownerID, err := resolveOwner(ctx, store, owner)
	if err != nil {
		return err
	}

	key, err := service.NewKeyService(store).SetActive(ctx, ownerID, keyID, active)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}

	state := "deactivated"
	if key.IsActive {
		state = "active"
	}
	fmt.Printf("API key %q (%s) is now %s\n", key.Name, key.KeyPrefix, state)
	return nil
}

// ---------- key delete ----------

func newKeyDeleteCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Permanently delete an API key",
		Long:  "Delete a key and its usage history. This cannot be undone; use 'quartz key revoke' to deactivate instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyDelete(owner, args[0])
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Email of the admin who owns the key (required)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runKeyDelete(owner, keyID string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	ownerID, err := resolveOwner(ctx, store, owner)
	if err != nil {
		return err
	}

	if err := service.NewKeyService(store).Delete(ctx, ownerID, keyID); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}

	fmt.Printf("Deleted API key %s\n", keyID)
	return nil
}
