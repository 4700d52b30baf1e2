// ABOUTME: CLI commands for the Charm-synced person directory
// ABOUTME: Link, status, manual sync, auto-sync toggle and wipe; SSH keys handle auth

package charm

import (
	"flag"
	"fmt"
)

// LinkCommand verifies this device can reach the Charm server and shows its account ID.
func LinkCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("charm link", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := c.Config()
	fmt.Printf("Linking to Charm (%s)...\n\n", cfg.Host)

	if err := c.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	if id, err := c.ID(); err != nil {
		fmt.Println("✓ Device linked (ID unavailable)")
	} else {
		fmt.Printf("✓ Linked to account: %s\n", id)
	}
	fmt.Printf("✓ Auto-sync: %v\n", cfg.AutoSync)
	return nil
}

// StatusCommand shows the sync configuration and how many people are stored.
func StatusCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("charm status", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := c.Config()
	fmt.Println("Charm Directory Status")
	fmt.Println("──────────────────────")
	fmt.Printf("Server:    %s\n", cfg.Host)
	fmt.Printf("Auto-sync: %v\n", cfg.AutoSync)

	if id, err := c.ID(); err != nil {
		fmt.Println("Status:    Not connected")
	} else {
		fmt.Printf("Status:    Connected (%s)\n", id)
	}

	if keys, err := c.KeysWithPrefix([]byte(personPrefix)); err == nil {
		fmt.Printf("People:    %d\n", len(keys))
	}
	return nil
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("charm sync", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Println("✓ Synced")
	return nil
}

// AutoSyncCommand enables or disables sync after every write.
func AutoSyncCommand(args []string) error {
	fs := flag.NewFlagSet("charm auto", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	_ = fs.Parse(args)

	if *enable == *disable {
		fmt.Println("Usage: kin charm auto --enable|--disable")
		return nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.SetAutoSync(*enable); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("✓ Auto-sync: %v\n", *enable)
	return nil
}

// WipeCommand deletes every key in the directory. It requires --confirm.
func WipeCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("charm wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Println("WARNING: This deletes every person in the Charm directory.")
		fmt.Println()
		fmt.Println("To confirm, run:")
		fmt.Println("  kin charm wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}
	fmt.Println("✓ Directory wiped")
	return nil
}
