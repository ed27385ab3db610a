package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"monitoring-workspace-be/internal/config"
	"monitoring-workspace-be/pkg/database"
	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/sitecontext"
	"monitoring-workspace-be/pkg/storage"
	"monitoring-workspace-be/pkg/workspace"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
)

func main() {
	userID := flag.String("user", "", "user id whose workspace to print")
	driver := flag.String("storage", "", "storage driver override (redis|postgres)")
	flag.Parse()

	if *userID == "" {
		color.Red("usage: inspect_workspace -user <id> [-storage redis|postgres]")
		os.Exit(2)
	}

	cfg := config.Load()
	if *driver != "" {
		cfg.Workspace.StorageDriver = *driver
	}

	store, err := openStore(cfg)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := storage.Key(cfg.Workspace.StoreName, *userID)
	raw, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		color.Yellow("No workspace stored under %s", key)
		return
	}
	if err != nil {
		color.Red("Failed to read %s: %v", key, err)
		os.Exit(1)
	}

	state, err := workspace.Decode(raw)
	if err != nil {
		color.Red("Stored document is unreadable: %v", err)
		os.Exit(1)
	}

	printState(key, state, cfg.Workspace.MaxEntryAge)
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Workspace.StorageDriver {
	case "redis":
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return storage.NewRedisStore(redis.NewClient(opt), "", 0), nil
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
		if err != nil {
			return nil, err
		}
		return storage.NewGormStore(db), nil
	}
	return nil, fmt.Errorf("storage %q is in-process and cannot be inspected", cfg.Workspace.StorageDriver)
}

func printState(key string, s workspace.State, maxAge time.Duration) {
	color.Cyan("Workspace %s (version %d)\n", key, s.Version)

	color.Yellow("\nGlobal site")
	if s.Global.SelectedSiteID == nil {
		fmt.Println("  none selected")
	} else {
		fmt.Printf("  site %d (since %s)\n", *s.Global.SelectedSiteID, s.Global.LastModified.Format(time.RFC3339))
	}

	color.Yellow("\nTabs (tab mode %s)", onOff(s.IsTabModeEnabled))
	for _, t := range s.Tabs {
		marker := "  "
		if s.ActiveTabID != nil && *s.ActiveTabID == t.ID {
			marker = color.GreenString("* ")
		}
		fmt.Printf("%s%-40s %s\n", marker, t.DisplayTitle(), t.URL)
	}

	color.Yellow("\nGrid (grid mode %s)", onOff(s.Grid.IsGridModeEnabled))
	if s.Grid.Layout == nil {
		fmt.Println("  not initialized")
	} else {
		for _, sec := range s.Grid.Layout.Sections {
			printSection(sec, 1, s.Grid.ActiveSectionID)
		}
	}

	printEntries("Tab site overrides", s.TabSiteContexts, maxAge)
	printEntries("Section site overrides", s.SectionSiteContexts, maxAge)
}

func printSection(sec *grid.Section, depth int, activeID string) {
	indent := strings.Repeat("  ", depth)
	label := sec.ID
	if sec.ID == activeID {
		label = color.GreenString(sec.ID + " (active)")
	}
	if sec.IsLeaf() {
		page := sec.AssignedURL
		if page == "" {
			page = "-"
		}
		fmt.Printf("%s%s  %s\n", indent, label, page)
		return
	}
	fmt.Printf("%s%s  [%s]\n", indent, label, sec.Direction)
	for _, child := range sec.Children {
		printSection(child, depth+1, activeID)
	}
}

func printEntries(title string, entries map[string]sitecontext.Entry, maxAge time.Duration) {
	color.Yellow("\n%s", title)
	if len(entries) == 0 {
		fmt.Println("  none")
		return
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cutoff := time.Now().Add(-maxAge)
	for _, id := range ids {
		e := entries[id]
		site := "inherit"
		if e.SiteID != nil {
			site = fmt.Sprintf("site %d", *e.SiteID)
		}
		line := fmt.Sprintf("  %-40s %-10s %s", id, site, e.LastModified.Format(time.RFC3339))
		if e.LastModified.Before(cutoff) {
			color.Red("%s (stale)", line)
			continue
		}
		fmt.Println(line)
	}
}

func onOff(b bool) string {
	if b {
		return color.GreenString("on")
	}
	return color.RedString("off")
}
