// Command loom wires the engine against a live Supabase project, refreshes
// the folder forest and prints it. It is the smallest end-to-end exercise of
// the construction path: config, logger, remote client, collections.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	supabase "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"loom-engine/internal/config"
	"loom-engine/internal/domain/folder"
	"loom-engine/internal/engine"
	"loom-engine/internal/remote"
	"loom-engine/pkg/observability"
)

func main() {
	configPath := flag.String("config", "loom.yaml", "path to config file")
	ownerID := flag.String("owner", "", "owner id to load folders for")
	flag.Parse()

	if *ownerID == "" {
		log.Fatal("FATAL: -owner is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: load config: %v", err)
	}

	logger, err := observability.NewLogger(string(cfg.Environment))
	if err != nil {
		log.Fatalf("FATAL: build logger: %v", err)
	}
	defer logger.Sync()

	sb, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, nil)
	if err != nil {
		logger.Fatal("create supabase client", zap.Error(err))
	}

	client := remote.NewClient(sb, remote.Config{
		FoldersTable: cfg.Supabase.FoldersTable,
		ItemsTable:   cfg.Supabase.ItemsTable,
		Timeout:      cfg.Engine.RemoteTimeout,
	}, logger)

	eng := engine.New(*ownerID, client.Folders(), client.Items(), nil, logger, engine.Options{
		PageSize: cfg.Engine.PageSize,
	})

	ctx := context.Background()
	if err := eng.Folders.Refresh(ctx); err != nil {
		logger.Fatal("refresh folders", zap.Error(err))
	}

	forest := eng.Folders.Tree()
	if len(forest.Roots) == 0 {
		fmt.Println("no folders")
		return
	}
	for _, root := range forest.Roots {
		printNode(root)
	}
}

func printNode(n *folder.Node) {
	fmt.Printf("%s%s (%d items)\n", strings.Repeat("  ", n.Depth), n.Folder.Name, n.Folder.ItemCount)
	for _, child := range n.Children {
		printNode(child)
	}
}
