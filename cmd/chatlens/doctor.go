package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/scan"
)

func doctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify exports folder, DB, FTS5, Gemini settings and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			fmt.Println("=== Exports ===")
			checkDir("Root", cfg.ExportsRoot)

			fmt.Println("\n=== File Scan ===")
			files, err := scan.ScanRoot(cfg.ExportsRoot)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				textCount, jsonCount := 0, 0
				for _, f := range files {
					if strings.EqualFold(filepath.Ext(f.Path), ".json") {
						jsonCount++
					} else {
						textCount++
					}
				}
				fmt.Printf("  Text exports: %d\n", textCount)
				fmt.Printf("  JSON exports: %d\n", jsonCount)
			}

			fmt.Println("\n=== Gemini ===")
			if cfg.GeminiAPIKey == "" {
				fmt.Println("  API key: NOT SET (insights, predict, translate and lookup are disabled)")
			} else {
				fmt.Println("  API key: set")
			}
			fmt.Printf("  Model:   %s\n", cfg.GeminiModel)
			fmt.Printf("  Limit:   %d requests/minute\n", cfg.RequestsPerMinute)

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'chatlens index' first)")
				return nil
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			chatCount, err := db.ChatCount()
			if err != nil {
				return fmt.Errorf("count chats: %w", err)
			}

			msgCount, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}

			fmt.Printf("  Chats:    %d\n", chatCount)
			fmt.Printf("  Messages: %d\n", msgCount)

			fmt.Println("\n=== FTS5 ===")
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == msgCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (messages=%d, fts=%d)\n", msgCount, ftsCount)
				}
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
