// Package config provides configuration management for the block grid game.
//
// Game configurations are JSON files in a config directory. The file name
// without its extension is the config ID used to create sessions. Each file
// decodes over engine.DefaultGameConfig, so a file only needs the fields it
// changes:
//
//	{
//	  "name": "Daily",
//	  "mode": "daily_challenge",
//	  "grid_size": 8,
//	  "layout": ["........", "..RR....", ...],
//	  "legend": {"R": "red"}
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("classic")
//	configs, err := manager.ListConfigs()
//
// The default config is classic.json when present, then the first valid file
// in the directory, then the built-in classic rules. Loaded configs are
// cached; ReloadConfig and RefreshCache pick up edits made on disk.
package config
