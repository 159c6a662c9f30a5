// Package config provides configuration loading for the game server.
//
// The config package handles:
//   - Built-in defaults for the listener, session ids and lifetimes
//   - Loading overrides from a YAML file
//   - Validation of the merged result
//   - The optional catalog of session kinds
//
// Configuration Format:
//
//	server:
//	  host: ""
//	  port: 5000
//	  static_dir: public
//	  allowed_origins: ["https://games.example.com"]
//	sessions:
//	  id_min: 100000
//	  id_max: 999999
//	  allocation_attempts: 10
//	  idle_ttl: 10m
//	  sweep_interval: 1m
//	  default_kind: chess
//	kinds:
//	  - name: chess
//	    description: Two player chess
//	relay_events: [action, chat, move, transient]
//
// Keys left out of the file keep their defaults. Unknown keys are an error.
// When kinds is empty any well-formed kind may be created.
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	alloc := cfg.Allocator()
package config
