// Package config handles loading and validating privatepub configuration.
//
// This package manages:
//   - The per-environment YAML document (development, test, production, ...)
//   - The Store: an explicit, resettable configuration object handed to
//     the publisher, signer and event sink
//   - Overriding with PRIVATEPUB_* environment variables (envconfig)
//   - Optionally pulling the shared secret from HashiCorp Vault
//   - Validation of the ambient sections (API, MQTT, security)
//
// A configuration document looks like:
//
//	production:
//	  server: "https://faye.example.com/faye"
//	  secret_token: "change-me"
//	  signature_expiration: 3600   # seconds, omit for no expiration
//	  log_state: false
//
// Security Considerations:
//   - secret_token signs every subscription ticket; set it via
//     PRIVATEPUB_SECRET_TOKEN or Vault rather than committing it
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/privatepub.yaml", "production")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	signer := pubsub.NewSigner(cfg.PubSubConfig)
package config
