// privatepub signs subscription tickets, publishes to a Bayeux broker and
// receives the broker's lifecycle events.
//
// Usage:
//
//	privatepub                 run the service
//	privatepub token [flags]   mint a service token for the HTTP API
//	privatepub migrate [-down] apply or roll back audit schema migrations
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/privatepub/internal/api"
	"github.com/nerrad567/privatepub/internal/audit"
	"github.com/nerrad567/privatepub/internal/auth"
	"github.com/nerrad567/privatepub/internal/events"
	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/infrastructure/database"
	"github.com/nerrad567/privatepub/internal/infrastructure/influxdb"
	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
	"github.com/nerrad567/privatepub/internal/infrastructure/metrics"
	"github.com/nerrad567/privatepub/internal/infrastructure/mqtt"
	"github.com/nerrad567/privatepub/internal/publisher"
	"github.com/nerrad567/privatepub/internal/pubsub"
	"github.com/nerrad567/privatepub/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Defaults for the configuration file and the environment document in it.
const (
	defaultConfigPath  = "configs/privatepub.yaml"
	defaultEnvironment = "development"
)

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "token":
			err = runToken(os.Args[2:], os.Stdout)
		case "migrate":
			err = runMigrate(context.Background(), os.Args[2:], os.Stdout)
		default:
			err = fmt.Errorf("unknown command %q", os.Args[1])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting privatepub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"server", cfg.Server,
		"secret_token", logging.Redact(cfg.SecretToken),
		"log_state", cfg.LogState,
	)

	signer := pubsub.NewSigner(cfg.PubSubConfig)
	pub := publisher.New(cfg.PubSubConfig, log)
	m := metrics.New()
	pub.AddObserver(publisher.RecorderObserver(m))

	// Event recorders beyond Prometheus; the hooks are assembled below.
	recorders := []events.Hooks{events.NewRecorderHooks(m)}

	var db *database.DB
	var auditRec *audit.Recorder
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		auditRec = audit.NewRecorder(audit.NewSQLiteRepository(db.DB), log)
		pub.AddObserver(auditRec)
		log.Info("audit trail enabled", "path", db.Path())
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		var influxErr error
		influxClient, influxErr = influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		pub.AddObserver(publisher.RecorderObserver(influxClient))
		recorders = append(recorders, events.NewRecorderHooks(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		recorders = append(recorders, events.NewMQTTRelay(mqttClient, log))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	hooks := events.Multi(append([]events.Hooks{
		events.NewStatusHooks(logging.NewStatusLogger(cfg.LogState)),
	}, recorders...)...)
	adapter := events.NewAdapter(hooks, events.OptionsFromConfig(cfg.Adapter, signer))

	if mqttClient != nil {
		if bindErr := events.BindBrokerEvents(mqttClient, adapter); bindErr != nil {
			return bindErr
		}
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:    cfg.API,
			Security:  cfg.Security,
			Logger:    log,
			Signer:    signer,
			Publisher: pub,
			Adapter:   adapter,
			Audit:     auditRec,
			Metrics:   m,
			DB:        db,
			Version:   version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if influxClient != nil {
			deps.InfluxDB = influxClient
			deps.Tickets = append(deps.Tickets, influxClient)
		}

		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// loadConfig reads the configuration file and applies Vault secrets.
func loadConfig(ctx context.Context) (*config.Config, error) {
	path, environment := getConfigPath()
	cfg, err := config.Load(path, environment)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ApplyVaultSecrets(ctx, cfg); err != nil {
		return nil, fmt.Errorf("reading vault secrets: %w", err)
	}
	return cfg, nil
}

// getConfigPath returns the configuration file and environment to load.
func getConfigPath() (path, environment string) {
	path, environment = defaultConfigPath, defaultEnvironment
	if v := os.Getenv("PRIVATEPUB_CONFIG"); v != "" {
		path = v
	}
	if v := os.Getenv("PRIVATEPUB_ENV"); v != "" {
		environment = v
	}
	return path, environment
}

// healthCheck verifies the optional backends that were enabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// runToken mints a service token with the configured JWT secret and
// writes it to out.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "", "service name the token is issued to")
	role := fs.String("role", string(auth.RolePublisher), "publisher, broker or admin")
	ttl := fs.Int("ttl", 0, "lifetime in minutes (default: security.jwt.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	path, environment := getConfigPath()
	cfg, err := config.Load(path, environment)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	minutes := *ttl
	if minutes <= 0 {
		minutes = cfg.Security.JWT.AccessTokenTTL
	}

	token, err := auth.GenerateAccessToken(*subject, auth.Role(*role), []byte(cfg.Security.JWT.Secret), minutes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// runMigrate applies pending audit migrations, or with -down rolls back
// the latest one, then writes the schema state to out.
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	down := fs.Bool("down", false, "roll back the most recent migration")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	path, environment := getConfigPath()
	cfg, err := config.Load(path, environment)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Database.Enabled {
		return errors.New("database is not enabled")
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if *down {
		err = db.MigrateDown(ctx, migrations.FS)
	} else {
		err = db.Migrate(ctx, migrations.FS)
	}
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %d applied, %d pending\n", db.Path(), len(applied), len(pending))
	return err
}
