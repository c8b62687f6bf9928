// Command courtd runs the confidential court service together with its
// encryption oracle in one process.
//
// The daemon hosts the trial registry and message ledger, and the mock
// encryption runtime that backs input encryption and grant-verified
// decryption. Both route sets are mounted on one HTTP server so handles
// issued by the oracle resolve against the same runtime the court verifies
// proofs with.
//
// # Persistence
//
// Trial records and message entries are persisted to PostgreSQL when
// POSTGRES_HOST is set, otherwise kept in memory. On startup the ledger is
// restored from the store before the server accepts requests.
//
// # Usage
//
//	go run ./cmd/courtd --addr=:8090 --metrics-addr=:8091
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytebloomg/PrivateCourt/api/httpserver"
	"github.com/bytebloomg/PrivateCourt/cmd/common"
	"github.com/bytebloomg/PrivateCourt/court"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/fhe"
	"github.com/bytebloomg/PrivateCourt/services"
)

func main() {
	common.LoadEnv()

	var (
		addr          = flag.String("addr", common.EnvOr("LISTEN_ADDR", ":8090"), "HTTP listen address")
		metricsAddr   = flag.String("metrics-addr", common.EnvOr("METRICS_ADDR", ":8091"), "Metrics listen address (empty disables)")
		enablePprof   = flag.Bool("pprof", false, "Enable the pprof debugging API")
		enableCORS    = flag.Bool("cors", false, "Allow cross-origin requests")
		logJSON       = flag.Bool("log-json", false, "Log in JSON format")
		logDebug      = flag.Bool("log-debug", false, "Log at debug level")
		signingKeyHex = flag.String("signing-key", os.Getenv("SIGNING_KEY"), "Ed25519 service key (hex, generates if empty)")
	)
	flag.Parse()

	log := common.NewLogger(*logJSON, *logDebug)

	signingKey, err := common.LoadOrGenerateSigningKey(*signingKeyHex)
	if err != nil {
		fmt.Printf("Signing key error: %v\n", err)
		os.Exit(1)
	}

	// The contract identity ciphertexts are bound to derives from the
	// service key, so restarts with the same key keep the same identity.
	pubKey, _ := signingKey.PublicKey()
	contract := crypto.AddressFromPublicKey(pubKey)
	log.Info("court contract identity", "contract", contract)

	var store services.TrialStore
	pgConfig, err := common.PostgresConfigFromEnv()
	if err != nil {
		fmt.Printf("Postgres config error: %v\n", err)
		os.Exit(1)
	}
	if pgConfig != nil {
		pgStore, err := services.NewPostgresStore(pgConfig)
		if err != nil {
			fmt.Printf("Postgres connect error: %v\n", err)
			os.Exit(1)
		}
		store = pgStore
		log.Info("using postgres persistence", "host", pgConfig.Host, "database", pgConfig.Database)
	} else {
		store = services.NewInMemoryStore()
		log.Info("using in-memory persistence")
	}
	defer store.Close()

	runtime, err := fhe.NewMockRuntime()
	if err != nil {
		fmt.Printf("Runtime error: %v\n", err)
		os.Exit(1)
	}

	c := court.NewCourt(contract, runtime)
	if err := services.RestoreCourt(c, store); err != nil {
		fmt.Printf("Ledger restore error: %v\n", err)
		os.Exit(1)
	}

	courtService := services.NewCourtService(c, store, log)
	oracleService := services.NewOracleService(runtime, log)

	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		EnablePprof:              *enablePprof,
		EnableCORS:               *enableCORS,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, courtService, oracleService)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	server.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	server.Shutdown()
}
