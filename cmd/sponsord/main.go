package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/opencampaigns/sponsord/common"
	"github.com/opencampaigns/sponsord/httpserver"
	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/policy"
	"github.com/opencampaigns/sponsord/quota"
	"github.com/opencampaigns/sponsord/suirpc"
	"github.com/opencampaigns/sponsord/treasury"
	"github.com/opencampaigns/sponsord/zklogin"
)

// secretsConfig holds the process secrets, supplied through the environment
// so they never appear in argv or process listings.
type secretsConfig struct {
	// TreasuryPrivateKey is the sponsor signing key, either the canonical
	// bech32 encoding or a raw hex seed.
	TreasuryPrivateKey string `env:"SPONSOR_TREASURY_KEY"`

	// ProverAuthToken authenticates this service to the proving service.
	ProverAuthToken string `env:"SPONSOR_PROVER_TOKEN"`
}

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "rpc-url",
		Value: "https://fullnode.mainnet.sui.io:443",
		Usage: "fullnode JSON-RPC endpoint",
	},
	&cli.StringFlag{
		Name:  "prover-url",
		Value: "",
		Usage: "zkLogin proving service endpoint (required)",
	},
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:  "metrics-addr",
		Value: "127.0.0.1:8090",
		Usage: "address to listen on for Prometheus metrics",
	},
	&cli.StringFlag{
		Name:  "quota-backend",
		Value: "mem://",
		Usage: "quota store URI: mem://, badger:///path, vault://host:port/mount/path",
	},
	&cli.Uint64Flag{
		Name:  "max-campaigns",
		Value: 3,
		Usage: "sponsored campaign creations allowed per identity",
	},
	&cli.Uint64Flag{
		Name:  "max-responses",
		Value: 10,
		Usage: "sponsored response submissions allowed per identity",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: common.PackageName,
		Usage: "add 'service' tag to logs",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

func main() {
	app := &cli.App{
		Name:  "sponsord",
		Usage: "Serve the campaign sponsorship and zkLogin identity-bridge API",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			metricsAddr := cCtx.String("metrics-addr")
			rpcURL := cCtx.String("rpc-url")
			proverURL := cCtx.String("prover-url")
			quotaBackend := cCtx.String("quota-backend")
			logJSON := cCtx.Bool("log-json")
			logDebug := cCtx.Bool("log-debug")
			logUID := cCtx.Bool("log-uid")
			logService := cCtx.String("log-service")
			enablePprof := cCtx.Bool("pprof")
			drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second

			limits := interfaces.SponsorshipLimits{
				MaxCampaigns: cCtx.Uint64("max-campaigns"),
				MaxResponses: cCtx.Uint64("max-responses"),
			}

			// Setup logger
			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   logDebug,
				JSON:    logJSON,
				Service: logService,
				Version: common.Version,
			})

			if logUID {
				id := uuid.Must(uuid.NewRandom())
				logger = logger.With("uid", id.String())
			}

			// Secrets come from the environment, never flags
			var secrets secretsConfig
			if err := env.Parse(&secrets); err != nil {
				logger.Error("Failed to parse environment", "err", err)
				return err
			}

			// Load the treasury keypair once for the whole process
			keypair, err := treasury.Load(secrets.TreasuryPrivateKey)
			if err != nil {
				logger.Error("Failed to load treasury key", "err", err)
				return err
			}
			logger.Info("Treasury key loaded", "address", keypair.Address())

			// Quota store and policy
			quotaStore, err := quota.StoreFor(quotaBackend, logger)
			if err != nil {
				logger.Error("Failed to create quota store", "err", err, "backend", quotaBackend)
				return err
			}
			defer quotaStore.Close()

			sponsorPolicy := policy.New(quotaStore, limits, logger)
			logger.Info("Sponsorship limits configured",
				"maxCampaigns", limits.MaxCampaigns,
				"maxResponses", limits.MaxResponses)

			// Chain RPC and treasury signer
			logger.Info("Using fullnode RPC", "url", rpcURL)
			rpcClient := suirpc.NewClient(rpcURL)
			signer := treasury.NewSigner(keypair, rpcClient, sponsorPolicy, logger)

			// zkLogin proof bridge
			bridge, err := zklogin.NewBridge(zklogin.Config{
				ProverURL: proverURL,
				AuthToken: secrets.ProverAuthToken,
			}, logger)
			if err != nil {
				logger.Error("Failed to create proof bridge", "err", err)
				return err
			}

			cfg := &httpserver.HTTPServerConfig{
				ListenAddr:               listenAddr,
				MetricsAddr:              metricsAddr,
				Log:                      logger,
				EnablePprof:              enablePprof,
				DrainDuration:            drainDuration,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}

			handler := httpserver.NewHandler(signer, sponsorPolicy, bridge, rpcClient, logger)

			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
