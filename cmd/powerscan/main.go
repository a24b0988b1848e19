/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/powerscan/pkg/asset"
	"github.com/carverauto/powerscan/pkg/bus"
	"github.com/carverauto/powerscan/pkg/config"
	"github.com/carverauto/powerscan/pkg/config/kvnats"
	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/device"
	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/lifecycle"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/natsutil"
	"github.com/carverauto/powerscan/pkg/protocol"
	"github.com/carverauto/powerscan/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

var (
	errFailedToLoadConfig  = errors.New("failed to load powerscan configuration")
	errFailedToConnectNATS = errors.New("failed to connect to NATS")
	errFailedToInitEngine  = errors.New("failed to initialize discovery engine")
)

const defaultConfigBucket = "powerscan-config"

func run() error {
	configFile := flag.String("config", "/etc/powerscan/powerscan.json", "Path to powerscan config file")
	bootstrapURL := flag.String("nats-url", "nats://127.0.0.1:4222", "NATS URL used to fetch the config when CONFIG_SOURCE=kv")
	bootstrapBucket := flag.String("config-bucket", defaultConfigBucket, "KV bucket holding the config when CONFIG_SOURCE=kv")
	showVersion := flag.Bool("version", false, "Print the version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())

		return nil
	}

	ctx := context.Background()

	cfg, err := loadConfig(ctx, *configFile, *bootstrapURL, *bootstrapBucket)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	mainLogger, err := lifecycle.CreateComponentLogger(cfg.ServiceName, cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		if sErr := lifecycle.ShutdownLogger(); sErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown logger: %v\n", sErr)
		}
	}()

	nc, err := natsutil.ConnectWithSecurity(ctx, cfg.NATS.URL, cfg.NATS.Security, mainLogger.WithComponent("nats"))
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToConnectNATS, err)
	}
	defer nc.Close()

	engine, err := buildEngine(ctx, cfg, nc, mainLogger)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitEngine, err)
	}

	server := bus.NewServer(nc, cfg.NATS.Mailbox, engine, mainLogger.WithComponent("bus"))

	mainLogger.Info().
		Str("version", version.Version()).
		Str("build", version.BuildID()).
		Str("nats_url", cfg.NATS.URL).
		Str("mailbox", cfg.NATS.Mailbox).
		Msg("Starting powerscan")

	err = lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: cfg.ServiceName,
		Services:    []lifecycle.Service{engine, server},
		Logger:      mainLogger,
	})

	if dErr := nc.Drain(); dErr != nil && !errors.Is(dErr, nats.ErrConnectionClosed) {
		mainLogger.Warn().Err(dErr).Msg("Failed to drain NATS connection")
	}

	return err
}

// loadConfig reads the service config. With CONFIG_SOURCE=kv it is fetched
// from the bootstrap NATS server first.
func loadConfig(ctx context.Context, path, natsURL, bucket string) (*models.ServiceConfig, error) {
	bootLogger, err := lifecycle.CreateComponentLogger("config", logger.DefaultConfig())
	if err != nil {
		return nil, err
	}

	loader := config.NewConfig(bootLogger)

	if strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "kv") {
		nc, err := natsutil.ConnectWithSecurity(ctx, natsURL, nil, bootLogger)
		if err != nil {
			return nil, err
		}
		defer nc.Close()

		kv, err := kvnats.New(ctx, nc, bucket)
		if err != nil {
			return nil, err
		}

		loader.SetKVStore(kv)
	}

	var cfg models.ServiceConfig

	if err := loader.LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func buildEngine(ctx context.Context, cfg *models.ServiceConfig, nc *nats.Conn, mainLogger logger.Logger) (*discovery.Engine, error) {
	creds, err := buildCredentialStore(cfg, mainLogger.WithComponent("credentials"))
	if err != nil {
		return nil, err
	}

	discoveryCfg := cfg.Discovery.Clone()
	discoveryCfg.ApplyDefaults()

	deviceLogger := mainLogger.WithComponent("device")

	reader, err := device.NewReader(discoveryCfg, creds, deviceLogger)
	if err != nil {
		return nil, err
	}

	kv, err := kvnats.New(ctx, nc, cfg.NATS.ConfigBucket)
	if err != nil {
		return nil, err
	}

	var events discovery.EventPublisher

	publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg.NATS.EventsStream, cfg.NATS.EventsSubject, mainLogger.WithComponent("events"))
	if err != nil {
		mainLogger.Warn().Err(err).Msg("Scan events disabled")
	} else {
		events = publisher
	}

	assetLogger := mainLogger.WithComponent("asset")

	return discovery.NewEngine(discoveryCfg, discovery.Deps{
		Prober: protocol.NewProber(discoveryCfg, mainLogger.WithComponent("prober")),
		Reader: reader,
		Mapper: asset.NewMapper(nil, assetLogger),
		Assets: asset.NewNATSService(nc, cfg.NATS.AssetSubject, time.Duration(cfg.NATS.RequestTimeout), assetLogger),
		Store:  config.NewDiscoveryStore(kv),
		Events: events,
		Logger: mainLogger.WithComponent("discovery"),
	})
}

// buildCredentialStore serves credentials from the config file, then Vault.
func buildCredentialStore(cfg *models.ServiceConfig, log logger.Logger) (credentials.Store, error) {
	static := credentials.NewStaticStore(cfg.Credentials)

	if cfg.Vault == nil || cfg.Vault.Address == "" {
		return static, nil
	}

	vault, err := credentials.NewVaultStore(cfg.Vault, log)
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", cfg.Vault.Address).Msg("Vault credential store enabled")

	return credentials.Chain{static, vault}, nil
}
