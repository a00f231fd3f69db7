package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dev.hon.one/routewatch/common"
	"dev.hon.one/routewatch/db"
	httpserver "dev.hon.one/routewatch/http"
	"dev.hon.one/routewatch/scraping"
	"dev.hon.one/routewatch/util"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the collector until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Infof("Starting %v version %v by %v", common.AppName, common.AppVersion, common.AppAuthor)

			config, inventory, err := loadConfigAndInventory()
			if err != nil {
				return err
			}

			// Setup internal shutdown mechanism
			shutdownChannel := make(chan os.Signal, 1)
			signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(shutdownChannel)
			shutdown := util.NewShutdownChannelDistributor(shutdownChannel)

			registry := httpserver.NewRegistry()
			store := db.NewInfluxStore(config.InfluxDBURL, config.InfluxDBToken, config.InfluxDBOrg, config.InfluxDBBucket)
			collector := scraping.NewCollector(
				inventory,
				&scraping.SSHExecutor{Timeout: config.SSHTimeout()},
				&scraping.ICMPProber{Privileged: config.ICMPPrivileged},
				store,
				scraping.NewMetrics(registry),
				config.ProbeTimeout(),
			)
			scheduler := scraping.NewScheduler(collector, config.ScrapeInterval(), config.Workers)

			// Run internal services in background and wait for all to finish
			var waitGroup sync.WaitGroup
			httpserver.StartServer(&waitGroup, shutdown, config.HTTPEndpoint, registry)
			store.Start(&waitGroup, shutdown)
			scraping.StartScheduler(&waitGroup, shutdown, scheduler)
			waitGroup.Wait()

			log.Info("Stopped")
			return nil
		},
	}
}
