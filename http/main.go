package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/routewatch/common"
	"dev.hon.one/routewatch/util"
)

const shutdownTimeout = 5 * time.Second

// NewRegistry - Create a registry with Go runtime and exporter info metrics.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	util.NewExporterMetric(registry, common.PrometheusNamespace, common.AppVersion)
	return registry
}

// StartServer - Start HTTP server in the background.
func StartServer(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor, endpoint string, registry *prometheus.Registry) {
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	waitGroup.Add(1)

	server := &http.Server{
		Addr:    endpoint,
		Handler: newServeMux(registry),
	}

	// Run
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
		}
	}()

	// Shutdown
	go func() {
		defer waitGroup.Done()
		defer log.Info("HTTP server stopped")
		select {
		case <-shutdownChannel:
			shutdownContext, shutdownContextCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownContextCancel()
			if err := server.Shutdown(shutdownContext); err != nil {
				log.WithError(err).Warn("HTTP server shutdown failed")
			}
			<-stopped
		case <-stopped:
		}
	}()

	log.Infof("HTTP server started: %v", endpoint)
}

func newServeMux(registry *prometheus.Registry) *http.ServeMux {
	mainServeMux := http.NewServeMux()
	mainServeMux.HandleFunc("/", handleOtherRequest)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	mainServeMux.HandleFunc("/metrics", func(response http.ResponseWriter, request *http.Request) {
		log.WithFields(log.Fields{
			"endpoint": "metrics",
			"client":   request.RemoteAddr,
			"url":      request.URL,
		}).Trace("Request")
		metricsHandler.ServeHTTP(response, request)
	})
	return mainServeMux
}

func handleOtherRequest(response http.ResponseWriter, request *http.Request) {
	if request.URL.Path == "/" {
		fmt.Fprintf(response, "%s version %s by %s.\n", common.AppName, common.AppVersion, common.AppAuthor)
		fmt.Fprintf(response, "\nPaths:\n")
		fmt.Fprintf(response, "- Metrics: /metrics\n")
	} else {
		http.Error(response, "404 - Page not found.\n", http.StatusNotFound)
	}
}
