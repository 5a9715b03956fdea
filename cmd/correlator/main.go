// Command correlator hosts the event correlation core as a standalone
// process: it reads newline-delimited JSON events from stdin, loads a
// rule document from disk, and serves a small HTTP surface for stats,
// alerts, and decision-graph export (spec §6 External Interfaces).
//
// Collector-side event ingestion, rule-file hot reloading, MITRE
// enrichment, and any dashboard UI are explicitly out of scope (spec §1
// Non-goals) — this binary is the reference host the core needs to be
// runnable and testable, not a production deployment story.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sec-correlate/correlator/internal/config"
	"github.com/sec-correlate/correlator/internal/correlator"
	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/logging"
	"github.com/sec-correlate/correlator/internal/rule"
	"github.com/sec-correlate/correlator/internal/telemetry"
	"github.com/sec-correlate/correlator/pkg/sink"
)

func main() {
	rulesPath := flag.String("rules", "", "path to a rule document (YAML)")
	addr := flag.String("addr", ":8090", "HTTP listen address for stats/alerts/export_graph")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "log format: json, text")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP gRPC endpoint; empty writes spans to stdout")
	redisURL := flag.String("redis-url", "", "optional Redis URL for the alert stream sink")
	flag.Parse()

	logger := logging.NewProductionLogger(*logLevel, *logFormat)

	cfg, err := config.New(
		config.WithLogging(*logLevel, *logFormat),
		config.WithTelemetry("correlator", *otlpEndpoint),
		config.WithRedisSink(*redisURL, ""),
	)
	if err != nil {
		log.Fatalf("correlator: invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := telemetry.New(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("correlator: telemetry init: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", map[string]interface{}{"error": err.Error()})
		}
	}()

	core := correlator.New(cfg, clockwork.NewRealClock(), logger, provider)

	core.RegisterSink(sink.NewLogSink(logger.WithComponent("sink/log")))
	if cfg.RedisURL != "" {
		redisSink, err := sink.NewRedisStreamSink(ctx, cfg.RedisURL, cfg.RedisStream)
		if err != nil {
			logger.Error("redis sink unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		} else {
			core.RegisterSink(redisSink)
		}
	}

	if *rulesPath != "" {
		if err := loadRulesFromFile(core, cfg, *rulesPath); err != nil {
			log.Fatalf("correlator: %v", err)
		}
	}

	go core.Run(ctx)

	server := newHTTPServer(*addr, core, cfg)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	go ingestStdin(ctx, core, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down", nil)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DrainDeadline+time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	core.Stop()
	logger.Info("shutdown complete", nil)
}

func loadRulesFromFile(core *correlator.Core, cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	doc, errs := rule.ParseDocument(f, cfg.RuleDefaults())
	if len(errs) > 0 {
		var b strings.Builder
		for _, e := range errs {
			b.WriteString(e.Error())
			b.WriteString("; ")
		}
		return fmt.Errorf("rule document invalid: %s", b.String())
	}

	core.LoadRules(doc)
	return nil
}

// ingestStdin treats stdin as the NDJSON ingress stream of spec §6. A
// real deployment would instead attach a collector; this is the minimal
// host surface needed to drive the core.
func ingestStdin(ctx context.Context, core *correlator.Core, logger logging.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := event.DecodeJSON(line, time.Now())
		if err != nil {
			logger.Warn("rejected malformed event", map[string]interface{}{"error": err.Error()})
			continue
		}
		if !core.Submit(ctx, ev) {
			return
		}
	}
}

func newHTTPServer(addr string, core *correlator.Core, cfg *config.Config) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, core.Stats())
	})

	mux.HandleFunc("/alerts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, core.Alerts())
	})

	mux.HandleFunc("/export_graph", func(w http.ResponseWriter, r *http.Request) {
		indexParam := r.URL.Query().Get("index")
		index, err := strconv.Atoi(indexParam)
		if err != nil {
			http.Error(w, "index query parameter must be an integer", http.StatusBadRequest)
			return
		}
		graph, err := core.DecisionGraph(index)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.Write(graph.DOT())
	})

	handler := otelhttp.NewHandler(mux, cfg.ServiceName)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
