package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jiaming2012/tradecraft/src/brokers"
	_ "github.com/jiaming2012/tradecraft/src/brokers/alpaca"
	"github.com/jiaming2012/tradecraft/src/brokers/ibkr"
	"github.com/jiaming2012/tradecraft/src/eventconsumers"
	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventpubsub"
	"github.com/jiaming2012/tradecraft/src/utils"
)

func main() {
	run()
}

// handleFunc registers a handler with the route pattern attached to the HTTP
// instrumentation as http.route.
func handleFunc(router *mux.Router, pattern string, handlerFunc func(http.ResponseWriter, *http.Request)) {
	handler := otelhttp.WithRouteTag(pattern, http.HandlerFunc(handlerFunc))
	router.Handle(pattern, handler)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func healthHandler(cfg *eventmodels.BridgeConfigYAML, session brokers.IBrokerSession) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status":    "ok",
			"broker":    cfg.Broker,
			"connected": session.IsConnected(),
		})
	}
}

func statusHandler(cfg *eventmodels.BridgeConfigYAML, session brokers.IBrokerSession, tracker *eventconsumers.GatewayActivityTracker, startedAt time.Time) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"broker":           cfg.Broker,
			"data_provider":    cfg.DataProvider,
			"connected":        session.IsConnected(),
			"uptime_seconds":   int(time.Since(startedAt).Seconds()),
			"gateway_activity": tracker.Stats(),
		}

		if gateway, ok := session.(*ibkr.Session); ok {
			marketData, accountUpdates, pnl := gateway.SubscriptionCounts()
			status["subscriptions"] = map[string]int{
				"market_data":     marketData,
				"account_updates": accountUpdates,
				"pnl":             pnl,
			}
			status["summary_cache"] = gateway.SummaryCacheStats()
			status["chain_cache"] = gateway.ChainCacheStats()
		}

		writeJSON(w, status)
	}
}

func run() {
	projectsDir, err := utils.GetEnv("PROJECTS_DIR")
	if err != nil {
		log.Fatalf("PROJECTS_DIR not set: %v", err)
	}

	goEnv, err := utils.GetEnv("GO_ENV")
	if err != nil {
		log.Fatalf("GO_ENV not set: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	if err := utils.InitEnvironmentVariables(projectsDir, goEnv); err != nil {
		log.Panic(err)
	}

	eventpubsub.Init()

	log.SetOutput(os.Stdout)

	log.Infof("Log level set to %v", log.GetLevel())

	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	)))

	cfg, err := utils.LoadBridgeConfig(projectsDir)
	if err != nil {
		log.Fatalf("failed to load bridge config: %v", err)
	}

	session, err := brokers.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("failed to create broker session: %v", err)
	}

	// Subscriptions must be live before the protocol loop starts publishing.
	tracker := eventconsumers.NewGatewayActivityTracker()
	tracker.Start()

	if err := session.Connect(ctx); err != nil {
		log.Fatalf("failed to connect %s session: %v", cfg.Broker, err)
	}

	port, err := utils.GetEnv("PORT")
	if err != nil {
		log.Fatalf("$PORT not set: %v", err)
	}

	startedAt := time.Now().UTC()

	router := mux.NewRouter()
	handleFunc(router, "/health", healthHandler(cfg, session))
	handleFunc(router, "/status", statusHandler(cfg, session, tracker, startedAt))

	// Register pprof handlers
	pprofRouter := router.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.HandleFunc("/", http.HandlerFunc(pprof.Index))
	pprofRouter.HandleFunc("/cmdline", http.HandlerFunc(pprof.Cmdline))
	pprofRouter.HandleFunc("/profile", http.HandlerFunc(pprof.Profile))
	pprofRouter.HandleFunc("/symbol", http.HandlerFunc(pprof.Symbol))
	pprofRouter.HandleFunc("/trace", http.HandlerFunc(pprof.Trace))
	pprofRouter.Handle("/allocs", pprof.Handler("allocs"))
	pprofRouter.Handle("/block", pprof.Handler("block"))
	pprofRouter.Handle("/goroutine", pprof.Handler("goroutine"))
	pprofRouter.Handle("/heap", pprof.Handler("heap"))
	pprofRouter.Handle("/mutex", pprof.Handler("mutex"))
	pprofRouter.Handle("/threadcreate", pprof.Handler("threadcreate"))

	srv := &http.Server{
		Handler: router,
		Addr:    fmt.Sprintf(":%s", port),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil {
			if err.Error() != "http: Server closed" {
				log.Fatalf("failed to start server: %v", err)
			}
		}
	}()

	eventconsumers.NewAccountSummaryWorker(&wg, session).Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	<-stop

	cancel()

	wg.Wait()

	session.Disconnect()

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Errorf("failed to shut down server: %v", err)
	}

	log.Info("Main: gracefully stopped!")
}
