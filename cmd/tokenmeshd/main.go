package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tokenmesh/channel/wschannel"
	"tokenmesh/cmd/internal/passphrase"
	"tokenmesh/config"
	"tokenmesh/core/timegate"
	"tokenmesh/core/txn"
	"tokenmesh/node"
	"tokenmesh/observability/logging"
	telemetry "tokenmesh/observability/otel"
	"tokenmesh/reliability"
	"tokenmesh/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Override the configured listen address")
	wsPath := flag.String("ws-path", "/ws", "HTTP path the peer websocket endpoint is served on")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TOKENMESH_ENV"))

	bootstrapCfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}
	logger := logging.Setup("tokenmeshd", env, logging.QuarantineSink(bootstrapCfg.DataDir))

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "tokenmeshd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg := bootstrapCfg
	listenAddress := cfg.ListenAddress
	if strings.TrimSpace(*listenFlag) != "" {
		listenAddress = *listenFlag
	}

	pass, err := passphrase.NewSource("TOKENMESH_KEYSTORE_PASSPHRASE").Get()
	if err != nil {
		logger.Error("failed to resolve keystore passphrase", slog.Any("error", err))
		os.Exit(1)
	}
	nodeKey, err := cfg.LoadNodeKey(pass)
	if err != nil {
		logger.Error("failed to resolve node key", slog.Any("error", err))
		os.Exit(1)
	}
	selfPub := nodeKey.PubKey().String()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to prepare data directory", slog.Any("error", err))
		os.Exit(1)
	}

	tokenDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "tokens"))
	if err != nil {
		logger.Error("failed to open token database", slog.Any("error", err))
		os.Exit(1)
	}
	defer tokenDB.Close()
	tokenStore := storage.NewTokenStore(tokenDB)

	attestations, err := storage.OpenAttestationStore(filepath.Join(cfg.DataDir, "attestations.db"))
	if err != nil {
		logger.Error("failed to open attestation store", slog.Any("error", err))
		os.Exit(1)
	}
	defer attestations.Close()

	gate := timegate.New(alwaysVerifiedSource{})

	mgr := txn.NewManager(selfPub, nodeKey, tokenStore, attestations, gate, nil, logger, func() int64 {
		return time.Now().UnixMilli()
	})

	baseBackoff, maxBackoff, _, err := cfg.Global.BackoffBounds()
	if err != nil {
		logger.Error("invalid reliability policy", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("reliability envelope configured",
		slog.Duration("baseBackoff", baseBackoff),
		slog.Duration("maxBackoff", maxBackoff),
		slog.Duration("sessionTTL", cfg.Global.SessionTTL()))

	guard := reliability.NewFrameGuard(0)
	sessions := reliability.NewSessionManager()
	pacer := reliability.NewPacer(cfg.Global.Reliability.FramesPerSecond, cfg.Global.Reliability.Burst)

	mux := http.NewServeMux()
	mux.HandleFunc(*wsPath, func(w http.ResponseWriter, r *http.Request) {
		ch, err := wschannel.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept failed", slog.Any("error", err))
			return
		}
		defer ch.Close()

		session := sessions.Open()
		logger.Info("peer connected", slog.String("sessionId", session.SessionID), slog.String("remote", r.RemoteAddr))

		acks := reliability.NewAckTracker()
		dispatcher := node.New(ch, mgr, guard, acks, pacer, logger)
		if err := dispatcher.Run(r.Context()); err != nil {
			logger.Warn("peer session ended", slog.String("sessionId", session.SessionID), slog.Any("error", err))
		}
		sessions.Close(session.SessionID)
	})

	logger.Info("tokenmeshd listening", slog.String("address", listenAddress), slog.String("party", selfPub))
	if err := http.ListenAndServe(listenAddress, mux); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// alwaysVerifiedSource is a placeholder timegate.Source: the real
// time-consensus network (NTP pool consensus or a trusted beacon) is an
// external collaborator out of scope for this core (spec §1). Operators
// wiring a production deployment replace this with an adapter over their
// chosen time authority.
type alwaysVerifiedSource struct{}

func (alwaysVerifiedSource) TimeStatus(ctx context.Context) (timegate.Status, error) {
	return timegate.StatusVerified, nil
}
