package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hydradiscovery/hydradiscovery/internal/api"
	"github.com/hydradiscovery/hydradiscovery/internal/cache"
	"github.com/hydradiscovery/hydradiscovery/internal/config"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/resolver"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/transport"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/wiretransport"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/zonemap"
	"github.com/hydradiscovery/hydradiscovery/internal/logging"
	"github.com/hydradiscovery/hydradiscovery/internal/peers"
	"github.com/hydradiscovery/hydradiscovery/internal/registrystub"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	configPath string
	host       string
	port       int
	region     string
	zone       string
	nodeID     string
	localURL   string
	bootstrap  string
	jsonLogs   bool
	debug      bool
}

// parseFlags parses command-line flags and returns the values.
func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&f.host, "host", "", "Override admin API bind host")
	flag.IntVar(&f.port, "port", 0, "Override admin API bind port")
	flag.StringVar(&f.region, "region", "us-east-1", "This node's region")
	flag.StringVar(&f.zone, "zone", "", "This node's availability zone (empty means unknown/non-local)")
	flag.StringVar(&f.nodeID, "node-id", "", "Unique peer node ID (auto-generated if empty)")
	flag.StringVar(&f.localURL, "local-url", "", "This node's own peer URL, so PeerNodeSet can exclude it")
	flag.StringVar(&f.bootstrap, "bootstrap-endpoints", "", "Comma-separated host:port list of bootstrap discovery servers")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

// applyCLIOverrides applies command-line overrides to the config.
func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.host != "" {
		cfg.API.Host = f.host
	}
	if f.port != 0 {
		cfg.API.Port = f.port
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.StructuredFormat = "json"
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
	if f.bootstrap != "" {
		cfg.Peers.NodeURLs = splitCSV(f.bootstrap)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(config.ResolveConfigPath(flags.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	if flags.nodeID == "" {
		flags.nodeID = uuid.New().String()[:8]
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	logger.Info("HydraDiscovery starting",
		"region", flags.region,
		"zone", flags.zone,
		"node_id", flags.nodeID,
		"api_addr", net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zones := zonemap.New(func(region string) []string {
		return cfg.Zone.AvailabilityZones[region]
	})
	if err := zones.ConfigureRegionsToFetch([]string{flags.region}); err != nil {
		logger.Warn("zone map configuration failed, falling back to defaults", "err", err)
	}

	bootstrapEndpoints := parseBootstrapEndpoints(flags.bootstrap, flags.region, flags.zone)
	seedAddr := outboundIP()

	queryResolver, shutdownResolver, err := buildResolverChain(cfg, flags, bootstrapEndpoints, seedAddr)
	if err != nil {
		return fmt.Errorf("failed to build resolver chain: %w", err)
	}

	wire := wiretransport.NewHTTPClient(5 * time.Second)
	factory := transport.ComposeClientFactory(wire, dnsResolve, cfg.Transport.SessionedClientReconnectInterval)
	wireClient := transport.NewRetryableClient(
		queryResolver,
		factory,
		transport.LegacyStatusEvaluator{},
		transport.WithMaxAttempts(cfg.Transport.MaxAttempts),
		transport.WithQuarantineRefreshFraction(cfg.Transport.QuarantineRefreshPercentage),
		transport.WithRetryLogger(logger),
	)
	defer wireClient.Close()

	cacheOpts := []cache.Option{
		cache.WithReadWriteCapacity(cfg.Cache.ReadWriteCapacity),
		cache.WithAutoExpire(cfg.Cache.AutoExpiration),
		cache.WithUpdateInterval(cfg.Cache.UpdateInterval),
		cache.WithLogger(logger),
	}
	if !cfg.Cache.ShouldUseReadOnly {
		cacheOpts = append(cacheOpts, cache.WithReadOnlyDisabled())
	}
	store := registrystub.New()
	respCache := cache.New(store, registrystub.JSONEncoder{}, cacheOpts...)
	respCache.Start()

	peerSet := peers.New(
		func(ctx context.Context) ([]string, error) { return cfg.Peers.NodeURLs, nil },
		func(ctx context.Context, url string) (transport.Client, error) { return wire(ctx, peerEndpoint(url)) },
		func(url string) bool { return url == flags.localURL },
		cfg.Peers.UpdateInterval,
		logger,
	)
	if err := peerSet.Start(ctx); err != nil {
		logger.Warn("peer set failed to start", "err", err)
	}

	apiSrv := api.New(cfg, logger)
	apiSrv.Handler().SetResolver(queryResolver)
	apiSrv.Handler().SetCache(respCache)
	apiSrv.Handler().SetPeerSet(peerSet)

	logger.Info("admin API starting", "addr", apiSrv.Addr())
	go func() {
		serveErr := apiSrv.ListenAndServe()
		if serveErr == nil || errors.Is(serveErr, http.ErrServerClosed) {
			return
		}
		logger.Error("admin API error", "err", serveErr)
		cancel()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Graceful shutdown order: admin API first (stop accepting new
	// diagnostic traffic), then peer reconciliation, then the response
	// cache's background reconciler, then the client-side resolver
	// stack's own background loops.
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin API shutdown error", "err", err)
	}
	peerSet.Shutdown()
	respCache.Shutdown()
	shutdownResolver()

	logger.Info("HydraDiscovery stopped")
	return nil
}

// parseBootstrapEndpoints turns a comma-separated host:port list into an
// endpoint.EndpointList tagged with region/zone, for ConfigResolver.
func parseBootstrapEndpoints(raw, region, zone string) endpoint.EndpointList {
	var out endpoint.EndpointList
	for _, hostport := range splitCSV(raw) {
		host, portStr, err := net.SplitHostPort(hostport)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		out = append(out, endpoint.Endpoint{Host: host, Port: port, Region: region, Zone: zone})
	}
	return out
}

// peerEndpoint adapts a bare peer URL string into an endpoint.Endpoint
// the wire factory can dial, defaulting to port 80 when unspecified.
func peerEndpoint(rawURL string) endpoint.Endpoint {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	secure := strings.HasPrefix(rawURL, "https://")
	host, portStr, err := net.SplitHostPort(trimmed)
	if err != nil {
		return endpoint.Endpoint{Host: trimmed, Port: 80, Secure: secure}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 80
	}
	return endpoint.Endpoint{Host: host, Port: port, Secure: secure}
}

// dnsResolve is the transport.Resolve hook RedirectingClient uses to turn
// a redirect Location's host into the IP address that the next hop's
// client targets.
func dnsResolve(ctx context.Context, host string) (net.IP, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("dnsResolve: no addresses for %q", host)
	}
	return ips[0], nil
}

// outboundIP returns this host's preferred outbound IPv4 address, used to
// seed the zone-affinity resolver's shuffle. It never dials out; UDP
// "connect" only selects a local route.
func outboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP
	}
	return net.IPv4(127, 0, 0, 1)
}

// buildResolverChain assembles ConfigResolver -> ZoneAffinityResolver ->
// AsyncResolver, returning a single Resolver plus a shutdown func that
// releases every layer that owns background resources.
func buildResolverChain(
	cfg *config.Config,
	flags cliFlags,
	bootstrapEndpoints endpoint.EndpointList,
	seedAddr net.IP,
) (resolver.Resolver, func(), error) {
	leaf := resolver.NewConfigResolver(flags.region, bootstrapEndpoints)
	zoneAffine := resolver.NewZoneAffinityResolver(leaf, flags.zone, seedAddr)

	async, err := resolver.NewAsyncResolver(zoneAffine, cfg.Async.RefreshInterval,
		resolver.WithWarmUpTimeout(cfg.Async.WarmUpTimeout),
	)
	if err != nil {
		return nil, nil, err
	}

	// A full local-registry-vs-remote(VIP) split needs two independent
	// upstream endpoint sources; this single-bootstrap-list deployment
	// has only one, so CompositeResolver's two-tier preference is
	// exercised by its own tests rather than wired here. async is the
	// query resolver either way.
	var top resolver.Resolver = async
	shutdown := func() {
		async.Shutdown()
	}
	return top, shutdown, nil
}
