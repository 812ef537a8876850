package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/zcamper/silver-scraper/pkg/daemon"
	httpdaemon "github.com/zcamper/silver-scraper/pkg/http/daemon"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/scraper/cache"
	"github.com/zcamper/silver-scraper/pkg/scraper/cache/memcached"
	"github.com/zcamper/silver-scraper/pkg/site"
)

var version string

func main() {
	// Flag domain.
	fs := pflag.NewFlagSet("default", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "DESCRIPTION\n")
		fmt.Fprintf(os.Stderr, "  silverd is a daemon that keeps a cache of scraped product data fresh.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		fs.PrintDefaults()
	}
	var (
		listenAddr        = fs.StringP("listen", "l", ":3030", "listen address for API clients")
		configPath        = fs.String("config", "", "path to the site configuration file; built-in defaults are used if empty")
		versionFlag       = fs.Bool("version", false, "output the version number and exit")
		cacheBackend      = fs.String("cache", "memory", `cache backend to use: "memory", "memcached" or "redis"`)
		memcachedHostname = fs.String("memcached-hostname", "memcached", "hostname for SRV lookup of memcached servers")
		memcachedService  = fs.String("memcached-service", "memcached", "SRV service name for memcached")
		memcachedFixed    = fs.StringSlice("memcached-fixed", nil, "fixed memcached addresses; disables the SRV lookup")
		memcachedTimeout  = fs.Duration("memcached-timeout", time.Second, "maximum time to wait before giving up on memcached requests")
		redisService      = fs.String("redis-service", "redis", "redis host")
		redisPort         = fs.Int("redis-port", 6379, "redis port")
		warmBurst         = fs.Int("scrape-burst", 0, "maximum concurrent product fetches; overrides the site configuration if > 0")
		disableScraping   = fs.Bool("disable-scraping", false, "do not scrape the site to fill in the product cache; API queries report no product data")
		staleAfter        = fs.Duration("stale-after", 48*time.Hour, "age after which a product's stock state is reported as unknown")
		trace             = fs.Bool("trace", false, "log detailed trace of cache refresh decisions")
	)
	fs.Parse(os.Args)

	if *versionFlag {
		println(displayVersion())
		os.Exit(0)
	}

	// Logger component.
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	logger.Log("version", displayVersion())

	// Site configuration.
	var config site.Config
	{
		var err error
		if *configPath != "" {
			config, err = site.Load(*configPath)
			if err != nil {
				logger.Log("err", err)
				os.Exit(1)
			}
			logger.Log("config", *configPath, "targets", len(config.Targets))
		} else {
			config = site.Default()
			logger.Log("config", "default", "targets", len(config.Targets))
		}
	}
	if *warmBurst > 0 {
		config.Burst = *warmBurst
	}

	// Cache component.
	var cacheClient cache.Client
	if !*disableScraping {
		logger := log.With(logger, "component", "cache")
		switch *cacheBackend {
		case "memory":
			logger.Log("backend", "memory")
			cacheClient = cache.NewMemoryClient()
		case "memcached":
			memcacheConfig := memcached.MemcacheConfig{
				Host:           *memcachedHostname,
				Service:        *memcachedService,
				Timeout:        *memcachedTimeout,
				UpdateInterval: 1 * time.Minute,
				Logger:         logger,
				MaxIdleConns:   10,
			}
			if len(*memcachedFixed) > 0 {
				logger.Log("backend", "memcached", "servers", fmt.Sprint(*memcachedFixed))
				cacheClient = memcached.NewFixedServerMemcacheClient(memcacheConfig, *memcachedFixed...)
			} else {
				logger.Log("backend", "memcached", "hostname", *memcachedHostname)
				cacheClient = memcached.NewMemcacheClient(memcacheConfig)
			}
		case "redis":
			logger.Log("backend", "redis", "host", *redisService, "port", *redisPort)
			cacheClient = cache.NewRedisClient(cache.RedisConfig{
				Service:  *redisService,
				Port:     *redisPort,
				Timeout:  time.Second,
				MaxConns: 10,
				Logger:   logger,
			})
		default:
			logger.Log("err", fmt.Sprintf("unknown cache backend %q", *cacheBackend))
			os.Exit(1)
		}
		cacheClient = cache.InstrumentClient(cacheClient)
	}

	// Scraper component.
	var clientFactory scraper.ClientFactory
	if !*disableScraping {
		logger := log.With(logger, "component", "scraper")
		factory, err := scraper.NewRemoteFactory(config, logger)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		clientFactory = scraper.NewInstrumentedFactory(factory)
	}

	// Cache warmer component.
	var cacheWarmer *cache.Warmer
	if !*disableScraping {
		var err error
		cacheWarmer, err = cache.NewWarmer(clientFactory, cacheClient, time.Duration(config.ClientTimeout), config.Burst)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		cacheWarmer.Trace = *trace
		cacheWarmer.Priority = make(chan site.Target, 10)
	}

	// Daemon (API server) component.
	var store scraper.Store
	var priorityRefresh chan site.Target
	if *disableScraping {
		logger.Log("scraping", "disabled")
		store = scraper.ScrapeDisabledStore{}
	} else {
		store = scraper.NewInstrumentedStore(&cache.Cache{
			Reader:     cacheClient,
			Decorators: []cache.Decorator{cache.StaleAfter(*staleAfter)},
		})
		priorityRefresh = cacheWarmer.Priority
	}
	apiServer := &daemon.Daemon{
		V:               displayVersion(),
		Config:          config,
		Store:           store,
		Logger:          log.With(logger, "component", "daemon"),
		PriorityRefresh: priorityRefresh,
	}

	// Mechanical stuff.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	shutdown := make(chan struct{})
	shutdownWg := &sync.WaitGroup{}

	if cacheWarmer != nil {
		shutdownWg.Add(1)
		go cacheWarmer.Loop(log.With(logger, "component", "warmer"), shutdown, shutdownWg, func() []site.Target {
			return config.Targets
		})
	}

	// HTTP transport component.
	go func() {
		logger.Log("addr", *listenAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/", httpdaemon.NewHandler(apiServer, httpdaemon.NewRouter()))
		errc <- http.ListenAndServe(*listenAddr, mux)
	}()

	// Go!
	logger.Log("exiting", <-errc)
	close(shutdown)
	shutdownWg.Wait()
}

func displayVersion() string {
	if version == "" {
		return "unversioned"
	}
	return version
}
