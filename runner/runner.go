package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/fetchers"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt/gonoop"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt/goposthog"
)

const (
	RunModeCLI = iota + 1
	RunModeFile
	RunModeWeb
	RunModeRedis
	RunModeInstallPlaywright
)

const (
	DefaultTimeout         = 3 * time.Minute
	DefaultNavTimeout      = 60 * time.Second
	DefaultSettle          = 5 * time.Second
	DefaultStrategyTimeout = 45 * time.Second
	DefaultCacheTTL        = 6 * time.Hour
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	URL             string
	InputFile       string
	ResultsFile     string
	MaxResults      int
	WebRunner       bool
	Addr            string
	RedisWorker     bool
	RedisURL        string
	Workers         int
	CacheTTL        time.Duration
	Browser         string
	Headful         bool
	Debug           bool
	Timeout         time.Duration
	NavTimeout      time.Duration
	Settle          time.Duration
	StrategyTimeout time.Duration
	DataFolder      string
	Proxies         []string
	AwsAccessKey    string
	AwsSecretKey    string
	AwsRegion       string
	S3Bucket        string
	RunMode         int
}

// ParseConfig reads the command line and the environment.
func ParseConfig() (*Config, error) {
	return parseConfig(flag.CommandLine, os.Args[1:], os.Getenv)
}

func parseConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := Config{}

	if getenv("PLAYWRIGHT_INSTALL_ONLY") == "1" {
		cfg.RunMode = RunModeInstallPlaywright

		return &cfg, nil
	}

	var (
		proxies string
		install bool
	)

	fs.StringVar(&cfg.URL, "url", "", "product page url to scrape")
	fs.StringVar(&cfg.InputFile, "input", "", "path to a file with one product url per line, or stdin")
	fs.StringVar(&cfg.ResultsFile, "results", "stdout", "path to the JSON lines results file of a batch run")
	fs.IntVar(&cfg.MaxResults, "max-results", 0, "stop a batch run after this many pages with images (0 = no limit)")
	fs.BoolVar(&cfg.WebRunner, "web", false, "run the HTTP API")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "address the HTTP API listens on")
	fs.BoolVar(&cfg.RedisWorker, "worker", false, "consume scrape tasks from the redis queue")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis url for the task queue and result cache (env REDIS_URL)")
	fs.IntVar(&cfg.Workers, "workers", 1, "number of queue workers")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", DefaultCacheTTL, "how long results are cached in redis (0 disables the cache)")
	fs.StringVar(&cfg.Browser, "browser", fetchers.BrowserFirefox, "browser engine: firefox or chromium")
	fs.BoolVar(&cfg.Headful, "headful", false, "show the browser window")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "overall budget of one scrape")
	fs.DurationVar(&cfg.NavTimeout, "nav-timeout", DefaultNavTimeout, "navigation timeout")
	fs.DurationVar(&cfg.Settle, "settle", DefaultSettle, "wait after load before inspecting the page")
	fs.DurationVar(&cfg.StrategyTimeout, "strategy-timeout", DefaultStrategyTimeout, "budget of a single extraction strategy (0 disables)")
	fs.StringVar(&cfg.DataFolder, "data-folder", "webdata", "folder of the jobs database")
	fs.StringVar(&proxies, "proxies", "", "comma separated proxies, e.g. socks5://localhost:9050, or @file with one per line")
	fs.StringVar(&cfg.AwsAccessKey, "aws-access-key", "", "AWS access key")
	fs.StringVar(&cfg.AwsSecretKey, "aws-secret-key", "", "AWS secret key")
	fs.StringVar(&cfg.AwsRegion, "aws-region", "", "AWS region")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", "", "upload the batch results file to this S3 bucket")
	fs.BoolVar(&install, "install", false, "install the playwright driver and browser, then exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.URL == "" {
		cfg.URL = strings.TrimSpace(fs.Arg(0))
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = getenv("REDIS_URL")
	}

	if cfg.AwsAccessKey == "" {
		cfg.AwsAccessKey = getenv("MY_AWS_ACCESS_KEY")
	}

	if cfg.AwsSecretKey == "" {
		cfg.AwsSecretKey = getenv("MY_AWS_SECRET_KEY")
	}

	if cfg.AwsRegion == "" {
		cfg.AwsRegion = getenv("MY_AWS_REGION")
	}

	if proxies != "" {
		list, err := fetchers.ParseProxies(proxies)
		if err != nil {
			return nil, err
		}

		cfg.Proxies = list
	}

	switch cfg.Browser {
	case fetchers.BrowserFirefox, fetchers.BrowserChromium:
	default:
		return nil, fmt.Errorf("%w: unknown browser %q", ErrInvalidConfig, cfg.Browser)
	}

	if cfg.Timeout <= 0 || cfg.NavTimeout <= 0 || cfg.Settle < 0 || cfg.StrategyTimeout < 0 {
		return nil, fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}

	switch {
	case install:
		cfg.RunMode = RunModeInstallPlaywright
	case cfg.WebRunner:
		cfg.RunMode = RunModeWeb
	case cfg.RedisWorker:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("%w: -worker requires -redis-url", ErrInvalidConfig)
		}

		cfg.RunMode = RunModeRedis
	case cfg.InputFile != "":
		cfg.RunMode = RunModeFile
	default:
		cfg.RunMode = RunModeCLI
	}

	if cfg.S3Bucket != "" && cfg.RunMode != RunModeFile {
		return nil, fmt.Errorf("%w: -s3-bucket is only valid with -input", ErrInvalidConfig)
	}

	return &cfg, nil
}

// NewLogger builds the process logger. It always writes to stderr so stdout
// carries nothing but results.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

// Telemetry is a no-op unless POSTHOG_API_KEY is set and DISABLE_TELEMETRY
// is not 1.
func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		telemetry = gonoop.New()

		if os.Getenv("DISABLE_TELEMETRY") == "1" {
			return
		}

		val, err := goposthog.New(os.Getenv("POSTHOG_API_KEY"), os.Getenv("POSTHOG_ENDPOINT"))
		if err != nil {
			return
		}

		telemetry = val
	})

	return telemetry
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(int(os.Stderr.Fd()))
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		paddingRight := max(contentWidth-runewidth.StringWidth(line), 0)

		builder.WriteString(fmt.Sprintf("║ %s%s ║\n", line, strings.Repeat(" ", paddingRight)))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

// Banner prints the startup box on stderr. The single url mode stays quiet.
func Banner(cfg *Config) {
	if cfg.RunMode == RunModeCLI || !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}

	messages := []string{
		"🛍  Product Image Scraper",
		"Strategies cascade over the rendered page until one finds the product gallery",
	}

	switch cfg.RunMode {
	case RunModeWeb:
		messages = append(messages, "API listening on "+cfg.Addr)
	case RunModeRedis:
		messages = append(messages, fmt.Sprintf("Queue worker, %d worker(s)", cfg.Workers))
	case RunModeFile:
		messages = append(messages, "Batch input: "+cfg.InputFile)
	}

	fmt.Fprintln(os.Stderr, banner(messages, 0))
}
