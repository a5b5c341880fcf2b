package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/August26/proxyline/internal/analytics"
	"github.com/August26/proxyline/internal/checker"
	"github.com/August26/proxyline/internal/geoip"
	"github.com/August26/proxyline/internal/logging"
	"github.com/August26/proxyline/internal/model"
	"github.com/August26/proxyline/internal/output"
	"github.com/August26/proxyline/internal/parser"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proxyline",
	Short: "Parse free-form proxy lists and check which proxies are alive",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(viper.GetBool("verbose")).With("run_id", uuid.NewString())
	},
	SilenceUsage: true,
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a proxy list and print the recognised proxies",
	Long: `Parse a proxy list (file argument, --input, or stdin) and print every
recognised proxy. Lines may be plain ip:port pairs or
[scheme://]host[:port][:user:pass].`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(args)

		proxies, err := loadProxies(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		logger.Info("proxies loaded", "count", len(proxies))

		format := cfg.OutputFormat
		if format == "" {
			format = "txt"
		}
		if cfg.OutputFile != "" {
			return output.WriteFile(cfg.OutputFile, format, proxies, model.BatchStats{TotalProxies: len(proxies)})
		}
		return output.Write(os.Stdout, format, proxies, model.BatchStats{TotalProxies: len(proxies)})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Parse a proxy list and keep the proxies that can reach the target",
	Example: `  proxyline check proxies.txt --target https://httpbin.org/get --timeout 5s
  cat list.txt | proxyline check --scheme socks5 --format txt --output alive.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(args)
		ctx := cmd.Context()

		target, err := checker.ParseTarget(cfg.Target)
		if err != nil {
			return err
		}

		logger.Info("starting proxyline",
			"target", target.String(),
			"timeout", cfg.Timeout.String(),
			"concurrency", cfg.Concurrency,
			"scheme", cfg.DefaultScheme,
		)

		proxies, err := loadProxies(ctx, cfg)
		if err != nil {
			return err
		}
		logger.Info("proxies loaded", "count", len(proxies))

		c := checker.New(cfg, logger)
		if cfg.Progress && len(proxies) > 0 {
			bar := progressbar.NewOptions(len(proxies),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("checking"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			c.OnResult = func(model.Proxy, bool) { _ = bar.Add(1) }
			defer bar.Finish()
		}

		start := time.Now()
		live := c.CheckAll(ctx, proxies, target)
		stats := analytics.Compute(proxies, live, time.Since(start))

		logger.Info("batch finished",
			"total_ms", stats.TotalProcessingTimeMs,
			"alive", stats.AliveProxies,
			"total", stats.TotalProxies,
		)

		// Print table and summary to stdout
		output.PrintResultsTable(os.Stdout, live.Slice())
		output.PrintSummary(os.Stdout, stats)

		if cfg.OutputFile != "" {
			format := cfg.OutputFormat
			if format == "" {
				format = "json"
			}
			if err := output.WriteFile(cfg.OutputFile, format, live.Slice(), stats); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			logger.Info("results written", "path", cfg.OutputFile, "format", format)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: proxyline.yaml in ., $HOME/.proxyline, /etc/proxyline)")
	pf.BoolP("verbose", "v", false, "enable debug logs")
	pf.StringP("input", "i", "", "path to file with proxy list (default: stdin)")
	pf.StringP("output", "o", "", "optional path to write results")
	pf.StringP("format", "f", "", "output format: json | csv | txt")
	pf.String("scheme", "http", "scheme for bare ip:port lines: http | https | socks4 | socks5")
	pf.String("geoip", "", "path to a GeoIP2/GeoLite2 country database")

	cf := checkCmd.Flags()
	cf.String("target", model.DefaultTarget, "URL to connect to through each proxy")
	cf.Duration("timeout", model.DefaultTimeout, "timeout for each proxy check")
	cf.Int("concurrency", model.DefaultConcurrency, "maximum number of concurrent checks")
	cf.String("network", "tcp", "network used to reach the target: tcp | tcp4 | tcp6")
	cf.Bool("progress", true, "show a progress bar on stderr")

	for _, name := range []string{"verbose", "input", "output", "format", "scheme", "geoip"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	for _, name := range []string{"target", "timeout", "concurrency", "network", "progress"} {
		_ = viper.BindPFlag(name, cf.Lookup(name))
	}

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(checkCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("proxyline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.proxyline")
		viper.AddConfigPath("/etc/proxyline/")
	}
	viper.SetEnvPrefix("proxyline")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig(args []string) model.Config {
	cfg := model.Config{
		InputFile:     viper.GetString("input"),
		OutputFile:    viper.GetString("output"),
		OutputFormat:  viper.GetString("format"),
		DefaultScheme: viper.GetString("scheme"),
		Target:        viper.GetString("target"),
		Timeout:       viper.GetDuration("timeout"),
		Concurrency:   viper.GetInt("concurrency"),
		Network:       viper.GetString("network"),
		GeoIPDatabase: viper.GetString("geoip"),
		Verbose:       viper.GetBool("verbose"),
		Progress:      viper.GetBool("progress"),
	}
	if len(args) > 0 {
		cfg.InputFile = args[0]
	}
	return cfg
}

func loadProxies(ctx context.Context, cfg model.Config) ([]model.Proxy, error) {
	var b model.Builder
	if cfg.GeoIPDatabase != "" {
		geo, err := geoip.Open(cfg.GeoIPDatabase)
		if err != nil {
			return nil, err
		}
		defer geo.Close()
		b.Countries = geo
	}

	p := parser.New(b, model.ParseScheme(cfg.DefaultScheme), logger)

	var in io.Reader = os.Stdin
	if cfg.InputFile != "" && cfg.InputFile != "-" {
		f, err := os.Open(cfg.InputFile)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	set, err := p.ReadFrom(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("load proxies: %w", err)
	}
	return set.Slice(), nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
