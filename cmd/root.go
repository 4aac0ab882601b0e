package cmd

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/net/context"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/textlogger"

	"github.com/pan1c/ephc/internal/alert"
	"github.com/pan1c/ephc/internal/alert/noop"
	"github.com/pan1c/ephc/internal/alert/wecom"
	"github.com/pan1c/ephc/internal/cluster"
	"github.com/pan1c/ephc/internal/cluster/kubeclient"
	"github.com/pan1c/ephc/internal/cluster/kubectlcluster"
	"github.com/pan1c/ephc/internal/config"
	"github.com/pan1c/ephc/internal/healthz"
	"github.com/pan1c/ephc/internal/probe"
	"github.com/pan1c/ephc/internal/refresh"
	"github.com/pan1c/ephc/internal/registry"
)

var rootCmd = &cobra.Command{
	Use:   "ephc [options]",
	Short: "Endpoint health controller",
	Long: `
ephc watches a set of Services, probes every backing endpoint on a timer,
and mutates the cluster's Endpoints object to drop unhealthy addresses and
restore recovered ones.

  # watch every ClusterIP service except "kubernetes"
  ephc

  # watch only two named services
  ephc --allow account --allow billing

  # tune thresholds and intervals
  ephc --restore 5 --remove 2 --probe-interval 500ms --connection-timeout 200ms

  # alert to a WeCom webhook
  ephc --alert wecom://https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		cfg, err := configFromFlags()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		cl, err := buildCluster(cfg)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		sink := buildAlertSink(cfg)

		reg := registry.New()
		log := logrus.StandardLogger().WithField("cluster", cfg.ClusterName)

		checker := healthz.NewChecker(reg)
		refreshLoop := refresh.New(cl, reg, cfg, sink, log)
		refreshLoop.Ready = checker
		probeLoop := probe.New(reg, cfg, log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			klog.V(0).Infof("received signal %v, shutting down", sig)
			cancel()
		}()

		if configFile := viper.GetString("config-file"); configFile != "" {
			watcher, err := config.WatchFile(configFile, log)
			if err != nil {
				klog.Warningf("config file watch disabled: %v", err)
			} else {
				defer watcher.Close()
			}
		}

		if healthPort := viper.GetInt("health-port"); healthPort > 0 {
			mux := http.NewServeMux()
			healthz.AttachEndpoints(mux, checker)
			srv := &http.Server{Addr: fmt.Sprintf(":%d", healthPort), Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					klog.Errorf("health server error: %v", err)
				}
			}()
			go func() {
				<-ctx.Done()
				_ = srv.Close()
			}()
		}

		go refreshLoop.Run(ctx)
		go probeLoop.Run(ctx)

		klog.V(0).Infof("ephc running: refresh=%s probe=%s timeout=%s restore=%d remove=%d",
			cfg.RefreshInterval, cfg.ProbeInterval, cfg.ConnectionTimeout, cfg.Threshold.Restore, cfg.Threshold.Remove)

		<-ctx.Done()
		klog.V(0).Infof("shutdown complete")
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringSliceP("allow", "a", nil, "service names to watch exclusively (repeatable)")
	flags.StringSliceP("block", "b", config.DefaultBlockList, "service names to exclude when --allow is not set (repeatable)")
	flags.DurationP("refresh-interval", "i", config.DefaultRefreshInterval, "refresh loop period")
	flags.DurationP("probe-interval", "p", config.DefaultProbeInterval, "probe loop period")
	flags.DurationP("connection-timeout", "t", config.DefaultConnectionTimeout, "per-endpoint probe deadline")
	flags.Uint32P("remove", "r", config.DefaultRemoveThreshold, "consecutive failures to demote Healthy -> Removed")
	flags.Uint32P("restore", "u", config.DefaultRestoreThreshold, "consecutive successes to promote Removed -> Healthy")
	flags.StringP("cluster", "C", "default", "cluster name, included in alert messages")
	flags.StringP("alert", "A", "", "alert sink URL, scheme://target (recognized scheme: wecom)")
	flags.String("cluster-backend", string(config.KubectlBackend), "cluster backend: kubectl or client-go")
	flags.String("kubeconfig", "", "path to a kubeconfig file (defaults to client-go's standard resolution)")
	flags.String("context", "", "kubeconfig context to use")
	flags.IntP("log-level", "", 0, "klog verbosity level")
	flags.Int("health-port", 0, "serve /healthz and /readyz on this port (0 disables)")
	flags.String("config-file", "", "optional file to watch; an edit only logs a reload notice, it does not change --allow/--block (those are fixed at startup)")

	_ = viper.BindPFlags(flags)
}

// Execute runs the root command, exiting non-zero on a fatal startup
// error per spec §7. The loops themselves never return except on
// process shutdown.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}

func configFromFlags() (*config.Config, error) {
	cfg := config.New()
	cfg.AllowList = viper.GetStringSlice("allow")
	if block := viper.GetStringSlice("block"); len(block) > 0 {
		cfg.BlockList = block
	}
	cfg.RefreshInterval = viper.GetDuration("refresh-interval")
	cfg.ProbeInterval = viper.GetDuration("probe-interval")
	cfg.ConnectionTimeout = viper.GetDuration("connection-timeout")
	cfg.Threshold.Remove = uint32(viper.GetUint32("remove"))
	cfg.Threshold.Restore = uint32(viper.GetUint32("restore"))
	cfg.ClusterName = viper.GetString("cluster")
	cfg.AlertURL = viper.GetString("alert")
	cfg.ClusterBackend = config.ClusterBackend(viper.GetString("cluster-backend"))
	cfg.Kubeconfig = viper.GetString("kubeconfig")
	cfg.Context = viper.GetString("context")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildCluster(cfg *config.Config) (cluster.Cluster, error) {
	switch cfg.ClusterBackend {
	case config.ClientGoBackend:
		restCfg, err := kubeclient.ResolveConfig(cfg.Kubeconfig, cfg.Context)
		if err != nil {
			return nil, err
		}
		return kubeclient.New(restCfg, "")
	default:
		kubeconfig, kcontext := kubectlcluster.ResolveKubeconfig(cfg.Kubeconfig, cfg.Context)
		return kubectlcluster.New(kubeconfig, kcontext), nil
	}
}

func buildAlertSink(cfg *config.Config) alert.Sink {
	if cfg.AlertURL == "" {
		return noop.New()
	}
	scheme, target, ok := alert.SplitSchemeTarget(cfg.AlertURL)
	if !ok {
		klog.Warningf("alert URL %q has no scheme, alerting disabled", cfg.AlertURL)
		return noop.New()
	}
	switch scheme {
	case "wecom":
		return wecom.New(target)
	default:
		klog.Warningf("unknown alert scheme %q, alerting disabled", scheme)
		return noop.New()
	}
}

func initLogging() {
	logLevel := viper.GetInt("log-level")
	if logLevel < 0 {
		logLevel = 0
	}

	textConfig := textlogger.NewConfig(
		textlogger.Output(os.Stderr),
		textlogger.Verbosity(logLevel),
	)
	klog.SetLoggerWithOptions(textlogger.NewLogger(textConfig))

	flagSet := flag.NewFlagSet("ephc", flag.ContinueOnError)
	klog.InitFlags(flagSet)
	if err := flagSet.Parse([]string{"--v", strconv.Itoa(logLevel)}); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing log level: %v\n", err)
	}

	level := logrus.InfoLevel
	if env := os.Getenv("LOG"); env != "" {
		if parsed, err := logrus.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	klog.V(0).Infof("logging initialized at klog level %d, logrus level %s", logLevel, level)
}
