package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"proximity-planner/internal/config"
	"proximity-planner/internal/dataset"
	"proximity-planner/internal/geo"
	"proximity-planner/internal/metrics"
	"proximity-planner/internal/planner"
	"proximity-planner/internal/route"
	"proximity-planner/internal/server"
)

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	cfgFile     string
	datasetPath string
	logFormat   string
	logLevel    string

	cfg      *config.Config
	logger   *slog.Logger
	points   []geo.Point
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	planner  *planner.Planner
}

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "planner",
		Short:        "Shortest routes over a proximity graph of geographic points",
		Long:         "Builds a great-circle proximity graph over named points and finds shortest paths with Dijkstra's algorithm.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(logOut)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./planner.yaml)")
	root.PersistentFlags().StringVar(&a.datasetPath, "dataset", "", "GeoJSON, JSON or CSV point file (default: bundled UK cities)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text, json (default from config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(a.routeCmd(), a.graphCmd(), a.nodesCmd(), a.serveCmd())
	return root
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logLevel == "" {
		a.logLevel = cfg.Log.Level
	}
	if a.logFormat == "" {
		a.logFormat = cfg.Log.Format
	}
	level, err := parseLogLevel(a.logLevel)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch a.logFormat {
	case "json":
		a.logger = slog.New(slog.NewJSONHandler(logOut, opts))
	case "text":
		a.logger = slog.New(slog.NewTextHandler(logOut, opts))
	default:
		return fmt.Errorf("invalid --log-format %q (use: text, json)", a.logFormat)
	}

	path := a.datasetPath
	if path == "" {
		path = cfg.Dataset.Path
	}
	if path == "" {
		a.points = dataset.UKCities()
		a.logger.Debug("Using bundled dataset", "points", len(a.points))
	} else {
		a.points, err = dataset.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading dataset %s: %w", path, err)
		}
		a.logger.Info("Dataset loaded", "path", path, "points", len(a.points))
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewMetrics(a.registry)
	a.planner = planner.New(a.points, planner.Options{
		MinThresholdKm: cfg.Graph.MinThresholdKm,
		MaxThresholdKm: cfg.Graph.MaxThresholdKm,
		CacheSize:      cfg.Graph.CacheSize,
		Logger:         a.logger,
		Metrics:        a.metrics,
	})
	return nil
}

func (a *app) threshold(flag float64) float64 {
	if flag > 0 {
		return flag
	}
	return a.cfg.Graph.DefaultThresholdKm
}

func (a *app) routeCmd() *cobra.Command {
	var from, to string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find the shortest path between two points",
		RunE: func(cmd *cobra.Command, args []string) error {
			km := a.threshold(threshold)
			res, err := a.planner.Route(km, from, to)
			if errors.Is(err, route.ErrNotConnected) {
				return fmt.Errorf("%s and %s are not connected at %.0f km max distance; try increasing it", from, to, km)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Shortest path: %s\n", strings.Join(res.Path.Nodes, " → "))
			_, _ = fmt.Fprintf(out, "Total distance: %.2f km\n\n", res.Path.DistanceKm)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "STEP\tNAME\tLAT\tLON\tLEG KM")
			for i, p := range res.Points {
				leg := 0.0
				if i > 0 {
					leg = geo.DistanceKm(res.Points[i-1], p)
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%.2f\n", i, p.Name, p.Lat, p.Lon, leg)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start point name")
	cmd.Flags().StringVar(&to, "to", "", "end point name")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "max distance between connected points in km")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) graphCmd() *cobra.Command {
	var threshold float64
	var showEdges bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Summarise the proximity graph for a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.planner.Graph(a.threshold(threshold))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Threshold: %.0f km\nPoints: %d\nNodes: %d (pruned %d)\nEdges: %d\n",
				g.ThresholdKm(), len(a.points), g.Len(), len(a.points)-g.Len(), g.EdgeCount())
			if !showEdges {
				return nil
			}

			_, _ = fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FROM\tTO\tKM")
			for _, e := range g.Edges() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\n", e.From, e.To, e.WeightKm)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "max distance between connected points in km")
	cmd.Flags().BoolVar(&showEdges, "edges", false, "list every edge")
	return cmd
}

func (a *app) nodesCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the points that have at least one neighbour",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.planner.Graph(a.threshold(threshold))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tLAT\tLON\tNEIGHBOURS")
			for _, id := range g.Nodes() {
				p, _ := g.Point(id)
				_, _ = fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%d\n", id, p.Lat, p.Lon, len(g.Neighbors(id)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "max distance between connected points in km")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routing HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			a.registry.MustRegister(collectors.NewGoCollector())
			a.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			// Build the default graph up front so the first request is fast.
			if _, err := a.planner.Graph(a.cfg.Graph.DefaultThresholdKm); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.planner, a.logger, a.metrics, a.registry, server.Options{
				Listen:             listen,
				CORSOrigin:         a.cfg.Server.CORSOrigin,
				RateLimit:          a.cfg.Server.RateLimit,
				Burst:              a.cfg.Server.Burst,
				DefaultThresholdKm: a.cfg.Graph.DefaultThresholdKm,
			})
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (use: debug, info, warn, error)", s)
	}
}
