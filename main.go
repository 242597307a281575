package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"drainsum/config"
	"drainsum/numseq"
	"drainsum/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sumd",
	Short: "Sum sequences of numbers, draining them as they are consumed",
	Long: `sumd adds up sequences of numbers by popping values off the end until
nothing is left. The consumed sequence is empty afterwards.

Use "sumd sum" for one-off sums on the command line and "sumd serve" to
run the HTTP service holding named sequences.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = cfg.NewLogger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var sumFloat bool

var sumCmd = &cobra.Command{
	Use:   "sum [numbers...]",
	Short: "Drain the given numbers and print their sum",
	Long: `Adds the numbers given as arguments, or read whitespace-separated from
stdin when there are none. Integers are summed exactly as int64; any
non-integer input (or --float) switches to float64. A total outside the
range of the chosen type is an error.`,
	Example: `  sumd sum 1 2 3
  echo "1.5 2.5" | sumd sum`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := args
		if len(fields) == 0 {
			var err error
			fields, err = readFields(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}
		nums, err := parseNumbers(fields, sumFloat)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if nums.float {
			if math.IsInf(numseq.Sum(nums.floats), 0) {
				return fmt.Errorf("sum of %d values: %w", len(nums.floats), store.ErrOverflow)
			}
			total := numseq.Drain(&nums.floats)
			logger.Debug("drained", zap.Int("count", len(fields)), zap.Float64("sum", total))
			fmt.Fprintln(out, total)
			if verbose {
				fmt.Fprintln(out, nums.floats)
			}
			return nil
		}
		if _, ok := checkedSumInt64(nums.ints); !ok {
			return fmt.Errorf("sum of %d values exceeds int64, retry with --float: %w", len(nums.ints), store.ErrOverflow)
		}
		total := numseq.Drain(&nums.ints)
		logger.Debug("drained", zap.Int("count", len(fields)), zap.Int64("sum", total))
		fmt.Fprintln(out, total)
		if verbose {
			fmt.Fprintln(out, nums.ints)
		}
		return nil
	},
}

var (
	listenAddr      string
	disableBan      bool
	rejectThreshold int
	banDuration     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("listen") {
			cfg.Server.Listen = listenAddr
		}
		if flags.Changed("disable-ban") {
			cfg.Ban.Disabled = disableBan
		}
		if flags.Changed("reject-threshold") {
			cfg.Ban.RejectThreshold = rejectThreshold
		}
		if flags.Changed("ban-duration") {
			cfg.Ban.Duration = banDuration
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ln, err := net.Listen("tcp", cfg.Server.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Listen, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return newServer(cfg, logger).run(ctx, ln)
	},
}

var dumpOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the configuration after file and environment overrides",
	Long: `Prints the effective configuration as YAML: defaults, then the file given
with --config, then SUMD_* environment variables. With --output the YAML is
written to that file instead, ready to be passed back with --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dumpOutput != "" {
			if err := cfg.Save(dumpOutput); err != nil {
				return err
			}
			logger.Debug("config written", zap.String("path", dumpOutput))
			return nil
		}
		return cfg.Write(cmd.OutOrStdout())
	},
}

func readFields(r io.Reader) ([]string, error) {
	var fields []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields = append(fields, strings.Fields(sc.Text())...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return fields, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging; sum also prints the drained sequence")

	sumCmd.Flags().BoolVar(&sumFloat, "float", false, "Sum as float64 even if every input is an integer")

	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8000", "Address to listen on")
	serveCmd.Flags().BoolVar(&disableBan, "disable-ban", false, "Disable the ban functionality just to audit the behaviour")
	serveCmd.Flags().IntVar(&rejectThreshold, "reject-threshold", 50, "Rejected requests before a client is banned")
	serveCmd.Flags().StringVar(&banDuration, "ban-duration", "1m", "How long a ban lasts")

	configDumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Write to this file instead of stdout")
	configCmd.AddCommand(configDumpCmd)

	rootCmd.AddCommand(sumCmd, serveCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
