package cmd

import (
	"fmt"
	"io"
	"os"

	"spectro/internal/audio"
	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/tui"
	"spectro/internal/wavscan"
	"spectro/pkg/build"

	"github.com/spf13/cobra"
)

// engineFlags are the root command's overrides. Only flags the user
// actually set are applied on top of file and environment values.
type engineFlags struct {
	device     int
	sampleRate float64
	blockSize  int
	channels   int
	lowLatency bool
	record     bool
	outputDir  string
	wsAddr     string
	udpTarget  string
	verbose    bool
}

// Execute parses the command line and runs the selected command.
func Execute() error {
	return newRootCmd().Execute()
}

// runEngineFn is swapped out by tests that exercise flag handling.
var runEngineFn = runEngine

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		flags   engineFlags
	)

	rootCmd := &cobra.Command{
		Use:   "spectro",
		Short: "Real-time magnitude spectra from live audio",
		Long: "spectro captures audio, computes a magnitude spectrum per block\n" +
			"and publishes the spectra over WebSocket and UDP.",
		Version:       build.Current().Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfgPath, &flags)
			if err != nil {
				return err
			}
			return runEngineFn(cfg)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "",
		"Path to a YAML configuration file")

	// Audio Device Configuration
	rootCmd.Flags().IntVarP(&flags.device, "device", "d", config.MinDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.Flags().IntVarP(&flags.channels, "channels", "c", config.DefaultInputChannels,
		"Number of channels to record (1=mono, 2=stereo)")
	rootCmd.Flags().Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.Flags().IntVarP(&flags.blockSize, "block-size", "b", config.DefaultBlockSize,
		"Samples per spectrum block (affects latency and resolution)")
	rootCmd.Flags().BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Recording Configuration
	rootCmd.Flags().BoolVarP(&flags.record, "record", "r", false,
		"Record audio from the specified input device")
	rootCmd.Flags().StringVarP(&flags.outputDir, "output", "o", config.DefaultRecordingDir,
		"Directory for recorded WAV files")

	// Transport Configuration
	rootCmd.Flags().StringVar(&flags.wsAddr, "ws-addr", config.DefaultWSListenAddress,
		"Serve spectra to WebSocket clients on this address (enables the server)")
	rootCmd.Flags().StringVar(&flags.udpTarget, "udp-target", config.DefaultUDPTarget,
		"Send spectrum packets to this address (enables the UDP publisher)")

	// Debug Configuration
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(newListCmd(), newAnalyzeCmd(), newVersionCmd())
	return rootCmd
}

// loadConfig assembles the effective configuration: file and
// environment first, then explicit command line flags on top.
func loadConfig(cmd *cobra.Command, path string, flags *engineFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("device") {
		cfg.Audio.InputDevice = flags.device
	}
	if f.Changed("sample-rate") {
		cfg.Audio.SampleRate = flags.sampleRate
	}
	if f.Changed("block-size") {
		cfg.Audio.BlockSize = flags.blockSize
	}
	if f.Changed("channels") {
		cfg.Audio.InputChannels = flags.channels
	}
	if f.Changed("low-latency") {
		cfg.Audio.LowLatency = flags.lowLatency
	}
	if f.Changed("record") {
		cfg.Recording.Enabled = flags.record
	}
	if f.Changed("output") {
		cfg.Recording.OutputDir = flags.outputDir
	}
	if f.Changed("ws-addr") {
		cfg.Transport.WSEnabled = true
		cfg.Transport.WSListenAddress = flags.wsAddr
	}
	if f.Changed("udp-target") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = flags.udpTarget
	}
	if f.Changed("verbose") {
		cfg.Debug = flags.verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newListCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer func() { _ = audio.Terminate() }()

			if interactive {
				// The browser owns the terminal, keep log lines out
				// of it.
				applog.SetOutput(io.Discard)
				defer applog.SetOutput(os.Stderr)
				return tui.RunDeviceBrowser()
			}
			return audio.ListDevices()
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Browse devices in an interactive picker")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		blockSize int
		bands     int
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Compute the average magnitude spectrum of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := wavscan.AnalyzeFile(args[0], blockSize, bands)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().IntVarP(&blockSize, "block-size", "b", config.DefaultBlockSize,
		"Samples per analysis block")
	cmd.Flags().IntVar(&bands, "bands", config.DefaultBands,
		"Number of log-spaced summary bands, 0 to disable")
	return cmd
}

func printReport(w io.Writer, r *wavscan.Report) {
	fmt.Fprintf(w, "\n%s\n", r.Path)
	fmt.Fprintf(w, "  %.0f Hz, %d channel(s), %d-bit\n", r.SampleRate, r.Channels, r.BitDepth)
	fmt.Fprintf(w, "  %d frames: %d block(s) of %d analyzed, %d trailing frame(s) discarded\n",
		r.Frames, r.Blocks, len(r.Average), r.Discarded)
	fmt.Fprintf(w, "  peak %.1f Hz (bin %d, magnitude %.2f)\n", r.PeakHz, r.PeakBin, r.PeakMag)

	if len(r.Bands) > 0 {
		fmt.Fprintf(w, "\n  Band energy:\n")
		for _, band := range r.Bands {
			fmt.Fprintf(w, "    %-16s %10.3f\n", band.Name, band.Energy)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := build.Current()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "spectro %s\n", info.Version)
			fmt.Fprintf(w, "  commit: %s\n", info.Commit)
			fmt.Fprintf(w, "  built:  %s\n", info.Time)
			if !build.Stamped() {
				fmt.Fprintln(w, "  (development build, metadata not stamped)")
			}
		},
	}
}
