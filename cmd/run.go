package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"spectro/internal/analysis"
	"spectro/internal/audio"
	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/transport"
	"spectro/internal/transport/udp"
)

// debugLogEvery is how many spectra pass between debug transport log
// lines. At the default block size and sample rate this is roughly one
// line per second.
const debugLogEvery = 43

// runEngine wires the capture engine to its transports and analyzers,
// starts the stream and blocks until the process is interrupted.
//
// Lifecycle: PortAudio first, then the engine and its consumers, then
// the input stream. Shutdown runs the same order in reverse so nothing
// sends into a closed component.
func runEngine(cfg *config.Config) error {
	applog.SetLevel(cfg.EffectiveLogLevel())

	// The capture callback wants a dedicated OS thread. One extra
	// thread covers the transports and the runtime.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			applog.Errorf("Terminating PortAudio: %v", err)
		}
	}()

	engine, err := audio.NewEngine(cfg)
	if err != nil {
		return err
	}

	// Closed in reverse order on shutdown.
	var closables []io.Closer

	if cfg.Debug {
		engine.AddTransport(transport.NewLoggingTransport(debugLogEvery))
	}

	if cfg.Transport.WSEnabled {
		wst, err := transport.NewWebSocketTransport(cfg.Transport.WSListenAddress)
		if err != nil {
			return err
		}
		closables = append(closables, wst)
		engine.AddTransport(wst)

		if cfg.Analysis.Bands > 0 {
			bands := analysis.LogSpacedBands(cfg.Analysis.Bands, cfg.Audio.SampleRate)
			bandProc, err := analysis.NewBandEnergyProcessor(wst, engine.Snapshot(), bands)
			if err != nil {
				closeAll(closables)
				return err
			}
			engine.AddSpectrumConsumer(bandProc)
		}
		if cfg.Analysis.BeatDetection {
			engine.AddAnalyzer(analysis.NewBeatDetector(
				analysis.DefaultBeatThreshold,
				analysis.DefaultBeatEnergyRatio,
				analysis.DefaultBeatCooldown,
				wst,
			))
		}
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll(closables)
			return err
		}
		publisher, err := udp.NewPublisher(time.Duration(cfg.Transport.UDPSendInterval), sender, engine.Snapshot())
		if err != nil {
			_ = sender.Close()
			closeAll(closables)
			return err
		}
		closables = append(closables, sender, publisher)
		publisher.Start()
	}

	if err := engine.StartInputStream(); err != nil {
		closeAll(closables)
		return err
	}

	var recordingFile string
	if cfg.Recording.Enabled {
		recordingFile, err = startRecording(engine, cfg)
		if err != nil {
			if cerr := engine.Close(); cerr != nil {
				applog.Errorf("Closing engine: %v", cerr)
			}
			closeAll(closables)
			return err
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	applog.Info("Engine running, Ctrl+C to stop")
	<-done

	applog.Info("Shutting down")
	if err := engine.Close(); err != nil {
		applog.Errorf("Closing engine: %v", err)
	}
	closeAll(closables)

	if recordingFile != "" {
		fmt.Printf("\nRecording saved to: %s\n", recordingFile)
	}
	return nil
}

func closeAll(closables []io.Closer) {
	for i := len(closables) - 1; i >= 0; i-- {
		if err := closables[i].Close(); err != nil {
			applog.Errorf("Closing %T: %v", closables[i], err)
		}
	}
}

// startRecording opens a timestamped WAV file under the configured
// output directory and begins recording into it.
func startRecording(engine *audio.Engine, cfg *config.Config) (string, error) {
	if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating recording directory: %w", err)
	}
	filename := filepath.Join(cfg.Recording.OutputDir,
		"recording-"+time.Now().UTC().Format("2006-01-02-150405")+".wav")
	if err := engine.StartRecording(filename); err != nil {
		return "", err
	}
	return filename, nil
}
