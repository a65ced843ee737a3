package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shaunagostinho/audible-altimeter/internal/altitude"
	"github.com/shaunagostinho/audible-altimeter/internal/announce"
	"github.com/shaunagostinho/audible-altimeter/internal/gps"
	"github.com/shaunagostinho/audible-altimeter/internal/server"
	"github.com/shaunagostinho/audible-altimeter/internal/speech"
	"github.com/shaunagostinho/audible-altimeter/internal/tui"
	"github.com/shaunagostinho/audible-altimeter/web"
)

func main() {
	configPath := flag.String("config", server.DefaultConfigPath, "Path to config file")
	demo := flag.Bool("demo", false, "Run with a simulated GPS climb")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8080)")
	useTUI := flag.Bool("tui", false, "Show the terminal UI")
	logFile := flag.String("log-file", "audible-altimeter.log", "Log file while the terminal UI is active (\"stderr\" keeps the console)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	// The TUI owns the terminal, so logs go to a file while it runs.
	if *useTUI && *logFile != "" && *logFile != "stderr" {
		out, closeLog, err := openLogFile(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			defer closeLog()
			log.SetOutput(out)
		}
	}

	log.Println("[main] audible-altimeter starting")

	// Load config
	cfg := server.LoadConfig(*configPath)

	if *demo {
		cfg.GPS.Type = "demo"
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	log.Printf("[main] %s", cfg)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
	}()

	state := altitude.New(cfg.Altimeter)
	srv := server.New(cfg, state, web.FS)

	// Initialize GPS provider
	var gpsProv gps.Provider
	switch cfg.GPS.Type {
	case "nmea":
		gpsProv = gps.NewNMEA(cfg.GPS.NMEA())
	case "gpsd":
		gpsProv = gps.NewGPSD(cfg.GPS.GPSDAddr)
	case "mqtt":
		gpsProv = gps.NewMQTT(cfg.GPS.MQTT)
	case "disabled":
		gpsProv = nil
	default:
		gpsProv = gps.NewDemoGPS()
	}

	feed := "none"
	if gpsProv != nil {
		feed = gpsProv.Name()
		go func() {
			// Try connecting with exponential backoff; the altimeter and
			// dashboard run regardless and simply show no change.
			if !connectWithRetry(ctx, "gps", gpsProv, 10) {
				return
			}
			defer gpsProv.Close()
			gps.Poll(ctx, gpsProv, cfg.GPS.PollInterval(), state.Update, srv.UpdateGPS)
		}()
	} else {
		log.Println("[gps] disabled, altitude stays at zero")
	}

	// Speech. Any failure leaves the altimeter running silently.
	spk, err := speech.New(cfg.Speech)
	switch {
	case errors.Is(err, speech.ErrDisabled):
		log.Println("[speech] disabled")
	case err != nil:
		log.Printf("[speech] unavailable: %v (announcements off)", err)
	default:
		sched := announce.New(state, spk, announce.WithOnAnnounce(srv.Announced))
		srv.SetTrigger(sched.Trigger)
		go sched.Run(ctx)
	}

	if !*useTUI {
		if err := srv.Run(ctx); err != nil {
			log.Printf("[main] server exited: %v", err)
		}
		return
	}

	srvDone := make(chan struct{})
	go func() {
		defer close(srvDone)
		if err := srv.Run(ctx); err != nil {
			log.Printf("[main] server exited: %v", err)
		}
	}()

	ui := tui.New(tui.Deps{
		State:   state,
		Trigger: srv.TriggerAnnouncement,
		LastSpoken: func() (string, bool) {
			a, ok := srv.LastAnnouncement()
			return a.Text, ok
		},
		Feed: feed,
	})
	go func() {
		<-ctx.Done()
		ui.Quit()
	}()
	if err := ui.Run(); err != nil {
		log.Printf("[main] tui exited: %v", err)
	}
	cancel()
	<-srvDone
}

// openLogFile opens path for appending, creating its directory.
func openLogFile(path string) (io.Writer, func(), error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// connectable is satisfied by gps.Provider.
type connectable interface {
	Connect() error
	Close() error
}

// connectWithRetry attempts to connect with exponential backoff.
// Starts at 1s, doubles each attempt up to 60s, retries up to maxAttempts
// then continues at max interval indefinitely. It returns false if ctx
// ends first.
func connectWithRetry(ctx context.Context, name string, c connectable, maxAttempts int) bool {
	delay := 1 * time.Second
	maxDelay := 60 * time.Second
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if err := c.Connect(); err != nil {
			attempt++
			if attempt <= maxAttempts {
				log.Printf("[%s] connect attempt %d/%d failed: %v (retry in %v)",
					name, attempt, maxAttempts, err, delay)
			} else {
				log.Printf("[%s] connect attempt %d failed: %v (retry in %v)",
					name, attempt, err, delay)
			}

			select {
			case <-ctx.Done():
				return false
			case <-time.After(delay):
			}

			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		} else {
			log.Printf("[%s] connected successfully (attempt %d)", name, attempt+1)
			return true
		}
	}
}
