package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/api"
	"github.com/mcoot/parksync/internal/api/sse"
	"github.com/mcoot/parksync/internal/factory"
	"github.com/mcoot/parksync/internal/services/advertise"
	"github.com/mcoot/parksync/internal/session"
	"github.com/mcoot/parksync/internal/sim"
)

// DefaultTickInterval is the simulation frame length
const DefaultTickInterval = 25 * time.Millisecond

func newHostCmd() *cobra.Command {
	sc := session.DefaultConfig()
	apiCfg := api.DefaultServerConfig()
	var (
		compression string
		parkName    string
		seed        uint32
		serveAPI    bool
		advertiseOn bool
		tick        time.Duration
		duration    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a park session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session.ParseCompression(compression)
			if err != nil {
				return err
			}
			sc.MapCompression = c
			sc.KeyDir = cfg.KeyDir
			sc.LogDir = cfg.LogDir

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fc := cfg.FactoryConfig(logger)
			fc.Advertise = advertiseOn
			fc.AdvertiseTTL = advertise.DefaultTTL
			app, err := factory.New(fc)
			if err != nil {
				return err
			}
			defer app.Close()

			var notifier session.Notifier = session.NewLogNotifier(logger)
			var events *sse.Hub
			if serveAPI {
				events = sse.NewHub(logger)
				go events.Run()
				defer events.Close()
				notifier = sse.NewNotifier(events, notifier)
			}

			if seed == 0 {
				seed = app.Random.Seed()
			}
			park := sim.New(parkName, seed, sim.DefaultObjects)
			sess, err := session.New(sc, park, app.SessionDeps(notifier))
			if err != nil {
				return err
			}
			if err := sess.BeginServer(ctx); err != nil {
				return err
			}
			defer func() {
				if err := sess.Close(); err != nil {
					logger.Warn("close session", slog.String("error", err.Error()))
				}
			}()

			if serveAPI {
				srv := api.NewServer(api.NewRouter(api.RouterConfig{Logger: logger, Status: sess, Events: events}), apiCfg, logger)
				apiCtx, cancelAPI := context.WithCancel(ctx)
				apiDone := make(chan struct{})
				go func() {
					defer close(apiDone)
					if err := srv.Run(apiCtx); err != nil {
						logger.Error("status API failed", slog.String("error", err.Error()))
					}
				}()
				defer func() {
					cancelAPI()
					// end open event streams so shutdown does not wait on them
					events.Close()
					<-apiDone
				}()
			}

			err = runLoop(ctx, tick, duration, func() error {
				sess.Update()
				sess.Advance()
				return nil
			})

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(
				fmt.Sprintf("Stopped at tick %d", park.CurrentTick()))
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&sc.Port, "port", sc.Port, "Game port")
	f.StringVar(&sc.BindAddress, "bind", sc.BindAddress, "Bind address (all interfaces when empty)")
	f.StringVar(&sc.ServerName, "server-name", sc.ServerName, "Server name")
	f.StringVar(&sc.Description, "description", sc.Description, "Server description")
	f.StringVar(&sc.PlayerName, "name", "Host", "Host player name")
	f.IntVar(&sc.MaxPlayers, "max-players", sc.MaxPlayers, "Maximum players including the host")
	f.StringVar(&sc.Password, "password", "", "Server password")
	f.BoolVar(&sc.KnownKeysOnly, "known-keys-only", false, "Only admit keys with a known-user record")
	f.Uint32Var(&sc.ChecksumInterval, "checksum-interval", sc.ChecksumInterval, "Ticks between world checksums")
	f.IntVar(&sc.MapChunkSize, "map-chunk-size", sc.MapChunkSize, "World transfer chunk size in bytes")
	f.StringVar(&compression, "compression", string(sc.MapCompression), "World transfer compression: none, zlib, lz4")
	f.Float64Var(&sc.ChatRate, "chat-rate", sc.ChatRate, "Chat messages per second per player")
	f.IntVar(&sc.ChatBurst, "chat-burst", sc.ChatBurst, "Chat burst per player")
	f.StringVar(&parkName, "park", "New Park", "Park name")
	f.Uint32Var(&seed, "seed", 0, "Initial simulation seed (0 picks one)")
	f.BoolVar(&serveAPI, "api", false, "Serve the HTTP status API")
	f.StringVar(&apiCfg.Host, "api-host", apiCfg.Host, "Status API host")
	f.IntVar(&apiCfg.Port, "api-port", apiCfg.Port, "Status API port")
	f.BoolVar(&advertiseOn, "advertise", false, "Publish a server listing to Redis (requires --redis-url)")
	f.StringVar(&sc.AdvertiseAddress, "advertise-address", "", "Address published in the listing")
	f.DurationVar(&tick, "tick", DefaultTickInterval, "Tick interval")
	f.DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")

	return cmd
}

// runLoop calls frame every interval until ctx ends or frame fails. A
// positive duration bounds the run.
func runLoop(ctx context.Context, interval, duration time.Duration, frame func() error) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := frame(); err != nil {
			return err
		}
	}
}
