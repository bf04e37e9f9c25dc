package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/factory"
	"github.com/mcoot/parksync/internal/session"
	"github.com/mcoot/parksync/internal/sim"
)

var errPasswordRequired = errors.New("server requires a password (use --password)")

// joinNotifier logs events and remembers the ones that end a join
type joinNotifier struct {
	*session.LogNotifier
	needPassword bool
	reason       string
}

func (n *joinNotifier) PasswordRequired() {
	n.LogNotifier.PasswordRequired()
	n.needPassword = true
}

func (n *joinNotifier) Disconnected(reason string) {
	n.LogNotifier.Disconnected(reason)
	n.reason = reason
}

func newJoinCmd() *cobra.Command {
	sc := session.DefaultConfig()
	var (
		chat     string
		tick     time.Duration
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "join <host>",
		Short: "Join a hosted park session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc.KeyDir = cfg.KeyDir
			sc.LogDir = cfg.LogDir

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := factory.New(factory.Config{
				StorageType: factory.StorageTypeMemory,
				KeyDir:      cfg.KeyDir,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			defer app.Close()

			notifier := &joinNotifier{LogNotifier: session.NewLogNotifier(logger)}
			park := sim.NewEmpty(sim.DefaultObjects)
			sess, err := session.New(sc, park, app.SessionDeps(notifier))
			if err != nil {
				return err
			}
			if err := sess.BeginClient(args[0], sc.Port); err != nil {
				return err
			}
			defer func() {
				if err := sess.Close(); err != nil {
					logger.Warn("close session", slog.String("error", err.Error()))
				}
			}()

			err = runLoop(ctx, tick, duration, func() error {
				sess.Update()
				for sess.Role() == session.RoleClient && sess.Advance() {
				}

				switch {
				case notifier.reason != "":
					return fmt.Errorf("disconnected: %s", notifier.reason)
				case notifier.needPassword:
					return errPasswordRequired
				}

				if chat != "" && sess.MapLoaded() {
					if err := sess.SendChat(chat); err != nil {
						logger.Warn("chat not sent", slog.String("error", err.Error()))
					}
					chat = ""
				}
				return nil
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(
				fmt.Sprintf("Left %s at tick %d", args[0], park.CurrentTick()))
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&sc.Port, "port", sc.Port, "Game port")
	f.StringVar(&sc.PlayerName, "name", sc.PlayerName, "Player name")
	f.StringVar(&sc.Password, "password", "", "Server password")
	f.BoolVar(&sc.StayConnectedAfterDesync, "stay-connected", false, "Stay connected after a desync")
	f.BoolVar(&sc.LegacyCommands, "legacy-commands", false, "Send positional GAMECMD packets where possible")
	f.StringVar(&chat, "chat", "", "Chat line to send once the park has loaded")
	f.DurationVar(&tick, "tick", DefaultTickInterval, "Frame interval")
	f.DurationVar(&duration, "duration", 0, "Leave after this long (0 stays until interrupted)")

	return cmd
}
