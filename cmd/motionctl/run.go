package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"motioncore/config"
	"motioncore/controller"
	"motioncore/motion"
	"motioncore/transport"
)

// moveJSON is the on-disk move-list record. It mirrors motion.Move without
// committing that package's wire shape to encoding/json tags.
type moveJSON struct {
	X, Y, Z, E  float64
	FeedRate    float64 `json:"feed_rate"`
	ExtrudeOnly bool    `json:"extrude_only"`
}

func newRunCmd(logger *zap.Logger) *cobra.Command {
	var configPath, movesPath, outPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and execute a move list against a machine config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMoves(cmd.Context(), logger, configPath, movesPath, outPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the machine config JSON file")
	cmd.Flags().StringVar(&movesPath, "moves", "", "path to the move list JSON file")
	cmd.Flags().StringVar(&outPath, "out", "-", "path to write the framed step/diagnostic stream (- for stdout)")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("moves")
	return cmd
}

func runMoves(ctx context.Context, logger *zap.Logger, configPath, movesPath, outPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	moves, err := loadMoves(movesPath)
	if err != nil {
		return err
	}

	kin, err := cfg.BuildKinematics()
	if err != nil {
		return errors.Wrap(err, "building kinematics")
	}
	shapers, err := cfg.BuildShapers()
	if err != nil {
		return errors.Wrap(err, "building shapers")
	}
	motors := cfg.BuildMotors(kin)
	axisShapers := cfg.BuildAxisShapers(shapers)
	limits := cfg.BuildLimits()

	out, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	enc := transport.NewEncoder(out)
	ctrl, err := controller.New(kin, motors, axisShapers, limits, cfg.LookaheadDepth, motion.Position{}, enc, cfg.HorizonCapacity, logger)
	if err != nil {
		return errors.Wrap(err, "building controller")
	}

	for i, m := range moves {
		if _, err := ctrl.EnqueueMove(m); err != nil {
			return errors.Wrapf(err, "enqueueing move %d", i)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	drainStop := make(chan struct{})
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		for {
			select {
			case d := <-ctrl.Diagnostics():
				if err := enc.WriteDiagnostic(d); err != nil {
					logger.Warn("failed to write diagnostic frame", zap.Error(err))
				}
			case <-drainStop:
				return
			}
		}
	}()

	runErr := ctrl.Run(ctx)
	close(drainStop)
	<-drainDone
	drainRemaining(ctrl, enc, logger)

	snapshot := ctrl.QueryState()
	logger.Info("run finished",
		zap.String("state", snapshot.State.String()),
		zap.Int("queued_moves", snapshot.QueuedMoves),
	)
	return runErr
}

// drainRemaining flushes any diagnostics already buffered in the channel
// after the controller has stopped producing new ones.
func drainRemaining(ctrl *controller.Controller, enc *transport.Encoder, logger *zap.Logger) {
	for {
		select {
		case d := <-ctrl.Diagnostics():
			if err := enc.WriteDiagnostic(d); err != nil {
				logger.Warn("failed to write diagnostic frame", zap.Error(err))
			}
		default:
			return
		}
	}
}

func loadConfig(path string) (*config.MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return config.Load(data)
}

func loadMoves(path string) ([]motion.Move, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading move list file")
	}
	var raw []moveJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing move list JSON")
	}
	moves := make([]motion.Move, len(raw))
	for i, m := range raw {
		moves[i] = motion.Move{
			Target:        motion.Position{X: m.X, Y: m.Y, Z: m.Z, E: m.E},
			FeedRate:      m.FeedRate,
			IsExtrudeOnly: m.ExtrudeOnly,
		}
	}
	return moves, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening output file")
	}
	return f, func() { f.Close() }, nil
}
