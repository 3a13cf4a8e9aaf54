package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/adapters"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/internal/config"
	"github.com/satriahrh/arunika/interview/usecase"
	"github.com/satriahrh/arunika/interview/usecase/interview"
)

type practiceOptions struct {
	topicID   string
	topicFile string
	name      string
	email     string
	out       string
}

func newPracticeCommand(root *rootOptions) *cobra.Command {
	opts := &practiceOptions{}
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a typed interview in the terminal and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return practice(cmd.InOrStdin(), cmd.OutOrStdout(), opts, logger)
		},
	}
	cmd.Flags().StringVar(&opts.topicID, "topic", "", "topic id to practice (required)")
	cmd.Flags().StringVar(&opts.topicFile, "topic-file", "", "YAML or JSON topic pack")
	cmd.Flags().StringVar(&opts.name, "name", "", "candidate name (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "candidate email (required)")
	cmd.Flags().StringVar(&opts.out, "out", "", "report file (default interview-<session><ext>)")
	cmd.MarkFlagRequired("topic")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func practice(in io.Reader, out io.Writer, opts *practiceOptions, logger *zap.Logger) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg, buildOptions{topicFile: opts.topicFile, memoryReports: true}, logger)
	if err != nil {
		return err
	}
	defer comps.Close(context.Background(), logger)

	var confirming atomic.Bool
	console := &consoleObserver{out: out, confirming: &confirming}

	devices := adapters.NewMemoryMediaDevices(logger)
	live, err := comps.interviews.Prepare(ctx, usecase.SessionRequest{
		TopicID:    opts.topicID,
		Candidate:  entities.Candidate{Name: opts.name, Email: opts.email},
		UserID:     entities.AnonymousUserID,
		Devices:    devices,
		Camera:     true,
		Microphone: true,
		TextOnly:   true,
		Observer:   console.observe,
	})
	if err != nil {
		return err
	}

	ctrl := live.Controller
	go ctrl.Run(ctx)

	fmt.Fprintf(out, "Practicing %s with %d questions. Type your answers; say \"stop\" to end early.\n",
		live.Topic.Topic, len(live.Topic.Questions))

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	go readAnswers(in, out, ctrl, &confirming, logger)

	<-ctrl.Done()

	rep, err := comps.interviews.Report(context.Background(), live)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	path := opts.out
	if path == "" {
		path = "interview-" + rep.SessionID + extensionFor(rep.ContentType)
	}
	if err := afero.WriteFile(afero.NewOsFs(), path, rep.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(out, "\nInterview %s. Score %.1f. Report written to %s\n", rep.Status, rep.Score, path)
	return nil
}

// readAnswers forwards each input line to the controller until input ends
func readAnswers(in io.Reader, out io.Writer, ctrl *interview.Controller, confirming *atomic.Bool, logger *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		if confirming.Load() {
			err = ctrl.ConfirmStop(isYes(line))
		} else {
			err = ctrl.SubmitAnswer(line)
		}
		if err != nil {
			select {
			case <-ctrl.Done():
				return
			default:
			}
			logger.Debug("Input rejected", zap.Error(err))
			fmt.Fprintln(out, "(please wait for the next question)")
		}
	}

	if err := ctrl.Stop(); err != nil {
		logger.Warn("Failed to stop interview", zap.Error(err))
	}
}

func isYes(line string) bool {
	switch strings.ToLower(line) {
	case "y", "yes", "confirm", "stop":
		return true
	default:
		return false
	}
}

func extensionFor(contentType string) string {
	if strings.HasPrefix(contentType, "application/pdf") {
		return ".pdf"
	}
	return ".txt"
}

// consoleObserver prints interview notifications to the terminal
type consoleObserver struct {
	out        io.Writer
	confirming *atomic.Bool
}

func (c *consoleObserver) observe(n interview.Notification) {
	switch n.Kind {
	case interview.NotifyCountdown:
		fmt.Fprintf(c.out, "%d...\n", n.Remaining)
	case interview.NotifyStatus:
		fmt.Fprintln(c.out, n.Message)
	case interview.NotifySpeakingStart:
		fmt.Fprintf(c.out, "\nInterviewer: %s\n", n.Message)
	case interview.NotifyStopConfirmation:
		c.confirming.Store(true)
		fmt.Fprintf(c.out, "%s (yes/no)\n", n.Message)
	case interview.NotifyState:
		switch n.Session.Status {
		case entities.SessionStatusAwaitingResponse:
			c.confirming.Store(false)
			fmt.Fprint(c.out, "> ")
		case entities.SessionStatusEvaluating:
			fmt.Fprintln(c.out, "Evaluating...")
		}
	}
}
