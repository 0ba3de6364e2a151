package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/swipe/internal/api"
	"github.com/joescharf/swipe/internal/daemon"
	"github.com/joescharf/swipe/internal/output"
)

// stopTimeout is how long serve stop waits after SIGTERM before SIGKILL.
const stopTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review HTTP API in the foreground",
	Long: `Run the review HTTP API. By default it listens on port 8080.
Use --port to change it, or 'swipe serve start' to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)

	serveCmd.PersistentFlags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.PersistentFlags().Lookup("port"))
}

// pidFile returns the PID file tracking the background server.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(daemon.DefaultPath(viper.GetString("state_dir")))
}

// serveLogPath returns where the background server writes its output.
func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "swipe-serve.log")
}

func serveRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Remove() }()

	s, err := getStore()
	if err != nil {
		return err
	}
	defer closeStore()

	shutdownTracing := initTracing()
	defer func() { _ = shutdownTracing(context.Background()) }()

	pub := newPublisher()
	defer func() { _ = pub.Close() }()

	coord := newCoordinator(s, pub)
	defer coord.Wait()

	srv := api.NewServer(s, coord, pub, newLLMClient())
	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ui.Info("Serving review API at http://localhost%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	ui.Info("Server stopped")
	return nil
}

func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	logPath := serveLogPath()
	if dryRun {
		ui.DryRunMsg("Would start %s serve, logging to %s", exe, logPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	args := []string{"serve", "--port", fmt.Sprintf("%d", viper.GetInt("port"))}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return err
	}
	_ = child.Process.Release()

	ui.Success("Server started (PID %d) on port %d", child.Process.Pid, viper.GetInt("port"))
	ui.Info("Logs: %s", logPath)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		fmt.Fprintf(ui.Out, "  Server:  %s\n", output.Yellow("not running"))
		return nil
	}
	fmt.Fprintf(ui.Out, "  Server:  %s (PID %d)\n", output.Green("running"), pid)
	fmt.Fprintf(ui.Out, "  Port:    %d\n", viper.GetInt("port"))
	fmt.Fprintf(ui.Out, "  Logs:    %s\n", serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return fmt.Errorf("server is not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (PID %d)", pid)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal server: %w", err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if _, running := pf.IsRunning(); !running {
			_ = pf.Remove()
			ui.Success("Server stopped (PID %d)", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	ui.Warning("Server did not exit after %s, killing", stopTimeout)
	if err := pf.Signal(sigKILL()); err != nil {
		return fmt.Errorf("kill server: %w", err)
	}
	_ = pf.Remove()
	ui.Success("Server killed (PID %d)", pid)
	return nil
}
