package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/daemon"
	"github.com/melonicecream/cc-enhanced/internal/logging"
)

var (
	flagDaemonAddr     string
	flagDaemonInterval time.Duration
	flagDaemonDetach   bool
	flagDaemonPIDFile  string
	flagDaemonLogFile  string
	flagDaemonChild    bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Refresh usage in the background and serve it over HTTP",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Refresh interval (default from config)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.CacheDir(), "daemon.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.CacheDir(), "daemon.log"), "Log file for detached mode")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run the daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonState is written next to the pid file so status can find the API.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
}

// pidFile manages the daemon's pid and state files.
type pidFile string

func (p pidFile) statePath() string { return string(p) + ".json" }

func (p pidFile) read() (int, error) {
	data, err := os.ReadFile(string(p)) //nolint:gosec // configured by the local user
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p)
	}
	return pid, nil
}

func (p pidFile) write(st daemonState) error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	if err := os.WriteFile(string(p), []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.statePath(), append(data, '\n'), 0o600)
}

func (p pidFile) state() (daemonState, error) {
	var st daemonState
	data, err := os.ReadFile(p.statePath()) //nolint:gosec // configured by the local user
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func (p pidFile) remove() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.statePath())
}

// ensureFree fails if a live daemon owns the pid file and clears stale files.
func (p pidFile) ensureFree() error {
	pid, err := p.read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	p.remove()
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("--detach and --child are exclusive")
	}
	if flagDaemonDetach {
		return startDetached(cmd)
	}
	return runDaemonForeground(cmd)
}

func startDetached(cmd *cobra.Command) error {
	pf := pidFile(flagDaemonPIDFile)
	if err := pf.ensureFree(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}
	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if a != "--detach" && !strings.HasPrefix(a, "--detach=") {
			args = append(args, a)
		}
	}
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // configured by the local user
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // re-executes the current binary
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Fprintf(out, "  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground(cmd *cobra.Command) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	level := flagLogLevel
	if level == "" {
		level = e.cfg.Log.Level
	}
	logging.Setup(logging.Options{Level: level, JSON: flagDaemonChild, Writer: cmd.ErrOrStderr()})

	addr := flagDaemonAddr
	if addr == "" {
		addr = e.cfg.Daemon.Addr
	}
	interval := flagDaemonInterval
	if interval <= 0 {
		interval = e.cfg.Daemon.Interval()
	}

	pf := pidFile(flagDaemonPIDFile)
	if err := pf.ensureFree(); err != nil {
		return err
	}
	if err := pf.write(daemonState{PID: os.Getpid(), Addr: addr, StartedAt: time.Now(), DataDir: e.claudeDir}); err != nil {
		return err
	}
	defer pf.remove()

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}
	opts := e.snapshotOptions(cache)

	dcfg := daemon.Config{
		DataDir:      e.claudeDir,
		Days:         e.days(),
		Interval:     interval,
		Addr:         addr,
		EventsBuffer: e.cfg.Daemon.EventsBuffer,
	}
	if e.cfg.Refresh.WatchFiles {
		dcfg.WatchDir = config.ProjectsDir(e.claudeDir)
	}
	svc := daemon.New(dcfg, func(ctx context.Context) (analytics.Snapshot, error) {
		return analytics.BuildSnapshot(ctx, opts)
	})

	slog.Info("daemon starting", "addr", addr, "interval", interval, "data_dir", e.claudeDir)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		fmt.Fprintln(out, "  Daemon: not running")
		return nil
	}
	if !processAlive(pid) {
		fmt.Fprintf(out, "  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagDaemonAddr
	if st, err := pf.state(); err == nil && st.Addr != "" {
		addr = st.Addr
	}
	if addr == "" {
		addr = config.DefaultConfig().Daemon.Addr
	}

	pairs := [][2]string{{"pid", strconv.Itoa(pid)}, {"address", "http://" + addr}}
	st, err := fetchStatus(cmd.Context(), addr)
	if err != nil {
		pairs = append(pairs, [2]string{"api", cli.Warn(err.Error())})
		fmt.Fprint(out, cli.RenderKV(pairs))
		return nil
	}

	pairs = append(pairs,
		[2]string{"last refresh", cli.FormatAge(st.LastRefreshAt, time.Now())},
		[2]string{"refreshes", strconv.FormatInt(st.RefreshCount, 10)},
		[2]string{"projects", strconv.Itoa(st.Summary.Projects)},
		[2]string{"today", cli.FormatTokens(st.Summary.TodayTokens) + " tokens, " + cli.FormatCost(st.Summary.TodayCostUSD)},
		[2]string{"reset in", st.Summary.UntilReset},
	)
	if st.LastError != "" {
		pairs = append(pairs, [2]string{"last error", cli.Warn(st.LastError)})
	}
	fmt.Fprint(out, cli.RenderKV(pairs))
	return nil
}

func fetchStatus(ctx context.Context, addr string) (daemon.Status, error) {
	var st daemon.Status
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func runDaemonStop(cmd *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		return errors.New("daemon is not running")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling daemon: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			pf.remove()
			fmt.Fprintf(cmd.OutOrStdout(), "  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}
