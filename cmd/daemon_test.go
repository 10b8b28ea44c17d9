package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPIDFile_RoundTrip(t *testing.T) {
	pf := pidFile(filepath.Join(t.TempDir(), "run", "daemon.pid"))
	st := daemonState{PID: 4242, Addr: "127.0.0.1:9999", StartedAt: time.Now().UTC().Truncate(time.Second), DataDir: "/data"}

	if err := pf.write(st); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, err := pf.read()
	if err != nil || pid != 4242 {
		t.Fatalf("read = %d, %v", pid, err)
	}
	got, err := pf.state()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if got.Addr != st.Addr || !got.StartedAt.Equal(st.StartedAt) {
		t.Errorf("state = %+v, want %+v", got, st)
	}

	pf.remove()
	if _, err := os.Stat(string(pf)); !os.IsNotExist(err) {
		t.Errorf("pid file still present: %v", err)
	}
}

func TestPIDFile_EnsureFree(t *testing.T) {
	dir := t.TempDir()

	if err := pidFile(filepath.Join(dir, "none.pid")).ensureFree(); err != nil {
		t.Errorf("missing file: %v", err)
	}

	live := pidFile(filepath.Join(dir, "live.pid"))
	if err := live.write(daemonState{PID: os.Getpid()}); err != nil {
		t.Fatal(err)
	}
	if err := live.ensureFree(); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("live pid: err = %v", err)
	}

	bad := pidFile(filepath.Join(dir, "bad.pid"))
	if err := os.WriteFile(string(bad), []byte("nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := bad.ensureFree(); err == nil {
		t.Error("garbage pid file accepted")
	}
}
