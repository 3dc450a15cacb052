package tor

import (
	"testing"
	"time"
)

// TestNewRuntime tests the Runtime constructor.
func TestNewRuntime(t *testing.T) {
	t.Parallel()

	t.Run("creates with default timeout", func(t *testing.T) {
		t.Parallel()

		runtime := NewRuntime()
		if runtime.startupTimeout != 3*time.Minute {
			t.Errorf("expected default timeout 3m, got %v", runtime.startupTimeout)
		}
	})

	t.Run("applies WithStartupTimeout", func(t *testing.T) {
		t.Parallel()

		runtime := NewRuntime(WithStartupTimeout(5 * time.Minute))
		if runtime.startupTimeout != 5*time.Minute {
			t.Errorf("expected timeout 5m, got %v", runtime.startupTimeout)
		}
	})
}

// TestRuntimeMethods tests Runtime behavior without launching Tor.
func TestRuntimeMethods(t *testing.T) {
	t.Parallel()

	t.Run("addresses are empty before start", func(t *testing.T) {
		t.Parallel()

		runtime := NewRuntime()
		if runtime.SocksAddr() != "" {
			t.Error("expected empty SocksAddr before start")
		}
		if runtime.ControlAddr() != "" {
			t.Error("expected empty ControlAddr before start")
		}
	})

	t.Run("IsRunning returns false before start", func(t *testing.T) {
		t.Parallel()

		if NewRuntime().IsRunning() {
			t.Error("expected IsRunning to be false before start")
		}
	})

	t.Run("Stop is safe on an unstarted runtime", func(t *testing.T) {
		t.Parallel()

		if err := NewRuntime().Stop(); err != nil {
			t.Errorf("expected no error stopping unstarted runtime, got %v", err)
		}
	})

	t.Run("NewClient fails when not running", func(t *testing.T) {
		t.Parallel()

		if _, err := NewRuntime().NewClient(30 * time.Second); err == nil {
			t.Error("expected error when creating client from unstarted daemon")
		}
	})
}
