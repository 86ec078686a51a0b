package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	defer Reset()

	Configure(Config{Store: 7 * time.Second})

	got := Current()
	if got.Store != 7*time.Second {
		t.Errorf("Store = %v, want 7s", got.Store)
	}
	if got.Identity != DefaultIdentity {
		t.Errorf("Identity = %v, want default %v", got.Identity, DefaultIdentity)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Minute, Scan: time.Minute})
	Reset()
	if Ping() != DefaultPing || Scan() != DefaultScan {
		t.Errorf("Reset did not restore defaults: %+v", Current())
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}
