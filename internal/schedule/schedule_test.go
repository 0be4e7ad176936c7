package schedule

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	appLog "inkdash/internal/log"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(context.Background(), "every now and then", time.UTC, func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("bad spec accepted")
	}
	if !strings.Contains(err.Error(), "every now and then") {
		t.Errorf("error does not name the spec: %v", err)
	}
}

func TestNextUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(context.Background(), "0 6 * * *", loc, func(context.Context) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	next := s.Next().In(loc)
	if next.Hour() != 6 || next.Minute() != 0 {
		t.Errorf("next = %v, want 06:00 Seoul", next)
	}
	if !next.After(time.Now()) {
		t.Errorf("next %v is in the past", next)
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := New(context.Background(), "@every 1s", nil, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("logged, not fatal")
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestCronLoggerRoutesToAppLog(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	appLog.SetLevel(appLog.LevelDebug)
	t.Cleanup(func() {
		appLog.SetOutput(os.Stderr)
		appLog.SetLevel(appLog.LevelInfo)
	})

	var l cron.Logger = cronLogger{}
	l.Info("wake", "now", "x")
	l.Error(errors.New("panic: boom"), "panic", "entry", 1)

	out := buf.String()
	if !strings.Contains(out, "cron: wake") || !strings.Contains(out, "cron: panic") {
		t.Errorf("missing cron messages:\n%s", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "entry=1") {
		t.Errorf("error entry not structured:\n%s", out)
	}
}
