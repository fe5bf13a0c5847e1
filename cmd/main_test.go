package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer l.Close()
	return l.Addr().String()
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given ARENA_ environment variables", t, func() {
		t.Setenv("ARENA_ADDR", ":9090")
		t.Setenv("ARENA_MATCHMAKING_INTERVAL_MS", "250")

		convey.Convey("Then configuration picks them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.MatchmakingInterval(), convey.ShouldEqual, 250*time.Millisecond)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration with in-memory backends", t, func() {
		cfg := config.New()
		cfg.Addr = freeAddr()
		cfg.ShutdownTimeoutMS = 2000

		convey.Convey("When run serves until cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Get()) }()

			var resp *http.Response
			var err error
			for i := 0; i < 50; i++ {
				resp, err = http.Get(fmt.Sprintf("http://%s/healthz", cfg.Addr))
				if err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			cancel()

			convey.Convey("Then health answers and shutdown is clean", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				_ = resp.Body.Close()

				select {
				case runErr := <-done:
					convey.So(runErr, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})
	})

	convey.Convey("Given system metrics", t, func() {
		convey.Convey("Then updating them does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
