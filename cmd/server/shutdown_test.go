package main

import (
	"net"
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// stubSignal makes shutdown receive sig immediately.
func stubSignal(t *testing.T, sig os.Signal) {
	t.Helper()

	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})
	signalNotify = func(ch chan<- os.Signal, _ ...os.Signal) {
		go func() {
			ch <- sig
		}()
	}
}

func TestShutdownDrainsIdleServer(t *testing.T) {
	stubSignal(t, syscall.SIGTERM)

	core, logs := observer.New(zapcore.InfoLevel)
	server := &http.Server{}
	shutdown(server, 100*time.Millisecond, zap.New(core))

	entries := logs.FilterMessage("shutting down server").All()
	if len(entries) != 1 {
		t.Fatalf("expected one shutdown entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["signal"] != syscall.SIGTERM.String() {
		t.Fatalf("expected signal field %q, got %v", syscall.SIGTERM.String(), fields["signal"])
	}
	if fields["grace_period"] != 100*time.Millisecond {
		t.Fatalf("unexpected grace_period field %v", fields["grace_period"])
	}
	if logs.FilterMessage("server stopped").Len() != 1 {
		t.Fatalf("expected server stopped entry")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 0 {
		t.Fatalf("expected no warnings for an idle server")
	}
}

func TestShutdownForcesCloseAfterGracePeriod(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			close(entered)
			<-release
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	go func() {
		_ = server.Serve(listener)
	}()

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		resp, err := http.Get("http://" + listener.Addr().String() + "/api/environment")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never reached the handler")
	}

	stubSignal(t, os.Interrupt)
	core, logs := observer.New(zapcore.InfoLevel)
	shutdown(server, 10*time.Millisecond, zap.New(core))

	if logs.FilterMessage("graceful shutdown failed, closing connections").Len() != 1 {
		t.Fatalf("expected forced close warning, got %v", logs.All())
	}
	if logs.FilterMessage("server stopped").Len() != 0 {
		t.Fatalf("did not expect a clean stop entry")
	}

	select {
	case <-clientDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("in-flight request was not cut off by Close")
	}
}
