package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	serverIOTimeout = time.Minute
	drainTimeout    = 30 * time.Second

	// inheritEnv marks a child started by a SIGUSR2 restart; its listener is fd 3.
	inheritEnv = "BOARD_INHERIT_LISTENER"
	inheritFD  = 3
)

// GracefulServer serves HTTP until SIGTERM or SIGINT, draining in-flight requests.
// On SIGUSR2 it hands its socket to a fresh copy of the binary before draining.
type GracefulServer struct {
	http *http.Server
	ln   net.Listener
	done chan struct{}
}

// NewGracefulServer wraps handler in a server listening on addr.
func NewGracefulServer(addr string, handler http.Handler) *GracefulServer {
	return &GracefulServer{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       serverIOTimeout,
			WriteTimeout:      serverIOTimeout,
		},
		done: make(chan struct{}),
	}
}

// Run blocks until the server has been drained.
func (s *GracefulServer) Run() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.ln = ln

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
	go s.watch(sigs)

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-s.done
	return nil
}

func (s *GracefulServer) listen() (net.Listener, error) {
	if os.Getenv(inheritEnv) == "1" {
		ln, err := net.FileListener(os.NewFile(inheritFD, "inherited-listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		Logger.Info("serving on inherited listener", zap.String("addr", ln.Addr().String()))
		return ln, nil
	}
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return ln, nil
}

func (s *GracefulServer) watch(sigs <-chan os.Signal) {
	for sig := range sigs {
		if sig == syscall.SIGUSR2 {
			pid, err := s.spawnChild()
			if err != nil {
				Logger.Error("restart failed, keep serving", zap.Error(err))
				continue
			}
			Logger.Info("restarted", zap.Int("child_pid", pid))
		} else {
			Logger.Info("shutdown requested", zap.String("signal", sig.String()))
		}
		s.drain()
		return
	}
}

func (s *GracefulServer) drain() {
	defer close(s.done)
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		Logger.Error("drain incomplete", zap.Error(err))
		return
	}
	Logger.Info("server drained")
}

// spawnChild re-executes the running binary with the listening socket as fd 3.
func (s *GracefulServer) spawnChild() (int, error) {
	tcp, ok := s.ln.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("cannot hand over listener of type %T", s.ln)
	}
	f, err := tcp.File()
	if err != nil {
		return 0, fmt.Errorf("dup listener: %w", err)
	}
	defer f.Close()

	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if len(kv) < len(inheritEnv)+1 || kv[:len(inheritEnv)+1] != inheritEnv+"=" {
			env = append(env, kv)
		}
	}
	env = append(env, inheritEnv+"=1")

	return syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), f.Fd()},
	})
}

// GraceServer serves handler on addr until the process is told to stop.
func GraceServer(addr string, handler http.Handler) error {
	return NewGracefulServer(addr, handler).Run()
}
