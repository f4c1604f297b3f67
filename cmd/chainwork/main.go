package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/chainwork/chainwork/actions"
	"github.com/chainwork/chainwork/api"
	"github.com/chainwork/chainwork/chainfile"
	"github.com/chainwork/chainwork/channels"
	"github.com/chainwork/chainwork/engine"
	"github.com/chainwork/chainwork/event"
	"github.com/chainwork/chainwork/execution"
	"github.com/chainwork/chainwork/internal/config"
	"github.com/chainwork/chainwork/ledger"
	"github.com/chainwork/chainwork/runtime/queue"
	"github.com/chainwork/chainwork/runtime/queue/redisstreams"
	"github.com/chainwork/chainwork/runtime/worker"
	"github.com/chainwork/chainwork/schedule"
	"github.com/chainwork/chainwork/store/sqlite"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		log.Fatalf("[chainwork] fatal: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	chains := sqlite.NewChainStore(db)
	executions := sqlite.NewExecutionStore(db)
	billing, err := ledger.New(sqlite.NewLedgerStore(db))
	if err != nil {
		return err
	}

	// Events reach the log through a buffer so emits never block a run.
	sink := event.NewAsyncSink(event.LogSink{}, 256)
	defer sink.Close()

	registry := buildRegistry(cfg)
	runner, err := engine.NewRunner(chains, executions, billing, registry,
		engine.WithObserver(sink))
	if err != nil {
		return err
	}
	dispatcher, err := engine.NewDispatcher(chains)
	if err != nil {
		return err
	}

	runQueue, err := buildQueue(cfg)
	if err != nil {
		return err
	}
	defer runQueue.Close()

	if cfg.Chainfile != "" {
		file, err := chainfile.Load(cfg.Chainfile)
		if err != nil {
			return err
		}
		if err := chainfile.Seed(ctx, file, chains, billing); err != nil {
			return err
		}
	}

	w, err := worker.New(worker.Config{
		Capacity:     cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
	}, runQueue, runner)
	if err != nil {
		return err
	}
	go func() {
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[chainwork] worker stopped: %v", err)
		}
	}()

	scheduler, err := schedule.New(chains, func(ctx context.Context, req execution.RunRequest) error {
		_, err := runQueue.Enqueue(ctx, queue.FromRunRequest(req))
		return err
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	server, err := api.NewServer(api.Config{
		Addr:       cfg.Addr,
		Chains:     chains,
		Executions: executions,
		Ledger:     billing,
		Dispatcher: dispatcher,
		Runner:     runner,
		Queue:      runQueue,
	})
	if err != nil {
		return err
	}
	return server.ListenAndServe(ctx)
}

// buildRegistry registers an executor per configured channel. The HTTP
// executor is always available; email and telegram need credentials.
func buildRegistry(cfg config.Config) *actions.Registry {
	registry := actions.NewRegistry()

	httpExec, err := actions.NewHTTPRequestExecutor(channels.NewWebClient())
	if err == nil {
		registry.Register(httpExec)
	}

	if cfg.SMTPAddr != "" && cfg.SMTPFrom != "" {
		var opts []channels.SMTPOption
		if cfg.SMTPUser != "" {
			opts = append(opts, channels.WithSMTPAuth(cfg.SMTPUser, cfg.SMTPPassword, hostOf(cfg.SMTPAddr)))
		}
		mailer, err := channels.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, opts...)
		if err != nil {
			log.Printf("[chainwork] smtp disabled: %v", err)
		} else if exec, err := actions.NewSendEmailExecutor(mailer); err == nil {
			registry.Register(exec)
		}
	} else {
		log.Printf("[chainwork] smtp not configured, send_email actions will fail")
	}

	if cfg.TelegramToken != "" {
		bot, err := channels.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			log.Printf("[chainwork] telegram disabled: %v", err)
		} else if exec, err := actions.NewTelegramMessageExecutor(bot); err == nil {
			registry.Register(exec)
		}
	} else {
		log.Printf("[chainwork] telegram not configured, telegram_message actions will fail")
	}

	log.Printf("[chainwork] registered action types: %v", registry.Types())
	return registry
}

func buildQueue(cfg config.Config) (queue.Queue, error) {
	if cfg.RedisAddr == "" {
		log.Printf("[chainwork] using in-memory queue")
		return queue.NewMemory(), nil
	}
	log.Printf("[chainwork] using redis streams queue at %s", cfg.RedisAddr)
	return redisstreams.New(cfg.RedisAddr, redisstreams.WithDB(cfg.RedisDB))
}

func hostOf(addr string) string {
	for i := range addr {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
