package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ItsNotGoodName/x-panel/internal/api"
	"github.com/ItsNotGoodName/x-panel/internal/build"
	"github.com/ItsNotGoodName/x-panel/internal/config"
	"github.com/ItsNotGoodName/x-panel/internal/panel"
	"github.com/ItsNotGoodName/x-panel/internal/plugins/launchbar"
	"github.com/ItsNotGoodName/x-panel/internal/plugins/memchart"
	"github.com/ItsNotGoodName/x-panel/internal/wm"
	"github.com/ItsNotGoodName/x-panel/internal/xloop"
	"github.com/ItsNotGoodName/x-panel/pkg/sutureext"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/jezek/xgb"
	"github.com/jezek/xgbutil"
	"github.com/joho/godotenv"
	"github.com/k0kubun/pp"
	"github.com/phsym/console-slog"
)

type Options struct {
	Debug  bool   `doc:"enable debug"`
	Host   string `doc:"host to listen on" default:"127.0.0.1"`
	Port   int    `doc:"port to listen on" default:"8080"`
	Config string `doc:"config file" default:".x-panel.yaml"`
	Dump   bool   `doc:"print the effective config and exit"`
}

func main() {
	godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		if options.Debug {
			InitLogger(slog.LevelDebug)
		} else {
			InitLogger(slog.LevelInfo)
		}

		OnServe(hooks, func(ctx context.Context) error {
			configFilePath, err := filepath.Abs(options.Config)
			if err != nil {
				return err
			}

			store, err := config.NewStore(config.NewYAML(configFilePath))
			if err != nil {
				return err
			}

			if err := config.Normalize(store); err != nil {
				return err
			}

			cfg, err := store.GetConfig()
			if err != nil {
				return err
			}

			if options.Dump {
				pp.Println(cfg)
				return nil
			}

			x, err := xgbutil.NewConn()
			if err != nil {
				return err
			}
			defer x.Conn().Close()

			wmc := wm.New(x)

			p, err := panel.Create(x, cfg.Panel)
			if err != nil {
				return err
			}

			eventC := make(chan xgb.Event)
			go xloop.Receive(ctx, x.Conn(), eventC)

			loop := xloop.New(eventC)

			tb := panel.NewTaskbar(p, wmc, loop, cfg.Taskbar)

			lb, err := launchbar.New(p, cfg.Launch, p.Horizontal(), cfg.Panel.Size)
			if err != nil {
				return err
			}

			super := sutureext.NewSupervisor("x-panel")

			var chart *memchart.Chart
			var plugins []panel.Plugin
			if cfg.Memchart.Enabled {
				chart = memchart.New(cfg.Memchart.Samples)
				plugins = append(plugins, chart)
				interval := time.Duration(cfg.Memchart.IntervalMs) * time.Millisecond
				sutureext.Add(super, sutureext.NewServiceFunc("memchart", func(ctx context.Context) error {
					ticker := time.NewTicker(interval)
					defer ticker.Stop()
					for {
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-ticker.C:
							chart.Sample()
						}
					}
				}))
			}

			d := panel.NewDispatcher(ctx, wmc, p, tb, lb, plugins...)
			if err := d.Bootstrap(); err != nil {
				return err
			}
			defer d.Close()

			sutureext.Add(super, api.NewServer(
				fmt.Sprintf("%s:%d", options.Host, options.Port),
				api.NewHandler(api.NewState(), cfg, chart),
			))
			super.ServeBackground(ctx)

			return loop.Run(ctx, d.Handle)
		})
	})

	cli.Root().Version = build.Current.Version

	cli.Run()
}

func InitLogger(level slog.Level) {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})))
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}
