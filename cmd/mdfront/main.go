package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdos "os"
	"time"

	"github.com/mdfront/mdfront/pkg/audio"
	"github.com/mdfront/mdfront/pkg/cdreader"
	"github.com/mdfront/mdfront/pkg/config"
	"github.com/mdfront/mdfront/pkg/display"
	"github.com/mdfront/mdfront/pkg/engine/nullcore"
	"github.com/mdfront/mdfront/pkg/frontend"
	"github.com/mdfront/mdfront/pkg/input"
	"github.com/mdfront/mdfront/pkg/locator"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/mdfront/mdfront/pkg/monitoring"
	"github.com/mdfront/mdfront/pkg/os"
	"github.com/mdfront/mdfront/pkg/scheduler"
	"github.com/mdfront/mdfront/pkg/storage"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
)

var Version = "?"

const usage = `Usage: %s [OPTIONS] FILE

Runs a cartridge or a disc image.

Options:
%s`

// parse reads the command line. It returns the exit code to stop with,
// or -1 to go on.
func parse(args []string, out io.Writer) (opts config.Options, file string, code int) {
	name := "mdfront"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts.WithFlags(fs)
	printUsage := func() { _, _ = fmt.Fprintf(out, usage, name, fs.FlagUsages()) }

	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(out, "%v\n\n", err)
		printUsage()
		return opts, "", 1
	}
	if opts.Help {
		printUsage()
		return opts, "", 0
	}
	if fs.NArg() != 1 {
		printUsage()
		return opts, "", 1
	}
	return opts, fs.Arg(0), -1
}

func main() {
	opts, file, code := parse(stdos.Args, stdos.Stderr)
	if code >= 0 {
		stdos.Exit(code)
	}
	stdos.Exit(run(opts, file))
}

func run(opts config.Options, file string) int {
	conf, err := config.NewConfig(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(stdos.Stderr, "config: %v\n", err)
		return 1
	}
	opts.Apply(&conf)

	var log *logger.Logger
	if conf.Debug {
		log = logger.NewConsole(true, "md", false)
	} else {
		log = logger.Quiet("md")
	}
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	dir := storageDir(conf, log)
	if dir.IsSet() {
		lock, err := os.NewDirLock(dir.Dir())
		if err == nil {
			err = lock.TryLock()
		}
		if err != nil {
			log.Warn().Err(err).Str("dir", dir.Dir()).Msg("storage dir is not locked")
		} else {
			defer func() { _ = lock.Unlock() }()
		}
	}

	fs := afero.NewOsFs()
	metrics := monitoring.NewMetrics()
	var mon *monitoring.Monitoring
	if conf.Monitoring.IsEnabled() {
		mon = monitoring.New(conf.Monitoring, metrics, log)
		if err := mon.Run(); err != nil {
			log.Error().Err(err).Msg("metrics are off")
			mon = nil
		}
	}
	defer func() {
		if mon == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := mon.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("monitoring shutdown")
		}
	}()

	store := storage.New(fs, dir, conf.Emulator.SaveCompression)

	sink, err := audio.Open(conf.Audio.Sink, conf.Audio.BufferMs, log.Module("audio"))
	if err != nil {
		log.Error().Err(err).Msg("audio")
		return 1
	}

	var screen display.Display
	switch conf.Video.Display {
	case config.DisplayHeadless:
		screen = &display.Headless{}
	default:
		screen = display.NewTerminal(stdos.Stdout, 60)
	}

	in := newInput(conf.Input, log)

	session := frontend.New(frontend.Options{
		Fs:          fs,
		Engine:      nullcore.New(),
		Disc:        cdreader.New(fs, log.Module("cd")),
		Storage:     store,
		SaveFiles:   storage.NewSaveFiles(fs, dir, log),
		Sink:        sink,
		Display:     screen,
		Input:       in,
		Stats:       metrics,
		Region:      conf.RegionOverride(),
		AutosaveSec: conf.Emulator.AutosaveSec,
		WatchMedia:  conf.Emulator.WatchMedia,
		Extensions:  conf.Emulator.Extensions,
	}, log)
	defer func() {
		if err := session.Close(); err != nil {
			log.Error().Err(err).Msg("session close")
		}
	}()

	if err := session.Load(file); err != nil {
		log.Error().Err(err).Msg("media")
		_, _ = fmt.Fprintf(stdos.Stderr, "%v\n", err)
		return 1
	}

	ctx, cancel := os.ExpectTermination(context.Background())
	defer cancel()

	loop := scheduler.New(session, scheduler.NewClock(), log)
	loop.SetObserver(metrics)
	loop.Run(ctx)
	log.Info().Uint64("frames", loop.Ticks()).Msg("bye")
	return 0
}

// storageDir is the config override or the dir of the binary.
// An unknown dir turns persistence off.
func storageDir(conf config.Config, log *logger.Logger) locator.Location {
	if conf.Emulator.Storage != "" {
		return locator.At(conf.Emulator.Storage)
	}
	dir, err := locator.Find(stdos.Args[0], locator.HostEnv())
	if err != nil {
		log.Warn().Err(err).Msg("no storage dir, saving is off")
	}
	return dir
}

func newInput(conf config.Input, log *logger.Logger) input.Source {
	km, err := input.NewKeymap(conf.Keys)
	if err != nil {
		log.Warn().Err(err).Msg("bad key bindings, using the default ones")
		km = input.DefaultKeymap()
	}
	state := input.NewState(km, time.Duration(conf.ReleaseMs)*time.Millisecond)
	src, err := input.NewTermSource(state)
	if err != nil {
		if !errors.Is(err, input.ErrNoTerminal) {
			log.Warn().Err(err).Msg("keyboard")
		}
		return state
	}
	return src
}
