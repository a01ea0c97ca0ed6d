// Command nucleus opens a window and renders a scene with the configured backend.
//
//	nucleus -config nucleus.yaml -scene scenes/fox.yaml
//
// Without -scene a spinning cube is shown. Drag with the left button to orbit, scroll to zoom and press
// space to pause the spin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/config"
	"github.com/Carmen-Shannon/nucleus-go/engine/injector"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "nucleus:", err)
		os.Exit(1)
	}
}

// options are the parsed command line flags.
type options struct {
	configPath string
	scenePath  string
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("nucleus", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.configPath, "config", "", "yaml configuration file (default: built-in defaults)")
	fs.StringVar(&o.scenePath, "scene", "", "scene document; mesh node sources are glTF files under asset_root")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// loadConfig reads path, or returns the validated defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadFile(path)
}

// buildRoot loads the scene document at path, or builds the cube scene when path is empty.
func buildRoot(path string, s shader.Shader) (*scene.RootNode, error) {
	if path != "" {
		return loadScene(path)
	}
	cube, err := cubeMesh(s)
	if err != nil {
		return nil, err
	}
	root, _ := defaultScene(cube)
	return root, nil
}

func run(args []string, output io.Writer) error {
	o, err := parseFlags(args, output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	l := log.New(cfg.Level()).With(log.String("cmd", "nucleus"))

	version, err := backend.ParseVersion(cfg.Backend)
	if err != nil {
		return err
	}
	s, err := newShader(version)
	if err != nil {
		return err
	}
	root, err := buildRoot(o.scenePath, s)
	if err != nil {
		return err
	}
	cam, orbit := firstOrbit(root)

	e, cleanup, err := injector.Build(cfg, component.NewSystems(spinSystem()),
		engine.WithRootNode(root),
		engine.WithInputHandler(orbitInput(root, cam, orbit, l)),
	)
	if err != nil {
		return err
	}
	defer cleanup()
	defer e.Destroy()

	if err := loadMeshes(root, e.Renderer().Assets(), s, cfg.UseVBO, l); err != nil && common.KindOf(err) != common.KindSkippable {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Info("running", log.String("backend", version.String()), log.Bool("multi_thread", cfg.UseMultiThread()))
	if err := e.Run(ctx); err != nil {
		return err
	}
	l.Info("stopped", log.Uint64("frames", e.Frames()))
	return nil
}
