package main

import (
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/subgraph/oz/config"
	"github.com/subgraph/oz/mount"
	"github.com/subgraph/oz/nsenter"
)

const usage = `oz-mount adds files from the user's home to a running oz sandbox.
It is spawned by oz-daemon with _OZ_NSPID and _OZ_HOMEDIR set, do not call it yourself.`

const configFlagName = "config"
const readonlyFlagName = "readonly"

func init() {
	// only this thread joins the sandbox's mount namespace and it never goes back
	runtime.LockOSThread()
}

func main() {
	app := cli.NewApp()
	app.Name = "oz-mount"
	app.Usage = usage
	app.HideVersion = true

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  configFlagName,
			Value: config.DefaultConfigPath,
			Usage: "oz configuration file",
		},
	}

	app.Before = func(context *cli.Context) error {
		setupLogger(log.StandardLogger(), os.Stdout, os.Stderr)
		return nil
	}

	mountCommand := cli.Command{
		Name:      "mount",
		Usage:     "Bind files into the sandbox.\nUsage: oz-mount mount [--readonly] FILE...",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  readonlyFlagName,
				Usage: "bind the files read-only",
			},
		},
		Action: func(context *cli.Context) error {
			readonly := context.Bool(readonlyFlagName)
			return run(context, func(b *mount.Binder, fpath string) error {
				return b.Bind(fpath, readonly)
			})
		},
	}

	umountCommand := cli.Command{
		Name:      "umount",
		Usage:     "Remove files bound into the sandbox.\nUsage: oz-mount umount FILE...",
		ArgsUsage: "FILE...",
		Action: func(context *cli.Context) error {
			return run(context, func(b *mount.Binder, fpath string) error {
				return b.Unbind(fpath)
			})
		},
	}

	app.Commands = []*cli.Command{&mountCommand, &umountCommand}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// run enters the sandbox and applies fn to every cleaned file argument.
func run(context *cli.Context, fn func(b *mount.Binder, fpath string) error) error {
	gate := nsenter.NewGate(nsenter.SystemOps{}, log.StandardLogger())
	if _, err := gate.Enter(nsenter.CurrentEnv()); err != nil {
		return err
	}

	if context.Args().Len() < 1 {
		return fmt.Errorf("missing file arguments")
	}
	conf, err := loadConfig(context.String(configFlagName))
	if err != nil {
		return fmt.Errorf("could not load configuration: %s (%v)", context.String(configFlagName), err)
	}

	homedir := os.Getenv(mount.EnvHomeDir)
	if homedir == "" {
		return fmt.Errorf("homedir must be set")
	}
	if err := os.Unsetenv(mount.EnvHomeDir); err != nil {
		log.Warnf("Unset env %s error: %v", mount.EnvHomeDir, err)
	}

	binder := mount.NewBinder(conf.RootfsPath(), log.StandardLogger())
	for _, fpath := range context.Args().Slice() {
		cpath, err := mount.CleanPath(fpath, homedir)
		if err != nil {
			return err
		}
		if err := fn(binder, cpath); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(cpath string) (*config.Config, error) {
	conf, err := config.Load(cpath)
	if err != nil {
		if os.IsNotExist(err) {
			return config.Default(), nil
		}
		return nil, err
	}
	return conf, nil
}
