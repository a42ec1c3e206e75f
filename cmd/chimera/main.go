package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/aegistudio/shaft"
	"github.com/aegistudio/shaft/serpent"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/op/go-logging.v1"
)

var options []shaft.Option

var osFs = afero.NewOsFs()

var (
	propertiesFile string
	defines        []string
	logLevel       = "WARNING"
)

var rootCmd = &cobra.Command{
	Use:   "chimera",
	Short: "seekable AES/CTR stream cipher tools",
	Long: strings.Trim(`
Chimera command line provides utilities for inspecting the
resolved cipher configuration, calculating the IV at a stream
offset, and encrypting or decrypting files in independently
processed splits.
`, "\r\n"),
	SilenceUsage: true,
	PreRunE: serpent.Executor(shaft.Module(
		shaft.Provide(func() (*properties.Properties, error) {
			props := properties.NewProperties()
			props.DisableExpansion = true
			if propertiesFile != "" {
				data, err := afero.ReadFile(osFs, propertiesFile)
				if err != nil {
					return nil, err
				}
				loaded, err := properties.Load(data, properties.ISO_8859_1)
				if err != nil {
					return nil, errors.Wrapf(err, "parse %q", propertiesFile)
				}
				loaded.DisableExpansion = true
				props.Merge(loaded)
			}
			for _, define := range defines {
				kv := strings.SplitN(define, "=", 2)
				if len(kv) != 2 {
					return nil, errors.Errorf("malformed define %q", define)
				}
				if _, _, err := props.Set(kv[0], kv[1]); err != nil {
					return nil, err
				}
			}
			return props, nil
		}),
	)).PreRunE,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&propertiesFile, "properties", propertiesFile,
		"read explicit properties from a file")
	rootCmd.PersistentFlags().StringArrayVarP(
		&defines, "define", "D", defines,
		"set an explicit property as key=value")
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", logLevel,
		"level of logging, one of ERROR, WARNING, NOTICE, INFO, DEBUG")
	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	level, err := logging.LogLevel(logLevel)
	if err != nil {
		level = logging.WARNING
	}
	logFmt := logging.MustStringFormatter(
		"%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(base, logFmt)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

func main() {
	rootCtx := context.Background()
	rootCtx, cancel := signal.NotifyContext(rootCtx, os.Interrupt)
	defer cancel()
	if err := serpent.ExecuteContext(
		rootCtx, rootCmd, options...); err != nil {
		os.Exit(1)
	}
}
