package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aegistudio/shaft"
	"github.com/aegistudio/shaft/serpent"
	"github.com/magiconair/properties"
	"github.com/spf13/cobra"

	"github.com/aegistudio/chimera"
)

const unsetValue = "(unset)"

func optional(value string, ok bool) string {
	if !ok {
		return unsetValue
	}
	return value
}

var cmdConfig = &cobra.Command{
	Use:   "config",
	Short: "print the resolved cipher configuration",
	Args:  cobra.NoArgs,
	RunE: serpent.Executor(shaft.Module(
		shaft.Invoke(func(props *properties.Properties) error {
			r := chimera.NewResolver(props)
			bufferSize, err := r.BufferSize()
			if err != nil {
				return err
			}
			transformation, err := r.Transformation()
			if err != nil {
				return err
			}
			tabWriter := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', 0)
			defer func() { _ = tabWriter.Flush() }()
			for _, line := range [][2]string{
				{chimera.BufferSizeKey, fmt.Sprintf("%d", bufferSize)},
				{chimera.CipherClassesKey, r.CipherClasses()},
				{chimera.TransformationKey, transformation.Name()},
				{chimera.JCEProviderKey, optional(r.JCEProvider())},
				{chimera.RandomDevicePathKey, r.RandomDevicePath()},
				{chimera.LibPathKey, optional(r.LibPath())},
				{chimera.LibNameKey, optional(r.LibName())},
				{chimera.TempDirKey, r.TempDir()},
			} {
				if _, err := fmt.Fprintf(
					tabWriter, "%s\t%s\n", line[0], line[1]); err != nil {
					return err
				}
			}
			return nil
		}),
	)).RunE,
}

func init() {
	rootCmd.AddCommand(cmdConfig)
}
