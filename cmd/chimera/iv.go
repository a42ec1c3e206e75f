package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/aegistudio/shaft"
	"github.com/aegistudio/shaft/serpent"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aegistudio/chimera"
)

var initIVHex string

// parseIV decodes the hex initial IV from the flag.
func parseIV() ([]byte, error) {
	iv, err := hex.DecodeString(initIVHex)
	if err != nil {
		return nil, errors.Wrap(err, "decode IV")
	}
	return iv, nil
}

var cmdIV = &cobra.Command{
	Use:   "iv OFFSET...",
	Short: "calculate the IV at stream offsets",
	Args:  cobra.MinimumNArgs(1),
	RunE: serpent.Executor(shaft.Module(
		shaft.Invoke(func(args serpent.CommandArgs) error {
			initIV, err := parseIV()
			if err != nil {
				return err
			}
			blockSize := chimera.AESCTRNoPadding.AlgorithmBlockSize()
			iv := make([]byte, len(initIV))
			for _, arg := range args {
				offset, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					return errors.Wrapf(err, "parse offset %q", arg)
				}
				counter := offset / uint64(blockSize)
				if err := chimera.CalculateIV(
					initIV, counter, iv); err != nil {
					return err
				}
				fmt.Printf("%d\t%d\t%x\t%d\n", offset, counter, iv,
					offset%uint64(blockSize))
			}
			return nil
		}),
	)).RunE,
}

func init() {
	cmdIV.PersistentFlags().StringVar(
		&initIVHex, "iv", initIVHex,
		"initial IV of the stream in hex")
	rootCmd.AddCommand(cmdIV)
}
