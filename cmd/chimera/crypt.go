package main

import (
	"context"
	"io"
	"os"

	"github.com/aegistudio/shaft"
	"github.com/aegistudio/shaft/serpent"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aegistudio/chimera"
)

var (
	keyFile    string
	cryptSplit = 1
	cryptPerm  = os.FileMode(0644)
)

// cryptRange transforms the range [start, end) of the input
// into the same range of the output. Each range starts its
// own session at the offset, as a worker of a split would.
func cryptRange(
	ctx context.Context, props *properties.Properties,
	key, iv []byte, input string, output afero.File, start, end int64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := osFs.Open(input)
	if err != nil {
		return err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		_ = f.Close()
		return err
	}
	r, err := chimera.NewReader(f, props, key, iv)
	if err != nil {
		_ = f.Close()
		return err
	}
	defer func() { _ = r.Close() }()
	w := io.NewOffsetWriter(output, start)
	if _, err := io.CopyN(w, r, end-start); err != nil {
		return errors.Wrapf(err, "transform range [%d, %d)", start, end)
	}
	return nil
}

// cryptFile transforms the input file into the output file
// in the specified number of concurrently processed splits.
func cryptFile(
	ctx context.Context, props *properties.Properties,
	key, iv []byte, input, output string, splits int,
) error {
	if splits < 1 {
		return errors.Errorf("invalid number of splits %d", splits)
	}
	stat, err := osFs.Stat(input)
	if err != nil {
		return err
	}
	size := stat.Size()
	out, err := osFs.OpenFile(output,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, cryptPerm)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if err := out.Truncate(size); err != nil {
		return err
	}

	// Splits are aligned to the block size, so that only the
	// first split may start inside of a block.
	blockSize := int64(chimera.AESCTRNoPadding.AlgorithmBlockSize())
	splitSize := (size + int64(splits) - 1) / int64(splits)
	splitSize = (splitSize + blockSize - 1) / blockSize * blockSize
	if splitSize == 0 {
		splitSize = blockSize
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for start := int64(0); start < size; start += splitSize {
		start, end := start, start+splitSize
		if end > size {
			end = size
		}
		group.Go(func() error {
			return cryptRange(groupCtx, props,
				key, iv, input, out, start, end)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return out.Sync()
}

func newCryptCommand(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INPUT OUTPUT",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: serpent.Executor(shaft.Module(
			shaft.Invoke(func(
				rootCtx serpent.CommandContext,
				props *properties.Properties, args serpent.CommandArgs,
			) error {
				if keyFile == "" {
					return errors.New("missing key file")
				}
				key, err := afero.ReadFile(osFs, keyFile)
				if err != nil {
					return err
				}
				iv, err := parseIV()
				if err != nil {
					return err
				}
				return cryptFile(rootCtx, props,
					key, iv, args[0], args[1], cryptSplit)
			}),
		)).RunE,
	}
}

var (
	cmdEncrypt = newCryptCommand("encrypt",
		"encrypt a file with AES/CTR/NoPadding")
	cmdDecrypt = newCryptCommand("decrypt",
		"decrypt a file with AES/CTR/NoPadding")
)

func init() {
	for _, cmd := range []*cobra.Command{cmdEncrypt, cmdDecrypt} {
		cmd.PersistentFlags().StringVar(
			&keyFile, "key", keyFile,
			"read content as AES key from a file")
		cmd.PersistentFlags().StringVar(
			&initIVHex, "iv", initIVHex,
			"initial IV of the stream in hex")
		cmd.PersistentFlags().IntVar(
			&cryptSplit, "splits", cryptSplit,
			"number of splits processed concurrently")
		rootCmd.AddCommand(cmd)
	}
}
