package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/bundle"
)

var (
	packOut   string
	packLevel int

	bundleCmd = &cobra.Command{
		Use:   "bundle",
		Short: "Pack or unpack bundle directories",
		Args:  cobra.NoArgs,
	}

	bundlePackCmd = &cobra.Command{
		Use:     "pack [DIR]",
		Short:   "Archive a bundle directory",
		Long:    paragraph(fmt.Sprintf("\n%s every bundle in DIR into a zstd compressed tar with a checksum manifest.", keyword("Pack"))),
		Example: paragraph("narrate bundle pack course/audio -o audio.tar.zst"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.Bundle.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no bundle directory: pass DIR or set bundle.dir")
			}
			if packOut == "" {
				return errors.New("no output file: pass --out")
			}

			f, err := os.Create(packOut)
			if err != nil {
				return fmt.Errorf("unable to create archive: %w", err)
			}
			n, err := bundle.Pack(dir, f, packLevel)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(packOut)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %d bundles into %s\n", n, packOut)
			return nil
		},
	}

	bundleUnpackCmd = &cobra.Command{
		Use:     "unpack FILE [DIR]",
		Short:   "Verify and extract a bundle archive",
		Example: paragraph("narrate bundle unpack audio.tar.zst course/audio"),
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.Bundle.Dir
			if len(args) == 2 {
				dir = args[1]
			}
			if dir == "" {
				return errors.New("no bundle directory: pass DIR or set bundle.dir")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("unable to open archive: %w", err)
			}
			defer f.Close() //nolint:errcheck

			n, err := bundle.Unpack(f, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpacked %d bundles into %s\n", n, dir)
			return nil
		},
	}
)

func init() {
	bundlePackCmd.Flags().StringVarP(&packOut, "out", "o", "", "archive file to write")
	bundlePackCmd.Flags().IntVar(&packLevel, "level", 3, "zstd compression level")
	bundleCmd.AddCommand(bundlePackCmd, bundleUnpackCmd)
}
