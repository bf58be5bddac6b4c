// floppyctl mounts a disk image or raw device through floppyfs, inspects
// its geometry, drives block-device reads/writes/syncs against it, and
// watches the track cache live. Cobra CLI + tcell UI, styled after the
// mkfat formatter this repo grew out of.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"floppyfs/internal/diag"
	"floppyfs/pkg/blockdevice"
	"floppyfs/pkg/filebackend"
	"floppyfs/pkg/lowlevelformat"
	"floppyfs/pkg/rawdevice"
)

func main() {
	var configPath string
	var cfg Config

	root := &cobra.Command{
		Use:   "floppyctl",
		Short: "Mount, inspect, and drive floppy disk images and devices",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			isDefault := configPath == ""
			if isDefault {
				home, err := os.UserHomeDir()
				if err == nil {
					configPath = filepath.Join(home, ".floppyctl.yaml")
				}
			}
			loaded, err := loadConfig(configPath, isDefault)
			if err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.floppyctl.yaml)")

	root.AddCommand(
		newInspectCmd(&cfg),
		newReadCmd(&cfg),
		newWriteCmd(&cfg),
		newSyncCmd(&cfg),
		newWatchCmd(&cfg),
		newDeviceCmd(),
	)

	if err := root.Execute(); err != nil {
		diag.Fatalf("%v", err)
	}
}

func openImage(cfg *Config, path string, writable bool) (*filebackend.Cached, *os.File, error) {
	f, err := rawdevice.OpenForFloppy(path, writable)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	fb, err := filebackend.Open(f, path)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return filebackend.NewCached(fb, uint64(cfg.CacheBudgetBytes)), f, nil
}

func newInspectCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Print the geometry, disk type, label, and timestamp floppyfs sees for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cached, f, err := openImage(cfg, args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			g := cached.Geometry()
			fmt.Printf("path:            %s\n", args[0])
			fmt.Printf("type:            %v\n", g.Type)
			fmt.Printf("serial:          %08X\n", g.Serial)
			fmt.Printf("heads:           %d\n", g.Heads)
			fmt.Printf("sectors/track:   %d\n", g.SectorsPerTrack)
			fmt.Printf("bytes/sector:    %d\n", g.BytesPerSector)
			fmt.Printf("total tracks:    %d\n", g.TotalTracks)
			fmt.Printf("write protected: %v\n", cached.IsWriteProtected())

			if oem, err := cached.OEMName(); err == nil && oem != "" {
				fmt.Printf("OEM name:        %s\n", oem)
			}
			if label, err := cached.VolumeLabel(); err == nil && label != "" {
				fmt.Printf("volume label:    %s\n", label)
			}
			fmt.Printf("get_fattime():   %08X (%s)\n", blockdevice.Time(), time.Now().Format(time.RFC3339))
			return nil
		},
	}
}

func newReadCmd(cfg *Config) *cobra.Command {
	var outPath string
	var count int
	cmd := &cobra.Command{
		Use:   "read <path> <lba>",
		Short: "Read count sectors starting at lba through the block-device facade",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			lba, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid lba %q: %w", args[1], err)
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			cached, f, err := openImage(cfg, args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			facade := &blockdevice.Facade{}
			facade.Bind(cached)

			sectorSize := cached.HybridSectorSize()
			buf := make([]byte, sectorSize*count)
			if status := facade.Read(0, buf, uint32(lba), count); status != blockdevice.StatusOK {
				return fmt.Errorf("read: status %v", status)
			}

			out := io.Writer(os.Stdout)
			if outPath != "" {
				of, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer of.Close()
				out = of
			}
			_, err = out.Write(buf)
			return err
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of sectors to read")
	cmd.Flags().StringVar(&outPath, "out", "", "write raw bytes here instead of stdout")
	return cmd
}

func newWriteCmd(cfg *Config) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "write <path> <lba>",
		Short: "Write sectors starting at lba from --in through the block-device facade",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if inPath == "" {
				return fmt.Errorf("--in is required")
			}
			lba, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid lba %q: %w", args[1], err)
			}

			cached, f, err := openImage(cfg, args[0], true)
			if err != nil {
				return err
			}
			defer f.Close()

			payload, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", inPath, err)
			}

			facade := &blockdevice.Facade{}
			facade.Bind(cached)

			sectorSize := cached.HybridSectorSize()
			if len(payload)%sectorSize != 0 {
				return fmt.Errorf("%s is %d bytes, not a multiple of the %d-byte sector size", inPath, len(payload), sectorSize)
			}
			count := len(payload) / sectorSize
			if status := facade.Write(0, payload, uint32(lba), count); status != blockdevice.StatusOK {
				return fmt.Errorf("write: status %v", status)
			}
			if _, status := facade.Ioctl(0, blockdevice.CmdSync); status != blockdevice.StatusOK {
				return fmt.Errorf("sync after write: status %v", status)
			}
			fmt.Printf("wrote %d sector(s) at lba %d\n", count, lba)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "file whose bytes are written (required)")
	return cmd
}

func newSyncCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <path>",
		Short: "Flush any pending writes back to the underlying image or device",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cached, f, err := openImage(cfg, args[0], true)
			if err != nil {
				return err
			}
			defer f.Close()

			facade := &blockdevice.Facade{}
			facade.Bind(cached)
			if _, status := facade.Ioctl(0, blockdevice.CmdSync); status != blockdevice.StatusOK {
				return fmt.Errorf("sync: status %v", status)
			}
			fmt.Println("synced")
			return nil
		},
	}
}

func newWatchCmd(cfg *Config) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a simulated track cache live (no physical bridge driver ships with this build)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWatch(cfg, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "poll interval")
	return cmd
}

func newDeviceCmd() *cobra.Command {
	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Device related utilities (safe, read-only)",
	}
	deviceCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List mounted volumes as candidate device/image paths (read-only)",
		RunE: func(*cobra.Command, []string) error {
			mounts, err := rawdevice.Discover()
			if err != nil {
				return err
			}
			fmt.Printf("%-24s  %-14s  %-10s  %s\n", "Mount", "FS", "Size", "Device")
			for _, m := range mounts {
				fmt.Printf("%-24s  %-14s  %-10d  %s\n", m.MountPoint, m.FSType, m.SizeBytes, m.Device)
			}
			return nil
		},
	})
	deviceCmd.AddCommand(&cobra.Command{
		Use:   "format-hint <path>",
		Short: "Report whether this build can drive a low-level format for path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := lowlevelformat.Attempt(args[0]); err != nil {
				fmt.Printf("%s: %v\n", args[0], err)
				return nil
			}
			fmt.Printf("%s: low-level format available\n", args[0])
			return nil
		},
	})
	return deviceCmd
}

// isInteractive reports whether stderr is a real terminal, deciding
// between the interactive prompt policy and the headless default.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
