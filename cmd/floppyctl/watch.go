package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"floppyfs/pkg/bridge"
	"floppyfs/pkg/diskui"
	"floppyfs/pkg/mfmcodec"
	"floppyfs/pkg/trackengine"
)

// runWatch drives a live track-cache monitor. No physical bridge driver
// ships with this build (spec: the flux-level bridge is external), so
// watch demonstrates the monitor against a simulated drive seeded with a
// small Amiga disk image instead of failing outright.
func runWatch(cfg *Config, interval time.Duration) error {
	drive := bridge.NewSimulated(2, 80, false)
	seedDemoDisk(drive)

	e := trackengine.New(drive, trackengine.WithRetryPolicy(retryPolicyFor(cfg.RetryPolicy, isInteractive())))
	e.Start()
	defer e.Stop()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return watchPlain(e, interval)
	}
	return watchScreen(e, interval)
}

func seedDemoDisk(drive *bridge.Simulated) {
	const sectorsPerTrack = 11
	for track := 0; track < 8; track++ {
		sectors := make([]mfmcodec.DecodedSector, sectorsPerTrack)
		for i := range sectors {
			sectors[i] = mfmcodec.DecodedSector{
				Sector: i,
				Data:   bytes.Repeat([]byte{byte(track)}, 512),
			}
		}
		buf, ok := mfmcodec.EncodeSectorsAmiga(track, sectors, sectorsPerTrack, trackengine.MaxTrackSize)
		if !ok {
			continue
		}
		drive.SeedTrack(track, buf, len(buf)*8)
	}
}

func watchScreen(e *trackengine.Engine, interval time.Duration) error {
	screen, err := diskui.NewScreen("floppyctl watch  (q to quit)")
	if err != nil {
		return fmt.Errorf("open screen: %w", err)
	}
	defer screen.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if screen.IsStopped() {
			return nil
		}
		screen.Update(e.Snapshot())
		<-ticker.C
	}
}

func watchPlain(e *trackengine.Engine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < 5; i++ {
		snap := e.Snapshot()
		dirty, clean, errored := 0, 0, 0
		for _, st := range snap.Tracks {
			switch st {
			case trackengine.TrackDirty:
				dirty++
			case trackengine.TrackClean:
				clean++
			case trackengine.TrackError:
				errored++
			}
		}
		fmt.Printf("type=%v present=%v motor=%v clean=%d dirty=%d error=%d\n",
			snap.DiskType, snap.DiskPresent, snap.MotorOn, clean, dirty, errored)
		<-ticker.C
	}
	return nil
}
