// Command fa-archiverd captures fast-acquisition data from a sniffer
// device (or a replay file) into a pre-formatted on-disk archive.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/Araneidae/fa-archiver/internal/capture"
	"github.com/Araneidae/fa-archiver/internal/config"
	"github.com/Araneidae/fa-archiver/internal/mask"
	"github.com/Araneidae/fa-archiver/internal/sniffer"
	"github.com/Araneidae/fa-archiver/internal/transform"
)

var (
	archivePath = flag.String("archive", "",
		"path to the pre-formatted archive file")
	snifferDevice = flag.String("sniffer-device", "/dev/fasniffer0",
		"path to the FA sniffer character device")
	replay = flag.Bool("replay", false,
		"read frames from -replay-path instead of a real sniffer device")
	replayPath = flag.String("replay-path", "",
		"file of recorded frames to loop when -replay is set")
	archiveMask = flag.String("mask", "",
		"ids to capture, e.g. \"0-3,7\"; must match the archive's own mask")
	ringBlockCount = flag.Int("ring-blocks", 256,
		"number of RAM ring buffer blocks")
	boostPriority = flag.Bool("boost-priority", false,
		"run the sniffer thread at SCHED_FIFO priority 1")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	m, err := mask.Parse(*archiveMask)
	if err != nil {
		return errors.Wrap(err, "parsing -mask")
	}

	cfg := config.Config{
		ArchivePath:    *archivePath,
		SnifferDevice:  *snifferDevice,
		Replay:         *replay,
		ReplayPath:     *replayPath,
		ArchiveMask:    m,
		RingBlockCount: *ringBlockCount,
		BoostPriority:  *boostPriority,
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}

	// The archival/decimation transformer is outside this system's
	// scope; a production deployment supplies its own. Until that is
	// wired in here, run with a transformer that only observes the
	// stream, so the capture pipeline itself can still be exercised
	// end-to-end.
	system, err := capture.NewSystem(
		cfg.ArchivePath, cfg.RingBlockCount, dev, transform.DiscardTransformer{},
		cfg.BoostPriority, log.Default())
	if err != nil {
		return errors.Wrap(err, "starting capture system")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		system.Stop()
	}()

	return system.Run(context.Background())
}

func openDevice(cfg config.Config) (sniffer.Device, error) {
	if cfg.Replay {
		f, err := os.Open(cfg.ReplayPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening replay file")
		}
		return sniffer.NewReplayDevice(f), nil
	}
	return sniffer.OpenLinuxDevice(cfg.SnifferDevice)
}
