package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/rh1tech/murmgenesis-sub000/cli"
	"github.com/rh1tech/murmgenesis-sub000/emu"
)

func main() {
	regionFlag := flag.String("region", "ntsc", "region: ntsc or pal")
	audioFlag := flag.String("audio", "sync", "audio protocol: sync (double buffer) or autonomous (command queue)")
	shapeFlag := flag.String("shape", cli.ShapePingPong, "output engine shape: pingpong, ring or nbuffer")
	headless := flag.Bool("headless", false, "run without window or host audio, printing stats")
	seconds := flag.Int("seconds", 0, "headless run length in seconds (0 = until interrupted)")
	volume := flag.Int("volume", 128, "master volume, 0..128")
	atten := flag.Uint("atten", 0, "output attenuation in bits")
	weakBlink := flag.Bool("weakblink", false, "weak frameskip parity protection")
	flag.Parse()

	cfg := cli.Config{
		Region:     emu.ParseRegion(*regionFlag),
		Shape:      *shapeFlag,
		Headless:   *headless,
		Volume:     *volume,
		Atten:      *atten,
		WeakBlink:  *weakBlink,
		Autonomous: *audioFlag == "autonomous",
	}
	if *audioFlag != "sync" && *audioFlag != "autonomous" {
		log.Fatalf("Invalid audio protocol: %s (use sync or autonomous)", *audioFlag)
	}

	runner, err := cli.NewRunner(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer runner.Close()

	if *headless {
		runHeadless(runner, *seconds)
		return
	}

	ebiten.SetWindowSize(640, 448)
	ebiten.SetWindowTitle("murmgenesis")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(emu.GetTimingForRegion(cfg.Region).FPS)

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}

func runHeadless(runner *cli.Runner, seconds int) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	if seconds > 0 {
		select {
		case <-time.After(time.Duration(seconds) * time.Second):
		case <-sig:
		}
	} else {
		<-sig
	}
}
