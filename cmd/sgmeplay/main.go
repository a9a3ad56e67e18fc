package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	synthigme "github.com/mesjetiu/synthigme-go"
	"github.com/mesjetiu/synthigme-go/internal/patch"
)

func main() {
	var (
		patchPath  = flag.String("patch", "", "path to a patch JSON file (default: empty panel)")
		wavPath    = flag.String("wav", "", "render to a float32 WAV file instead of playing")
		seconds    = flag.Float64("seconds", 10, "duration to render or play")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
	)
	flag.Parse()

	doc, err := resolvePatch(*patchPath)
	if err != nil {
		log.Fatal(err)
	}

	if *wavPath != "" {
		samples, err := synthigme.RenderPatch(doc, *sampleRate, *seconds)
		if err != nil {
			log.Fatal(err)
		}
		wav := synthigme.EncodeWAVFloat32LE(samples, *sampleRate, 2)
		if err := os.WriteFile(*wavPath, wav, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs at %d Hz)\n", *wavPath, *seconds, *sampleRate)
		return
	}

	pl, err := synthigme.NewPlayer(*sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	if doc != nil {
		if err := pl.Engine().LoadPatch(doc); err != nil {
			log.Fatal(err)
		}
	}
	pl.SetMasterVolume(*volume)
	if err := pl.Start(); err != nil {
		log.Fatal(err)
	}
	deadline := time.After(time.Duration(*seconds * float64(time.Second)))
	for {
		select {
		case d := <-pl.Engine().Diagnostics():
			fmt.Printf("unit %s muted: %v\n", d.Unit, d.Err)
		case <-deadline:
			if err := pl.Stop(); err != nil {
				log.Fatal(err)
			}
			return
		}
	}
}

func resolvePatch(path string) (*patch.Document, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := patch.Parse(data)
	if err != nil {
		return nil, err
	}
	if ok, problems := patch.Validate(doc); !ok {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "patch: %s\n", p.Error())
		}
		return nil, fmt.Errorf("%s: %d validation errors", path, len(problems))
	}
	return doc, nil
}
