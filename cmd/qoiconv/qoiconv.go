package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"

	"qoi/qoi"
)

const usage = `Usage: qoiconv [flags] <infile> <outfile>
       qoiconv [flags] -out <dir> <infile>...
Examples:
	qoiconv input.png output.qoi
	qoiconv input.qoi output.png
	qoiconv -out converted -jobs 4 *.png
Flags:`

var (
	outDir = flag.String("out", "", "convert every input into this directory")
	jobs   = flag.Int("jobs", runtime.NumCPU(), "number of concurrent conversions in batch mode")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *outDir != "" {
		if flag.NArg() < 1 {
			printUsage()
			os.Exit(2)
		}
		if err := convertBatch(flag.Args(), *outDir, *jobs); err != nil {
			log.Fatal(err)
		}
		return
	}

	if flag.NArg() != 2 {
		printUsage()
		os.Exit(2)
	}
	if err := convert(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(flag.CommandLine.Output(), usage)
	flag.PrintDefaults()
}

// convertBatch runs one conversion per input file on a bounded worker
// pool. Each conversion is independent; the codec shares no state
// between calls.
func convertBatch(inputs []string, dir string, jobs int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create the output directory")
	}

	wp := workerpool.New(jobs)
	var mu sync.Mutex
	var failed int
	for _, input := range inputs {
		input := input
		wp.Submit(func() {
			output := filepath.Join(dir, batchOutputName(input))
			if err := convert(input, output); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Printf("%s: %v", input, err)
			}
		})
	}
	wp.StopWait()

	if failed > 0 {
		return errors.Errorf("%d of %d conversions failed", failed, len(inputs))
	}
	return nil
}

// QOI inputs come out as PNG, everything else as QOI.
func batchOutputName(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if isQOIFilename(input) {
		return base + ".png"
	}
	return base + ".qoi"
}

func convert(inputFilename, outputFilename string) error {
	inputImg, err := openImage(inputFilename)
	if err != nil {
		return err
	}
	if !isQOIFilename(outputFilename) {
		return writeGenericImage(inputImg, outputFilename)
	}
	return writeQOIImage(inputImg, outputFilename)
}

func openImage(filename string) (image.Image, error) {
	inputImg, err := imaging.Open(filename)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		return nil, errors.New("the only supported formats are png, jpeg, bmp, tiff & qoi")
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not open the input image")
	}
	return inputImg, nil
}

func isQOIFilename(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".qoi")
}

func writeGenericImage(img image.Image, outputFilename string) error {
	err := imaging.Save(img, outputFilename)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		return errors.New("the only supported formats are png, jpeg, bmp, tiff & qoi")
	}
	return errors.Wrap(err, "could not save the output image")
}

func writeQOIImage(img image.Image, outputFilename string) error {
	outputFile, err := os.Create(outputFilename)
	if err != nil {
		return errors.Wrap(err, "could not open the output file")
	}
	if err := qoi.Encode(outputFile, img); err != nil {
		outputFile.Close()
		return errors.Wrap(err, "could not encode the image")
	}
	return errors.Wrap(outputFile.Close(), "could not close the output file")
}
