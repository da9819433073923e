// Command mkfs-a1fs formats an image file into a1fs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/a1fs-go/a1fs/a1fs"
	"github.com/a1fs-go/a1fs/image"
)

func main() {
	fset := flag.NewFlagSet("mkfs-a1fs", flag.ExitOnError)
	var (
		inodes  = fset.Uint("i", 0, "number of inodes; required")
		force   = fset.Bool("f", false, "force format - overwrite existing a1fs file system")
		sync    = fset.Bool("s", false, "sync image file contents to disk")
		verbose = fset.Bool("v", false, "verbose output")
		zero    = fset.Bool("z", false, "zero out image contents")
	)
	fset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s options image\n\n", fset.Name())
		fmt.Fprintf(os.Stderr, "Format the image file into a1fs file system. The file must exist and\n")
		fmt.Fprintf(os.Stderr, "its size must be a multiple of a1fs block size - %d bytes.\n\n", a1fs.BlockSize)
		fset.PrintDefaults()
	}
	fset.Parse(os.Args[1:])

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Missing image path")
		fset.Usage()
		os.Exit(1)
	}
	if *inodes == 0 {
		fmt.Fprintln(os.Stderr, "Missing or invalid number of inodes")
		fset.Usage()
		os.Exit(1)
	}
	imgPath := fset.Arg(0)

	img, err := image.Map(imgPath, a1fs.BlockSize)
	if err != nil {
		log.Fatalf("mkfs-a1fs: %v", err)
	}
	defer img.Close()

	if !*force && a1fs.IsFormatted(img) {
		log.Fatalf("mkfs-a1fs: image already contains a1fs; use -f to overwrite")
	}

	log.Debugf("formatting %s: %d inodes, %d bytes", imgPath, *inodes, img.Len())
	if err := a1fs.Format(img, a1fs.FormatOptions{Inodes: uint32(*inodes), Zero: *zero}); err != nil {
		log.Fatalf("mkfs-a1fs: failed to format the image: %v", err)
	}

	if *sync {
		if err := img.Sync(); err != nil {
			log.Fatalf("mkfs-a1fs: sync: %v", err)
		}
	}
	log.Debug("done")
}
