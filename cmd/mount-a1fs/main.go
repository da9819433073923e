// Command mount-a1fs mounts an a1fs image as a FUSE file system, giving the
// core package a real read-write host to run under. This binding is a thin
// convenience layer, not part of the on-disk format.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"

	"github.com/a1fs-go/a1fs/a1fs"
	"github.com/a1fs-go/a1fs/internal/fuseshim"
)

func main() {
	fset := flag.NewFlagSet("mount-a1fs", flag.ExitOnError)
	var (
		debug = fset.Bool("d", false, "enable FUSE debug tracing")
	)
	fset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] image mountpoint\n\n", fset.Name())
		fset.PrintDefaults()
	}
	fset.Parse(os.Args[1:])
	if fset.NArg() < 2 {
		fset.Usage()
		os.Exit(1)
	}
	imgPath := fset.Arg(0)
	mountPoint := fset.Arg(1)

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	fsys, err := a1fs.Open(imgPath)
	if err != nil {
		log.Fatalf("mount-a1fs: %v", err)
	}
	defer fsys.Close()

	root := fuseshim.Root(fsys)
	server, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      *debug,
			FsName:     "a1fs",
			Name:       "a1fs",
			AllowOther: false,
		},
	})
	if err != nil {
		log.Fatalf("mount-a1fs: mount %s: %v", mountPoint, err)
	}
	log.Infof("mounted %s at %s", imgPath, mountPoint)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("unmounting")
		server.Unmount()
	}()

	server.Wait()
	if err := fsys.Sync(); err != nil {
		log.Warnf("mount-a1fs: final sync: %v", err)
	}
}
