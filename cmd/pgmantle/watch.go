package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchDir     string
	watchControl string
	watchOut     string
)

// debounce coalesces editor write bursts into one regeneration.
const debounce = 250 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the schema when sources change",
	Long: `Watch the package directory and re-run schema generation whenever a
Go source file changes. A failing generation is reported and watching
continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := regenerate(cmd); err != nil {
			log.Printf("[WARN] watch: initial generation failed: %v", err)
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Close()
		if err := watchTree(w, watchDir); err != nil {
			return err
		}
		log.Printf("[INFO] watch: watching %s", watchDir)

		var timer *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if !strings.HasSuffix(ev.Name, ".go") {
					if ev.Has(fsnotify.Create) {
						if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
							_ = watchTree(w, ev.Name)
						}
					}
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				if err := regenerate(cmd); err != nil {
					log.Printf("[WARN] watch: %v", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				log.Printf("[WARN] watch: %v", err)
			}
		}
	},
}

func regenerate(cmd *cobra.Command) error {
	graph, err := buildGraph(cmd.Context(), watchDir, watchControl)
	if err != nil {
		return err
	}
	script, err := graph.SQL()
	if err != nil {
		return err
	}
	if err := os.WriteFile(watchOut, []byte(script), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", watchOut, err)
	}
	log.Printf("[INFO] watch: regenerated %s, %d entities", watchOut, graph.Len())
	return nil
}

// watchTree registers dir and every subdirectory, skipping hidden
// directories and the extraction cache.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchDir, "dir", ".", "package directory to watch")
	f.StringVar(&watchControl, "control", "", "path to the extension's .control file")
	f.StringVar(&watchOut, "out", "", "schema output file")
	_ = watchCmd.MarkFlagRequired("control")
	_ = watchCmd.MarkFlagRequired("out")
}
